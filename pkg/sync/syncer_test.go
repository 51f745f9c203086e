package sync

import (
	"slices"
	"testing"

	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
	"github.com/sidkik/syncbox/pkg/remote/mocks"
)

func byPath(p string) interface{} {
	return mock.MatchedBy(func(d remote.TransferDescriptor) bool {
		return d.CommonPath == p
	})
}

func TestPush(t *testing.T) {
	writeFiles(t, map[string]string{
		"/sync/same.txt":        "abc",
		"/sync/new.txt":         "new",
		"/sync/docs/report.txt": "report",
		"/sync/fails.txt":       "x",
	})

	client := &mocks.Client{}
	client.On("ListRecursive", "", true).Return(slices.Values([]remote.ClientItem{
		{Name: "same.txt", FullPath: "same.txt", Size: 3},
	}))
	client.On("ListingFailed").Return(false)
	client.On("MakeFolder", "docs").Return(nil).Once()

	log, _ := logrusTest.NewNullLogger()
	syncer := &Syncer{Client: client, Root: "/sync", Log: log}

	var busyDuringTransfer bool
	client.On("SafeUpload", byPath("docs/report.txt")).Return(remote.Success).
		Run(func(mock.Arguments) { busyDuringTransfer = syncer.InProgress() }).Once()
	client.On("SafeUpload", byPath("new.txt")).Return(remote.Success).Once()
	client.On("SafeUpload", byPath("fails.txt")).Return(remote.Failure).Once()

	res, err := syncer.Push()
	require.NoError(t, err)
	assert.Equal(t, Result{Folders: 1, Transferred: 2, Failed: 1}, res)
	assert.True(t, busyDuringTransfer)
	assert.False(t, syncer.InProgress())
	client.AssertExpectations(t)
}

func TestPushMakeFolderFailure(t *testing.T) {
	writeFiles(t, map[string]string{"/sync/docs/a.txt": "a"})

	client := &mocks.Client{}
	client.On("ListRecursive", "", true).Return(slices.Values([]remote.ClientItem(nil)))
	client.On("ListingFailed").Return(false)
	client.On("MakeFolder", "docs").Return(errors.New("permission denied"))
	client.On("SafeUpload", byPath("docs/a.txt")).Return(remote.Failure)

	log, hook := logrusTest.NewNullLogger()
	res, err := (&Syncer{Client: client, Root: "/sync", Log: log}).Push()
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 2}, res)
	assert.Equal(t, "Failed to create folder", hook.Entries[0].Message)
}

func TestPull(t *testing.T) {
	writeFiles(t, map[string]string{"/sync/same.txt": "abc"})

	client := &mocks.Client{}
	client.On("ListRecursive", "", true).Return(slices.Values([]remote.ClientItem{
		{Name: "same.txt", FullPath: "same.txt", Size: 3},
		{Name: "empty", FullPath: "empty", Type: remote.Folder},
		{Name: "docs", FullPath: "docs", Type: remote.Folder},
		{Name: "a.txt", FullPath: "docs/a.txt", Size: 1},
	}))
	client.On("ListingFailed").Return(false)
	client.On("SafeDownload", remote.TransferDescriptor{
		Item:       remote.ClientItem{Name: "a.txt", FullPath: "docs/a.txt", Size: 1},
		LocalPath:  "/sync/docs/a.txt",
		CommonPath: "docs/a.txt",
		Direction:  remote.Download,
	}).Return(remote.Success).Once()

	log, _ := logrusTest.NewNullLogger()
	res, err := (&Syncer{Client: client, Root: "/sync", Log: log}).Pull()
	require.NoError(t, err)
	assert.Equal(t, Result{Folders: 2, Transferred: 1}, res)

	for _, dir := range []string{"/sync/empty", "/sync/docs"} {
		isDir, err := afero.IsDir(fs, dir)
		require.NoError(t, err)
		assert.True(t, isDir, dir)
	}
	client.AssertExpectations(t)
}

func TestAlreadySynced(t *testing.T) {
	writeFiles(t, map[string]string{"/sync/same.txt": "abc"})

	client := &mocks.Client{}
	client.On("ListRecursive", "", true).Return(slices.Values([]remote.ClientItem{
		{Name: "same.txt", FullPath: "same.txt", Size: 3},
	}))
	client.On("ListingFailed").Return(false)

	log, _ := logrusTest.NewNullLogger()
	syncer := &Syncer{Client: client, Root: "/sync", Log: log}

	res, err := syncer.Push()
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	res, err = syncer.Pull()
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	client.AssertNotCalled(t, "SafeUpload", mock.Anything)
	client.AssertNotCalled(t, "SafeDownload", mock.Anything)
}

func TestSyncListingFailure(t *testing.T) {
	writeFiles(t, map[string]string{"/sync/a.txt": "a"})

	client := &mocks.Client{}
	client.On("ListRecursive", "", true).Return(slices.Values([]remote.ClientItem(nil)))
	client.On("ListingFailed").Return(true)

	log, _ := logrusTest.NewNullLogger()
	_, err := (&Syncer{Client: client, Root: "/sync", Log: log}).Push()
	assert.EqualError(t, err, "get remote files: remote listing failed")
}
