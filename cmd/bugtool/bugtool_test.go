package bugtool

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/trash"
	"github.com/sidkik/syncbox/pkg/trust"
	"github.com/sidkik/syncbox/pkg/version"
)

type file struct {
	path, contents string
}

func TestSetupVersion(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, setupVersion("root"))
	assertFiles(t, []file{{"root/version",
		"version: " + version.Version + "\n" +
			"go: " + runtime.Version() + "\n" +
			"platform: " + runtime.GOOS + "/" + runtime.GOARCH + "\n"}})
}

func TestSetupAccount(t *testing.T) {
	fs = afero.NewMemMapFs()
	parseAccount = func() (config.Account, error) {
		return config.Account{
			Host:      "example.com",
			Protocol:  config.SFTP,
			Username:  "user",
			Password:  "hunter2",
			LocalPath: "/sync",
		}, nil
	}
	require.NoError(t, setupAccount("root"))

	contents, err := afero.ReadFile(fs, "root/account.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(contents), "host: example.com\n")
	assert.Contains(t, string(contents), "password: <redacted>\n")
	assert.NotContains(t, string(contents), "hunter2")
}

func TestSetupAccountError(t *testing.T) {
	fs = afero.NewMemMapFs()
	parseAccount = func() (config.Account, error) {
		return config.Account{}, errors.New("bad config")
	}
	require.NoError(t, setupAccount("root"))
	assertFiles(t, []file{{"root/account-error", "bad config\n"}})
}

func TestSetupTrustAndTrash(t *testing.T) {
	fs = afero.NewMemMapFs()

	storePath := filepath.Join(t.TempDir(), "trusted.yaml")
	store, err := trust.Load(storePath, "example.com")
	require.NoError(t, err)
	require.NoError(t, store.Add("SHA256:abc"))
	loadTrust = func() (*trust.Store, error) {
		return trust.Load(storePath, "")
	}

	trashFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(trashFs, "/local/old.txt", []byte("old"), 0644))
	bin := trash.New(trashFs, "/trash")
	require.NoError(t, bin.Trash("/local/old.txt"))
	openTrash = func() (*trash.Bin, error) { return bin, nil }

	require.NoError(t, setupTrust("root"))
	require.NoError(t, setupTrash("root"))

	trusted, err := afero.ReadFile(fs, "root/trusted.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(trusted), "fingerprint: SHA256:abc")
	assert.Contains(t, string(trusted), "host: example.com")

	trashed, err := afero.ReadFile(fs, "root/trash.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(trashed), "Name: old.txt")
}

func TestTarDirectory(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, setupFiles([]file{
		{"root/version", "version: dev\n"},
		{"root/account.yaml", "host: example.com\n"},
	}))
	require.NoError(t, tarDirectory("root", "out.tar.gz"))

	f, err := fs.Open("out.tar.gz")
	require.NoError(t, err)
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gzr)

	contents := map[string]string{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		bytes, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[header.Name] = string(bytes)
	}

	assert.Equal(t, map[string]string{
		"syncbox-bug-info":              "",
		"syncbox-bug-info/account.yaml": "host: example.com\n",
		"syncbox-bug-info/version":      "version: dev\n",
	}, contents)
}

func setupFiles(files []file) error {
	for _, f := range files {
		if err := afero.WriteFile(fs, f.path, []byte(f.contents), 0644); err != nil {
			return err
		}
	}
	return nil
}

func assertFiles(t *testing.T, files []file) {
	for _, f := range files {
		contents, err := afero.ReadFile(fs, f.path)
		assert.NoError(t, err, f.path)
		assert.Equal(t, f.contents, string(contents), f.path)
	}
}
