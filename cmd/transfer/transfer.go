package transfer

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/cmd/util"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
	"github.com/sidkik/syncbox/pkg/sync"
)

// Mocked for unit testing.
var (
	stdout  io.Writer = os.Stdout
	connect           = util.Connect
)

// NewPush creates a new `push` command.
func NewPush() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload new and changed local files to the server",
		Long: "Upload the files in the local folder that are missing on the server,\n" +
			"or whose size differs. Nothing is deleted on either side.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), remote.Upload); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

// NewPull creates a new `pull` command.
func NewPull() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download new and changed remote files to the local folder",
		Long: "Download the files on the server that are missing locally, or whose\n" +
			"size differs. Replaced local files are moved to the trash.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(context.Background(), remote.Download); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run(ctx context.Context, direction remote.Direction) error {
	syncer := &sync.Syncer{Log: log.StandardLogger()}
	session, account, ignore, err := connect(ctx,
		remote.WithSyncInProgress(syncer.InProgress))
	if err != nil {
		return errors.WithContext(err, "connect")
	}
	defer session.Disconnect()

	unsubscribe := session.Subscribe(util.PrintProgress(stdout))
	defer unsubscribe()

	syncer.Client = session
	syncer.Root = account.LocalPath
	syncer.Ignore = ignore
	return runPass(syncer, direction)
}

func runPass(syncer *sync.Syncer, direction remote.Direction) error {
	var res sync.Result
	var err error
	if direction == remote.Upload {
		res, err = syncer.Push()
	} else {
		res, err = syncer.Pull()
	}
	if err != nil {
		return errors.WithContext(err, direction.String())
	}

	fmt.Fprintf(stdout, "Copied %d files, created %d folders.\n", res.Transferred, res.Folders)
	if res.Failed > 0 {
		return errors.NewFriendlyError("%d of %d operations failed. "+
			"Run with SYNCBOX_LOG_VERBOSE=true for details.",
			res.Failed, res.Failed+res.Transferred+res.Folders)
	}
	return nil
}
