package ls

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/cmd/util"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

// Mocked for unit testing.
var (
	stdout  io.Writer = os.Stdout
	connect           = util.Connect
)

// New creates a new `ls` command.
func New() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List files on the server",
		Long: "List the files and folders in a folder on the server. The path is\n" +
			"relative to the configured remote folder.",
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			var p string
			if len(args) == 1 {
				p = args[0]
			}

			session, _, _, err := connect(context.Background())
			if err != nil {
				util.HandleFatalError(errors.WithContext(err, "connect"))
			}
			defer session.Disconnect()

			if err := run(session, p, recursive, stdout); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false,
		"List the contents of subfolders as well")
	return cmd
}

func run(client remote.Client, p string, recursive bool, w io.Writer) error {
	var items []remote.ClientItem
	if recursive {
		for item := range client.ListRecursive(p, true) {
			items = append(items, item)
		}
	} else {
		items = client.List(p, true)
	}
	if client.ListingFailed() {
		return errors.NewFriendlyError("Failed to list %q on the server.", p)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSIZE\tMODIFIED\tPATH")
	for _, item := range items {
		size := "-"
		if item.Type == remote.File {
			size = remote.FormatSize(item.Size)
		}

		modified := "-"
		if !item.LastModified.IsZero() {
			modified = item.LastModified.Format("2006-01-02 15:04")
		}

		name := item.Name
		if recursive {
			name = item.FullPath
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.Type, size, modified, name)
	}
	return tw.Flush()
}
