package trust

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/cmd/util"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/trust"
)

// Mocked for unit testing.
var (
	stdout    io.Writer = os.Stdout
	loadStore           = func() (*trust.Store, error) {
		return trust.LoadDefault("")
	}
)

// New creates a new `trust` command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage the server certificates and host keys you have accepted",
	}
	cmd.AddCommand(newList(), newRemove())
	return cmd
}

func newList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the trusted fingerprints",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := list(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func newRemove() *cobra.Command {
	return &cobra.Command{
		Use:   "remove FINGERPRINT",
		Short: "Stop trusting a fingerprint",
		Long: "Remove a fingerprint from the trusted list. The next connection to the\n" +
			"server will ask whether to trust it again.",
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if err := remove(args[0]); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func list() error {
	store, err := loadStore()
	if err != nil {
		return errors.WithContext(err, "load trust store")
	}

	servers := store.List()
	if len(servers) == 0 {
		fmt.Fprintln(stdout, "No trusted servers.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tADDED\tFINGERPRINT")
	for _, server := range servers {
		host := server.Host
		if host == "" {
			host = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", host,
			server.AddedAt.Format("2006-01-02"), server.Fingerprint)
	}
	return tw.Flush()
}

func remove(fingerprint string) error {
	store, err := loadStore()
	if err != nil {
		return errors.WithContext(err, "load trust store")
	}

	if err := store.Remove(fingerprint); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed %s\n", fingerprint)
	return nil
}
