package version

import (
	"fmt"
	"io"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/version"
)

// Mocked for unit testing.
var (
	stdout       io.Writer = os.Stdout
	parseAccount           = config.ParseAccount
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of syncbox.",
		Long: "Print the version of syncbox, and the server it's configured\n" +
			"to sync with.",
		Run: func(_ *cobra.Command, _ []string) {
			run()
		},
	}
}

func run() {
	v := version.Version
	if v == version.EmptyValue {
		v = "development build"
	}
	fmt.Fprintf(stdout, "local version: %s (%s)\n", v, runtime.Version())

	account, err := parseAccount()
	if err != nil {
		log.WithError(err).Debug("Failed to parse account config")
		return
	}
	server := fmt.Sprintf("%s://%s", account.Protocol, account.Host)
	if account.Port != 0 {
		server += fmt.Sprintf(":%d", account.Port)
	}
	fmt.Fprintf(stdout, "server:        %s\n", server)
}
