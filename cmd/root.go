package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/cmd/bugtool"
	configCmd "github.com/sidkik/syncbox/cmd/config"
	"github.com/sidkik/syncbox/cmd/ls"
	"github.com/sidkik/syncbox/cmd/transfer"
	"github.com/sidkik/syncbox/cmd/trust"
	"github.com/sidkik/syncbox/cmd/util"
	"github.com/sidkik/syncbox/cmd/version"
	"github.com/sidkik/syncbox/cmd/watch"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "SYNCBOX_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "syncbox",
		Short:        "Sync a local folder with an FTP, FTPS, or SFTP server",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		bugtool.New(),
		configCmd.New(),
		ls.New(),
		transfer.NewPush(),
		transfer.NewPull(),
		trust.New(),
		version.New(),
		watch.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
