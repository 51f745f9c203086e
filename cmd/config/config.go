package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/cmd/util"
	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseAccount                  = config.ParseAccount
	writeAccount                  = config.WriteAccount
	getAccountPath                = config.GetAccountConfigPath
	getWorkingDirectory           = os.Getwd
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.Account
	var protocol string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the syncbox account configuration",
		Run: func(_ *cobra.Command, _ []string) {
			cliOpts.Protocol = config.Protocol(protocol)
			if err := SetupConfig(cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.Host, "host", "",
		"Set the server host. "+
			"Optional: If not set, `syncbox config` will interactively prompt.")
	cmd.Flags().StringVar(&protocol, "protocol", "",
		"Set the protocol (ftp, ftps, or sftp). "+
			"Optional: If not set, `syncbox config` will interactively prompt.")
	cmd.Flags().IntVar(&cliOpts.Port, "port", 0,
		"Set the server port. Defaults to the standard port of the protocol.")
	cmd.Flags().StringVar(&cliOpts.Username, "username", "",
		"Set the username. "+
			"Optional: If not set, `syncbox config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.PrivateKeyFile, "private-key", "",
		"Set the private key used for sftp authentication.")
	cmd.Flags().StringVar(&cliOpts.LocalPath, "local-path", "",
		"Set the local folder to sync. "+
			"Optional: If not set, `syncbox config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.RemotePath, "remote-path", "",
		"Set the remote folder to sync. "+
			"Optional: If not set, `syncbox config` will interactively prompt.")

	// Setup the commands for querying the contents of the account config.
	type getterSpec struct {
		use, short string
		fn         func(config.Account) string
	}

	getters := []getterSpec{
		{
			use:   "get-host",
			short: "Get the configured server",
			fn:    func(cfg config.Account) string { return cfg.Host },
		},
		{
			use:   "get-local-path",
			short: "Get the configured local folder",
			fn:    func(cfg config.Account) string { return cfg.LocalPath },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseAccount()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig prompts for the fields missing from cliOpts and writes the
// account config.
func SetupConfig(cliOpts config.Account) error {
	cfg, err := generateConfig(cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeAccount(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := getAccountPath()
	if err != nil {
		return errors.WithContext(err, "get account config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func protocolValidationFn(protocol string) (string, bool) {
	switch config.Protocol(strings.ToLower(protocol)) {
	case config.FTP, config.FTPS, config.SFTP:
		return "", true
	default:
		return "The protocol must be one of ftp, ftps, or sftp.", false
	}
}

func nonEmptyValidationFn(resp string) (string, bool) {
	if strings.TrimSpace(resp) == "" {
		return "This field is required.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is. Fields that aren't prompted for are carried over from
// the current config.
func generateConfig(cliOpts config.Account) (config.Account, error) {
	currConfig, err := parseAccount()
	if err != nil {
		currConfig = config.Account{}
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := currConfig
	cfg.Version = ""
	mergeFlags(&cfg, cliOpts)

	var prompts []prompt
	protocol := string(cliOpts.Protocol)
	if protocol == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the protocol used to connect to the server (ftp, ftps, or sftp).",
			prompt:        "Protocol",
			defaultAnswer: string(config.SFTP),
			currAnswer:    string(currConfig.Protocol),
			field:         &protocol,
			validationFn:  protocolValidationFn,
		})
	}

	if cliOpts.Host == "" {
		prompts = append(prompts, prompt{
			helpString:   "Enter the hostname or IP address of the server.",
			prompt:       "Host",
			currAnswer:   currConfig.Host,
			field:        &cfg.Host,
			validationFn: nonEmptyValidationFn,
		})
	}

	if cliOpts.Username == "" {
		prompts = append(prompts, prompt{
			helpString:   "Enter the username to log in with.",
			prompt:       "Username",
			currAnswer:   currConfig.Username,
			field:        &cfg.Username,
			validationFn: nonEmptyValidationFn,
		})
	}

	if cliOpts.LocalPath == "" {
		defaultLocalPath, err := getWorkingDirectory()
		if err != nil {
			log.WithError(err).Info("Failed to guess local path")
			defaultLocalPath = ""
		}

		prompts = append(prompts, prompt{
			helpString: "Enter the path to the local folder to sync.\n" +
				"It defaults to the current directory.",
			prompt:        "Local folder",
			defaultAnswer: defaultLocalPath,
			currAnswer:    currConfig.LocalPath,
			field:         &cfg.LocalPath,
			validationFn:  nonEmptyValidationFn,
		})
	}

	if cliOpts.RemotePath == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the remote folder to sync.\n" +
				"It defaults to the folder the server logs you into.",
			prompt:        "Remote folder",
			defaultAnswer: "/",
			currAnswer:    currConfig.RemotePath,
			field:         &cfg.RemotePath,
		})
	}

	stdinReader := bufio.NewReader(stdin)
	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(stdinReader, prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Account{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	cfg.Protocol = config.Protocol(strings.ToLower(protocol))
	return cfg, nil
}

func mergeFlags(cfg *config.Account, cliOpts config.Account) {
	if cliOpts.Host != "" {
		cfg.Host = cliOpts.Host
	}
	if cliOpts.Port != 0 {
		cfg.Port = cliOpts.Port
	}
	if cliOpts.Username != "" {
		cfg.Username = cliOpts.Username
	}
	if cliOpts.PrivateKeyFile != "" {
		cfg.PrivateKeyFile = cliOpts.PrivateKeyFile
	}
	if cliOpts.LocalPath != "" {
		cfg.LocalPath = cliOpts.LocalPath
	}
	if cliOpts.RemotePath != "" {
		cfg.RemotePath = cliOpts.RemotePath
	}
}

func promptUser(stdinReader *bufio.Reader, helpString, prompt, defaultAnswer,
	currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil && resp == "" {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}
