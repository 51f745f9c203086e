package util

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/connect"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
	"github.com/sidkik/syncbox/pkg/sync"
	"github.com/sidkik/syncbox/pkg/trust"
)

// Mocked for unit testing.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
	exit             = os.Exit

	readPassword = func() ([]byte, error) {
		return term.ReadPassword(int(os.Stdin.Fd()))
	}
	isTerminal = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd()))
	}

	parseAccount   = config.ParseAccount
	loadTrustStore = trust.LoadDefault
	connectSession = func(ctx context.Context, s *remote.Session) error {
		return s.Connect(ctx, false)
	}
)

// HandleFatalError prints the error and exits. Friendly errors are printed
// without their context.
func HandleFatalError(err error) {
	if msg, ok := errors.GetFriendlyMessage(err); ok {
		fmt.Fprintln(stderr, msg)
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs the panic and re-panics.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).Error("Unexpected panic")
		panic(r)
	}
}

// PromptTrust shows the server's identity and asks the user whether to
// trust it. It never trusts anything when stdin isn't a terminal.
func PromptTrust(cert remote.CertificateInfo) bool {
	if !isTerminal() {
		fmt.Fprintf(stderr, "Refusing to trust unknown server %s without a terminal.\n",
			cert.Fingerprint)
		return false
	}

	fmt.Fprintln(stdout, "The server presented an identity that isn't trusted yet:")
	fmt.Fprint(stdout, FormatCertificate(cert))
	fmt.Fprint(stdout, "Trust this server? [y/N]: ")

	resp, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && resp == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// FormatCertificate returns a multi-line description of the identity.
func FormatCertificate(cert remote.CertificateInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Fingerprint: %s\n", cert.Fingerprint)
	if cert.Key != "" {
		fmt.Fprintf(&b, "  Key:         %s (%d bits)\n", cert.Key, cert.KeySize)
	}
	if cert.Issuer != "" {
		fmt.Fprintf(&b, "  Issuer:      %s\n", cert.Issuer)
	}
	if cert.SerialNumber != "" {
		fmt.Fprintf(&b, "  Serial:      %s\n", cert.SerialNumber)
	}
	if cert.Algorithm != "" {
		fmt.Fprintf(&b, "  Algorithm:   %s\n", cert.Algorithm)
	}
	if !cert.ValidFrom.IsZero() {
		fmt.Fprintf(&b, "  Valid:       %s to %s\n",
			cert.ValidFrom.Format("2006-01-02"), cert.ValidTo.Format("2006-01-02"))
	}
	return b.String()
}

// PromptPassword reads a password without echoing it.
func PromptPassword(prompt string) (string, error) {
	if !isTerminal() {
		return "", errors.NewFriendlyError(
			"A password is required, but there's no terminal to prompt for it. " +
				"Set the password in the account config.")
	}

	fmt.Fprintf(stdout, "%s: ", prompt)
	password, err := readPassword()
	fmt.Fprintln(stdout)
	if err != nil {
		return "", errors.WithContext(err, "read password")
	}
	return string(password), nil
}

// Connect parses the account config, and returns a connected session for
// it. The user is prompted for the password if the account needs one and
// doesn't set it.
func Connect(ctx context.Context, opts ...remote.Option) (
	*remote.Session, config.Account, sync.Ignore, error) {

	account, err := parseAccount()
	if err != nil {
		return nil, config.Account{}, sync.Ignore{}, errors.WithContext(err, "parse account config")
	}

	if account.Password == "" && account.PrivateKeyFile == "" {
		prompt := fmt.Sprintf("Password for %s@%s", account.Username, account.Host)
		if account.Password, err = PromptPassword(prompt); err != nil {
			return nil, config.Account{}, sync.Ignore{}, err
		}
	}

	store, err := loadTrustStore(account.Host)
	if err != nil {
		return nil, config.Account{}, sync.Ignore{}, errors.WithContext(err, "load trust store")
	}

	if account.Debug {
		log.SetLevel(log.DebugLevel)
	}

	opts = append([]remote.Option{remote.WithValidator(PromptTrust)}, opts...)
	session, ignore, err := connect.NewSession(account, store, opts...)
	if err != nil {
		return nil, config.Account{}, sync.Ignore{}, err
	}

	if err := connectSession(ctx, session); err != nil {
		return nil, config.Account{}, sync.Ignore{}, err
	}
	return session, account, ignore, nil
}

// PrintProgress returns an observer that prints a line to w as each
// transfer completes, and logs connection problems.
func PrintProgress(w io.Writer) remote.Observer {
	return remote.ObserverFuncs{
		Progress: func(p remote.TransferProgress) {
			if p.Item.SkipNotification || p.TotalTransferred < p.Item.Item.Size {
				return
			}
			fmt.Fprintf(w, "%-8s %s (%s, %s)\n", p.Item.Direction, p.Item.CommonPath,
				remote.FormatSize(p.TotalTransferred), p.RateString())
		},
		ConnectionClosed: func(reason string) {
			log.WithField("reason", reason).Warn("Connection to the server was closed")
		},
		ReconnectFailed: func(err error) {
			log.WithError(err).Error("Failed to reconnect to the server")
		},
	}
}
