package config

import (
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

const (
	// AccountConfigPath is the default path to the account config.
	AccountConfigPath = "~/.syncbox/account.yaml"

	// InitialAccountConfigVersion is the first version of the account
	// config. Config files that do not specify a version default to it.
	InitialAccountConfigVersion = "1.0"

	// SupportedAccountConfigVersion is the version written by this binary.
	SupportedAccountConfigVersion = "1.0"

	// DefaultKeepAliveSeconds is used when the account doesn't set an
	// interval.
	DefaultKeepAliveSeconds = 30

	// DefaultTimeoutSeconds is the default dial and IO timeout.
	DefaultTimeoutSeconds = 30
)

// Protocol is the wire protocol of an account.
type Protocol string

// Supported protocols.
const (
	FTP  Protocol = "ftp"
	FTPS Protocol = "ftps"
	SFTP Protocol = "sftp"
)

// FTPS modes.
const (
	FTPSExplicit = "explicit"
	FTPSImplicit = "implicit"
)

// Account describes a remote server and the local folder synced with it.
type Account struct {
	Version string `json:"version,omitempty"`

	Host     string   `json:"host"`
	Port     int      `json:"port,omitempty"`
	Protocol Protocol `json:"protocol"`

	// FTPSMode is either "explicit" or "implicit". It's only used when
	// Protocol is ftps.
	FTPSMode string `json:"ftpsMode,omitempty"`

	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	PrivateKeyFile string `json:"privateKeyFile,omitempty"`

	RemotePath string `json:"remotePath,omitempty"`
	LocalPath  string `json:"localPath"`

	// KeepAliveSeconds is the interval between no-ops. A negative value
	// disables keep-alive.
	KeepAliveSeconds int `json:"keepAliveSeconds,omitempty"`
	TimeoutSeconds   int `json:"timeoutSeconds,omitempty"`

	TempPrefix        string `json:"tempPrefix,omitempty"`
	UploadLimitKBps   int    `json:"uploadLimitKBps,omitempty"`
	DownloadLimitKBps int    `json:"downloadLimitKBps,omitempty"`

	// Ignore is a list of glob patterns matched against item names and
	// paths relative to the sync root.
	Ignore []string `json:"ignore,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

func (a Account) getVersion() string {
	return a.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseAccount attempts to parse the Account stored in the default path.
func ParseAccount() (Account, error) {
	path, err := GetAccountConfigPath()
	if err != nil {
		return Account{}, errors.WithContext(err, "expand config path")
	}

	config := Account{Version: InitialAccountConfigVersion}
	if err := parseConfig(path, &config, SupportedVersions); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Account{}, errors.NewFriendlyError("The syncbox account "+
				"config file doesn't exist at %q. Please run `syncbox config` "+
				"to create it.", path)
		}
		return Account{}, errors.WithContext(err, "parse")
	}

	config.LocalPath, err = homedir.Expand(config.LocalPath)
	if err != nil {
		return Account{}, errors.WithContext(err, "expand local path")
	}

	// Evaluate relative paths relative to the config path.
	if config.LocalPath != "" && !filepath.IsAbs(config.LocalPath) {
		config.LocalPath = filepath.Join(filepath.Dir(path), config.LocalPath)
	}

	config.PrivateKeyFile, err = homedir.Expand(config.PrivateKeyFile)
	if err != nil {
		return Account{}, errors.WithContext(err, "expand private key path")
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return Account{}, err
	}
	return config, nil
}

// WriteAccount writes the given account config to disk.
func WriteAccount(cfg Account) error {
	cfg.Version = SupportedAccountConfigVersion
	path, err := GetAccountConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}
	return writeConfig(path, cfg)
}

// GetAccountConfigPath returns the path to the account configuration. This
// path is expanded, so it can be directly passed to file operations.
func GetAccountConfigPath() (string, error) {
	return homedirExpand(AccountConfigPath)
}

func (a *Account) applyDefaults() {
	a.Protocol = Protocol(strings.ToLower(string(a.Protocol)))
	if a.Protocol == "" {
		a.Protocol = FTP
	}
	if a.Protocol == FTPS && a.FTPSMode == "" {
		a.FTPSMode = FTPSExplicit
	}
	if a.KeepAliveSeconds == 0 {
		a.KeepAliveSeconds = DefaultKeepAliveSeconds
	}
	if a.TimeoutSeconds <= 0 {
		a.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if a.TempPrefix == "" {
		a.TempPrefix = remote.DefaultTempPrefix
	}
}

// Validate checks that the fields required to connect are set.
func (a Account) Validate() error {
	switch {
	case a.Host == "":
		return errors.MissingFieldError{Field: "host"}
	case a.Username == "":
		return errors.MissingFieldError{Field: "username"}
	case a.LocalPath == "":
		return errors.MissingFieldError{Field: "localPath"}
	}

	switch a.Protocol {
	case FTP, SFTP:
	case FTPS:
		if a.FTPSMode != FTPSExplicit && a.FTPSMode != FTPSImplicit {
			return errors.NewFriendlyError(
				"Unknown ftpsMode %q. Expected %q or %q.",
				a.FTPSMode, FTPSExplicit, FTPSImplicit)
		}
	default:
		return errors.NewFriendlyError(
			"Unknown protocol %q. Expected one of ftp, ftps, or sftp.", a.Protocol)
	}
	return nil
}

// Timeout returns the dial and IO timeout.
func (a Account) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ToSessionConfig returns the settings of the remote session for the account.
func (a Account) ToSessionConfig() remote.Config {
	cfg := remote.Config{
		Host:              a.Host,
		RemotePath:        a.RemotePath,
		TempPrefix:        a.TempPrefix,
		UploadLimitKBps:   a.UploadLimitKBps,
		DownloadLimitKBps: a.DownloadLimitKBps,
		Debug:             a.Debug,
	}
	if a.KeepAliveSeconds > 0 {
		cfg.KeepAlive = time.Duration(a.KeepAliveSeconds) * time.Second
	}
	return cfg
}
