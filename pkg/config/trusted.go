package config

import (
	"time"

	"github.com/sidkik/syncbox/pkg/errors"
)

const (
	// TrustedConfigPath is the default path to the trusted server list.
	TrustedConfigPath = "~/.syncbox/trusted.yaml"

	// SupportedTrustedConfigVersion is the version written by this binary.
	SupportedTrustedConfigVersion = "1.0"
)

// Trusted is the list of server identities the user has accepted.
type Trusted struct {
	Version string          `json:"version,omitempty"`
	Servers []TrustedServer `json:"servers,omitempty"`
}

// TrustedServer is a single accepted certificate or host key.
type TrustedServer struct {
	Fingerprint string    `json:"fingerprint"`
	Host        string    `json:"host,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}

func (t Trusted) getVersion() string {
	return t.Version
}

// ParseTrusted parses the trusted server list at path. A missing file is an
// empty list.
func ParseTrusted(path string) (Trusted, error) {
	config := Trusted{Version: SupportedTrustedConfigVersion}
	if err := parseConfig(path, &config, SupportedVersions); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Trusted{Version: SupportedTrustedConfigVersion}, nil
		}
		return Trusted{}, errors.WithContext(err, "parse")
	}
	return config, nil
}

// WriteTrusted writes the trusted server list to path.
func WriteTrusted(path string, cfg Trusted) error {
	cfg.Version = SupportedTrustedConfigVersion
	return writeConfig(path, cfg)
}

// GetTrustedConfigPath returns the expanded path to the trusted server list.
func GetTrustedConfigPath() (string, error) {
	return homedirExpand(TrustedConfigPath)
}
