// Package connect builds remote sessions from account configs.
package connect

import (
	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
	"github.com/sidkik/syncbox/pkg/remote/ftp"
	"github.com/sidkik/syncbox/pkg/remote/sftp"
	"github.com/sidkik/syncbox/pkg/sync"
)

// NewTransport returns a disconnected transport for the account's protocol.
func NewTransport(account config.Account) (remote.Transport, error) {
	switch account.Protocol {
	case config.FTP, config.FTPS:
		mode := ftp.Plain
		if account.Protocol == config.FTPS {
			mode = ftp.Explicit
			if account.FTPSMode == config.FTPSImplicit {
				mode = ftp.Implicit
			}
		}

		return ftp.New(ftp.Config{
			Host:     account.Host,
			Port:     account.Port,
			Username: account.Username,
			Password: account.Password,
			Mode:     mode,
			Timeout:  account.Timeout(),
		}), nil
	case config.SFTP:
		return sftp.New(sftp.Config{
			Host:           account.Host,
			Port:           account.Port,
			Username:       account.Username,
			Password:       account.Password,
			PrivateKeyFile: account.PrivateKeyFile,
			Timeout:        account.Timeout(),
		}), nil
	default:
		return nil, errors.NewFriendlyError(
			"Unknown protocol %q. Expected one of ftp, ftps, or sftp.", account.Protocol)
	}
}

// NewSession returns a disconnected session for the account. The account's
// ignore rules are applied to listings, and fingerprints are checked against
// store. Options in opts take precedence over the ones derived from the
// account.
func NewSession(account config.Account, store remote.TrustStore, opts ...remote.Option) (
	*remote.Session, sync.Ignore, error) {

	transport, err := NewTransport(account)
	if err != nil {
		return nil, sync.Ignore{}, err
	}

	ignore, err := sync.NewIgnore(account.Ignore, account.TempPrefix)
	if err != nil {
		return nil, sync.Ignore{}, err
	}

	opts = append([]remote.Option{
		remote.WithTrustStore(store),
		remote.WithIgnore(ignore.Matches),
	}, opts...)
	return remote.New(account.ToSessionConfig(), transport, opts...), ignore, nil
}
