package watch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/cmd/util"
	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/fswatch"
	"github.com/sidkik/syncbox/pkg/metrics"
	"github.com/sidkik/syncbox/pkg/remote"
	"github.com/sidkik/syncbox/pkg/sync"
)

// The interval to poll the server for changes. Local changes are pushed
// as soon as they're noticed.
const pollSeconds = 15

// Mocked for unit testing.
var (
	stdout       io.Writer = os.Stdout
	parseAccount           = config.ParseAccount
	connect                = util.Connect
	watchFiles             = fswatch.Watch
)

// New creates a new `watch` command.
func New() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the local folder and the server in sync",
		Long: "Push local changes to the server as they happen, and pull remote\n" +
			"changes every " + fmt.Sprint(pollSeconds) + " seconds. Runs until interrupted.",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if metricsAddr != "" {
				go serveMetrics(metricsAddr)
			}

			if err := run(ctx); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics at this address, e.g. localhost:9090")
	return cmd
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.WithField("address", addr).Info("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("Metrics server stopped")
	}
}

func run(ctx context.Context) error {
	account, err := parseAccount()
	if err != nil {
		return errors.WithContext(err, "parse account config")
	}

	ignore, err := sync.NewIgnore(account.Ignore, account.TempPrefix)
	if err != nil {
		return errors.WithContext(err, "parse ignore rules")
	}

	var changes <-chan struct{}
	opts := []remote.Option{}
	watcher, err := watchFiles(account.LocalPath, ignore)
	switch {
	case err == nil:
		defer watcher.Close()
		changes = watcher.Changes()
		opts = append(opts, remote.WithWatcher(watcher))
	case strings.Contains(errors.RootCause(err).Error(), "too many open files"):
		log.Warnf("Too many files to automatically watch for changes. "+
			"syncbox will poll for local changes every %d seconds instead.", pollSeconds)
	default:
		if dneErr, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			return errors.NewFriendlyError("The local folder %q doesn't exist.\n\n"+
				"Is the localPath in %q correct?", dneErr.Path, config.AccountConfigPath)
		}
		return errors.WithContext(err, "watch files")
	}

	syncer := &sync.Syncer{Log: log.StandardLogger()}
	opts = append(opts, remote.WithSyncInProgress(syncer.InProgress))
	session, _, _, err := connect(ctx, opts...)
	if err != nil {
		return errors.WithContext(err, "connect")
	}
	defer session.Disconnect()

	defer session.Subscribe(util.PrintProgress(stdout))()
	defer session.Subscribe(remote.ObserverFuncs{
		ConnectionClosed: func(reason string) {
			printStatus(goterm.RED, "Disconnected: %s", reason)
		},
		ReconnectFailed: func(err error) {
			printStatus(goterm.RED, "Reconnect failed: %s", err)
		},
	})()

	syncer.Client = session
	syncer.Root = account.LocalPath
	syncer.Ignore = ignore

	ticker := time.NewTicker(pollSeconds * time.Second)
	defer ticker.Stop()

	printStatus(goterm.GREEN, "Watching %s. Press Ctrl-C to stop.", account.LocalPath)
	l := loop{
		syncer:    syncer,
		connected: func() bool { return session.State() == remote.Connected },
		changes:   changes,
		poll:      ticker.C,
	}
	l.run(ctx)
	return nil
}

type loop struct {
	syncer    *sync.Syncer
	connected func() bool

	// changes is nil when local changes are only noticed by polling.
	changes <-chan struct{}
	poll    <-chan time.Time
}

func (l loop) run(ctx context.Context) {
	l.pass(remote.Download)
	l.pass(remote.Upload)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.changes:
			l.pass(remote.Upload)
		case <-l.poll:
			l.pass(remote.Download)
			l.pass(remote.Upload)
		}
	}
}

func (l loop) pass(direction remote.Direction) {
	if !l.connected() {
		log.WithField("direction", direction).Debug("Skipping sync while disconnected")
		return
	}

	var res sync.Result
	var err error
	if direction == remote.Upload {
		res, err = l.syncer.Push()
	} else {
		res, err = l.syncer.Pull()
	}
	if err != nil {
		log.WithError(err).WithField("direction", direction).Error("Sync failed")
		return
	}
	if res == (sync.Result{}) {
		return
	}

	color := goterm.GREEN
	if res.Failed > 0 {
		color = goterm.YELLOW
	}
	printStatus(color, "%s: copied %d files, created %d folders, %d failed",
		direction, res.Transferred, res.Folders, res.Failed)
}

func printStatus(color int, format string, args ...interface{}) {
	fmt.Fprintln(stdout, goterm.Color(fmt.Sprintf(format, args...), color))
}
