package bugtool

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/syncbox/cmd/util"
	"github.com/sidkik/syncbox/pkg/config"
	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/trash"
	"github.com/sidkik/syncbox/pkg/trust"
	"github.com/sidkik/syncbox/pkg/version"
)

const redacted = "<redacted>"

// Mocked for unit testing.
var (
	fs           = afero.NewOsFs()
	parseAccount = config.ParseAccount
	loadTrust    = func() (*trust.Store, error) {
		return trust.LoadDefault("")
	}
	openTrash = trash.NewDefault
)

// New creates a new `bug-tool` command.
func New() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "bug-tool",
		Short: "Generate an archive for debugging syncbox",
		Run:   func(_ *cobra.Command, _ []string) { main(out) },
	}
	cmd.Flags().StringVar(&out, "out", "", "path for archive")
	return cmd
}

func main(out string) {
	tmpdir, err := afero.TempDir(fs, "", "syncbox-bug-tool")
	if err != nil {
		err = errors.NewFriendlyError("Failed to create out directory:\n%s", err)
		util.HandleFatalError(err)
	}

	// Wrap defer in a function to handle errors from fs.RemoveAll().
	defer func() {
		err := fs.RemoveAll(tmpdir)
		if err != nil {
			util.HandleFatalError(err)
		}
	}()

	setupInfo(tmpdir)

	if out == "" {
		out = fmt.Sprintf("syncbox-bug-info-%s.tar.gz",
			time.Now().Format("Jan_02_2006-15-04-05"))
	}
	if err := tarDirectory(tmpdir, out); err != nil {
		err = errors.NewFriendlyError("Failed to tar:\n%s", err)
		util.HandleFatalError(err)
	}

	msg := `Created bug information archive at '%s'.
Passwords are removed, but you may want to review the archive before sharing it.
The archive contains:
 * The version of syncbox.
 * The account config.
 * The trusted server fingerprints.
 * The list of files in the trash.
`
	fmt.Printf(msg, out)
}

func setupInfo(root string) {
	if err := setupVersion(root); err != nil {
		log.WithError(err).Warn("Failed to setup version info")
	}

	if err := setupAccount(root); err != nil {
		log.WithError(err).Warn("Failed to setup account config")
	}

	if err := setupTrust(root); err != nil {
		log.WithError(err).Warn("Failed to setup trusted servers")
	}

	if err := setupTrash(root); err != nil {
		log.WithError(err).Warn("Failed to setup trash listing")
	}
}

func setupVersion(root string) error {
	contents := fmt.Sprintf("version: %s\ngo: %s\nplatform: %s/%s\n",
		version.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if err := afero.WriteFile(fs, filepath.Join(root, "version"), []byte(contents), 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

func setupAccount(root string) error {
	account, err := parseAccount()
	if err != nil {
		// Record why the config couldn't be parsed, since that's often the bug.
		msg := []byte(err.Error() + "\n")
		if err := afero.WriteFile(fs, filepath.Join(root, "account-error"), msg, 0644); err != nil {
			return errors.WithContext(err, "write")
		}
		return nil
	}

	if account.Password != "" {
		account.Password = redacted
	}
	return writeYAML(filepath.Join(root, "account.yaml"), account)
}

func setupTrust(root string) error {
	store, err := loadTrust()
	if err != nil {
		return errors.WithContext(err, "load trust store")
	}
	return writeYAML(filepath.Join(root, "trusted.yaml"), store.List())
}

func setupTrash(root string) error {
	bin, err := openTrash()
	if err != nil {
		return errors.WithContext(err, "open trash")
	}

	entries, err := bin.List()
	if err != nil {
		return errors.WithContext(err, "list trash")
	}
	return writeYAML(filepath.Join(root, "trash.yaml"), entries)
}

func writeYAML(path string, obj interface{}) error {
	bytes, err := yaml.Marshal(obj)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to marshal")
		bytes = []byte(fmt.Sprintf("%+v\n", obj))
	}

	if err := afero.WriteFile(fs, path, bytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

func tarDirectory(src, outPath string) error {
	out, err := fs.Create(outPath)
	if err != nil {
		return errors.WithContext(err, "open destination")
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	return afero.Walk(fs, src, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(fi, fi.Name())
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("make header %s", file))
		}

		relPath, err := filepath.Rel(src, file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("get relative path of %s to %s", file, src))
		}

		header.Name = filepath.Join("syncbox-bug-info", relPath)
		if err := tw.WriteHeader(header); err != nil {
			return errors.WithContext(err, fmt.Sprintf("write %s header", file))
		}

		// Only write contents if it's a file (i.e. not a directory).
		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := fs.Open(file)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("open %s", file))
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return errors.WithContext(err, fmt.Sprintf("copy %s", file))
		}
		return nil
	})
}
