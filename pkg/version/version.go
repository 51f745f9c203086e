// Package version holds the release version of syncbox.
package version

// EmptyValue is the version of binaries that weren't built by the release
// build, such as `go test` binaries.
const EmptyValue = "set-by-make"

// Version is overridden at build time with
// -ldflags "-X github.com/sidkik/syncbox/pkg/version.Version=<tag>".
var Version = EmptyValue
