package sync

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/sidkik/syncbox/pkg/errors"
	"github.com/sidkik/syncbox/pkg/remote"
)

// Names that are never synced, regardless of the user's ignore rules.
var alwaysIgnored = []string{".git", ".DS_Store", "Thumbs.db", "desktop.ini"}

// Ignore decides which paths are left out of a sync.
type Ignore struct {
	// names are matched against every path component, and paths against
	// the whole path relative to the sync root.
	names      []glob.Glob
	paths      []pathRule
	tempPrefix string
}

type pathRule struct {
	pattern string
	glob    glob.Glob
}

// NewIgnore returns an Ignore for the given glob patterns. Patterns without
// a slash match a name anywhere in the tree. Patterns with a slash match a
// path relative to the sync root, along with everything below it. `*`
// doesn't cross slashes, but `**` does. Names starting with tempPrefix are
// always ignored so that half-finished transfers are never synced.
func NewIgnore(patterns []string, tempPrefix string) (Ignore, error) {
	ig := Ignore{tempPrefix: tempPrefix}
	for _, pattern := range patterns {
		isPath := strings.Contains(pattern, "/")
		if isPath {
			pattern = strings.Trim(pattern, "/")
		}
		if pattern == "" {
			continue
		}

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return Ignore{}, errors.NewFriendlyError(
				"Invalid ignore pattern %q: %s", pattern, err)
		}

		if isPath {
			ig.paths = append(ig.paths, pathRule{pattern, g})
		} else {
			ig.names = append(ig.names, g)
		}
	}
	return ig, nil
}

// Matches returns whether the remote item is ignored.
func (ig Ignore) Matches(item remote.ClientItem) bool {
	return ig.MatchesPath(item.FullPath)
}

// MatchesPath returns whether the path, relative to the sync root, is
// ignored. A path is ignored if any of its parents are.
func (ig Ignore) MatchesPath(p string) bool {
	p = strings.Trim(path.Clean(filepath.ToSlash(p)), "/")
	if p == "" || p == "." {
		return false
	}

	for _, name := range strings.Split(p, "/") {
		if ig.ignoredName(name) {
			return true
		}
	}

	for _, rule := range ig.paths {
		if _, ok := matchPattern(p, rule.pattern); ok {
			return true
		}
		if rule.glob.Match(p) {
			return true
		}
	}
	return false
}

func (ig Ignore) ignoredName(name string) bool {
	for _, ignored := range alwaysIgnored {
		if name == ignored {
			return true
		}
	}

	if ig.tempPrefix != "" && strings.HasPrefix(name, ig.tempPrefix) {
		return true
	}

	for _, g := range ig.names {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// matchPattern returns true if `p` is either an exact match, or a child of
// `pattern`.
// For example, `foo`, `foo/bar`, and `foo/bar/baz` match `foo`, but
// `foobar` doesn't.
func matchPattern(p, pattern string) (remaining string, ok bool) {
	if p == pattern {
		return "", true
	}
	if strings.HasPrefix(p, pattern+"/") {
		return strings.TrimPrefix(p, pattern+"/"), true
	}
	return "", false
}
