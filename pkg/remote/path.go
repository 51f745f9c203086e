package remote

import (
	"path"
	"strings"
)

// isDefaultRoot returns whether dir refers to the directory the server puts
// the user in after logging in.
func isDefaultRoot(dir string) bool {
	dir = strings.TrimSpace(dir)
	return dir == "" || dir == "/" || dir == "."
}

// CommonPath converts an absolute remote path into a path relative to root.
// The root itself maps to "". Paths outside of root are returned without
// their leading slash. ".." segments are resolved first, so the result never
// points above the path it's later joined to.
func CommonPath(root, p string) string {
	p = path.Clean("/" + p)
	root = path.Clean("/" + root)

	switch {
	case root == "/":
	case p == root:
		return ""
	case strings.HasPrefix(p, root+"/"):
		p = p[len(root):]
	}
	return strings.Trim(p, "/")
}

// below returns whether the cleaned absolute path p is inside dir.
func below(dir, p string) bool {
	dir = path.Clean("/" + dir)
	if dir == "/" {
		return p != "/" && strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, dir+"/")
}

// absPath resolves a path relative to root into an absolute remote path.
func absPath(root, commonPath string) string {
	if root == "" {
		root = "/"
	}
	return path.Join(root, strings.TrimPrefix(commonPath, "/"))
}

// entryPath returns the cleaned absolute path of an entry listed in
// listDir. It only depends on its arguments, so it gives the same answer no
// matter what the transport's working directory is when it's called.
func entryPath(listDir string, e Entry) string {
	raw := e.Path
	switch {
	case raw == "":
		raw = listDir + "/" + e.Name
	case strings.HasPrefix(raw, "./"):
		raw = listDir + "/" + raw[2:]
	case !strings.HasPrefix(raw, "/"):
		raw = listDir + "/" + raw
	}
	return path.Clean(raw)
}
