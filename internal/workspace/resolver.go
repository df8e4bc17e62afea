// Package workspace resolves API paths against the served directory
// tree and answers filename-based MIME queries.
package workspace

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrNotInWorkspace is reported for any path that does not resolve to a
// location inside the workspace root.
var ErrNotInWorkspace = errors.New("path is not inside the workspace")

// Resolver maps raw URL paths onto absolute filesystem paths under a
// fixed workspace root. It performs no filesystem access; escape
// attempts are rejected before any I/O can happen.
type Resolver struct {
	root string
}

// NewResolver returns a resolver rooted at the given absolute directory.
func NewResolver(root string) *Resolver {
	return &Resolver{root: filepath.Clean(root)}
}

// Root returns the workspace root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve turns a raw URL path into an absolute path under the
// workspace root. Separators are canonicalized, each segment is
// percent-decoded, and the joined result is verified to stay inside the
// root. Any path that escapes the root, or that cannot be decoded,
// yields ErrNotInWorkspace.
func (r *Resolver) Resolve(rawPath string) (string, error) {
	rawPath = strings.ReplaceAll(rawPath, "\\", "/")

	var segments []string
	for _, seg := range strings.Split(rawPath, "/") {
		if seg == "" {
			continue
		}
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return "", ErrNotInWorkspace
		}
		segments = append(segments, decoded)
	}

	abs := filepath.Join(r.root, filepath.Join(segments...))

	if _, err := r.Rel(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// Rel returns the workspace-relative, slash-separated form of an
// absolute path, or ErrNotInWorkspace if the path lies outside the
// root.
func (r *Resolver) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return "", ErrNotInWorkspace
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrNotInWorkspace
	}
	return filepath.ToSlash(rel), nil
}
