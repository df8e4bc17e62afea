// Package workspacefs is the filesystem browsing module: directory
// listings and file retrieval for the served workspace tree, with
// per-account visibility filtering.
package workspacefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/workbench/internal/api"
	"github.com/hashicorp-forge/workbench/internal/editor"
	"github.com/hashicorp-forge/workbench/internal/workspace"
)

// ModuleName is the fixed name the module is mounted under.
const ModuleName = "workspace"

// TypeHeader carries the resource kind ("directory" or "file") of
// every successful response from this module.
const TypeHeader = "X-Workbench-Type"

// Module serves the workspace tree. It implements api.Getter and
// api.Poster.
type Module struct {
	fs       afero.Fs
	resolver *workspace.Resolver
	withDot  bool
	opener   editor.Opener
	log      hclog.Logger
}

var (
	_ api.Getter = (*Module)(nil)
	_ api.Poster = (*Module)(nil)
)

// New builds the module.
func New(
	fs afero.Fs,
	resolver *workspace.Resolver,
	withDot bool,
	opener editor.Opener,
	log hclog.Logger,
) *Module {
	return &Module{
		fs:       fs,
		resolver: resolver,
		withDot:  withDot,
		opener:   opener,
		log:      log,
	}
}

// Name returns the module's mount name.
func (m *Module) Name() string {
	return ModuleName
}

// Get lists a directory or returns a file's content.
func (m *Module) Get(ctx context.Context, c *api.Context) error {
	abs, info, done, err := m.locate(c)
	if done || err != nil {
		return err
	}

	if info.IsDir() {
		return m.listDirectory(ctx, c, abs)
	}
	return m.serveFile(ctx, c, abs, info)
}

// Post opens a file in the user's editor. It never returns file
// content; the envelope code reports whether the open action worked.
func (m *Module) Post(ctx context.Context, c *api.Context) error {
	abs, info, done, err := m.locate(c)
	if done || err != nil {
		return err
	}

	if info.IsDir() {
		c.MethodNotAllowed()
		return nil
	}

	visible, err := m.fileVisible(ctx, c, abs)
	if err != nil {
		return err
	}
	if !visible {
		c.NotFound()
		return nil
	}

	c.SetHeader(TypeHeader, "file")
	if err := m.opener.Open(ctx, abs); err != nil {
		m.log.Warn("error opening file in editor", "path", abs, "error", err)
		c.SetResponse(api.Response{Code: 1, Msg: "could not open file"})
		return nil
	}
	c.SetResponse(api.Response{Code: 0})
	return nil
}

// locate resolves the request path and stats it. done is true when a
// terminal state (404) has already been set on the context. Escape
// attempts read as ordinary not-found so nothing about out-of-root
// paths is disclosed.
func (m *Module) locate(c *api.Context) (string, os.FileInfo, bool, error) {
	raw := strings.Join(c.Request.Segments, "/")

	abs, err := m.resolver.Resolve(raw)
	if err != nil {
		c.NotFound()
		return "", nil, true, nil
	}

	info, err := m.fs.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			c.NotFound()
			return "", nil, true, nil
		}
		return "", nil, false, fmt.Errorf("error reading %q: %w", abs, err)
	}

	switch {
	case info.IsDir():
		// A dotted directory is hidden outright when with_dot is off,
		// regardless of verb.
		if m.hiddenName(filepath.Base(abs)) && abs != m.resolver.Root() {
			c.NotFound()
			return "", nil, true, nil
		}
	case info.Mode().IsRegular():
	default:
		// Sockets, devices and other specials are not served.
		c.NotFound()
		return "", nil, true, nil
	}

	return abs, info, false, nil
}

// serveFile responds with the file's full content and detected MIME
// type.
func (m *Module) serveFile(
	ctx context.Context, c *api.Context, abs string, info os.FileInfo,
) error {
	visible, err := m.fileVisible(ctx, c, abs)
	if err != nil {
		return err
	}
	if !visible {
		c.NotFound()
		return nil
	}

	content, err := afero.ReadFile(m.fs, abs)
	if err != nil {
		return fmt.Errorf("error reading %q: %w", abs, err)
	}

	c.SetHeader(TypeHeader, "file")
	c.SetRaw(content, workspace.DetectMimeType(info.Name()))
	return nil
}

func (m *Module) fileVisible(
	ctx context.Context, c *api.Context, abs string,
) (bool, error) {
	rel, err := m.resolver.Rel(abs)
	if err != nil {
		return false, err
	}
	return c.Request.User.IsFileVisible(ctx, rel)
}

func (m *Module) hiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && !m.withDot
}
