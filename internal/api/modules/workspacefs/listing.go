package workspacefs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hashicorp-forge/workbench/internal/api"
	"github.com/hashicorp-forge/workbench/internal/workspace"
)

// Entry describes one child of a listed directory.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`

	// Mime and Size are set for files only.
	Mime string `json:"mime,omitempty"`
	Size int64  `json:"size,omitempty"`

	CreationTime     string `json:"creationTime"`
	LastChangeTime   string `json:"lastChangeTime"`
	LastModifiedTime string `json:"lastModifiedTime"`

	Type string `json:"type"`
}

// Listing is the directory listing payload. Parent is absent exactly
// when the listed directory is the workspace root.
type Listing struct {
	Dirs   []Entry `json:"dirs"`
	Files  []Entry `json:"files"`
	Parent string  `json:"parent,omitempty"`
}

// listDirectory enumerates the directory's immediate children and
// responds with the complete listing. Visibility checks run one file
// at a time; any I/O error discards the whole listing.
func (m *Module) listDirectory(
	ctx context.Context, c *api.Context, abs string,
) error {
	children, err := afero.ReadDir(m.fs, abs)
	if err != nil {
		return fmt.Errorf("error listing %q: %w", abs, err)
	}

	dirs := []Entry{}
	files := []Entry{}
	for _, info := range children {
		rel, err := m.resolver.Rel(filepath.Join(abs, info.Name()))
		if err != nil {
			return err
		}

		switch {
		case info.IsDir():
			if m.hiddenName(info.Name()) {
				continue
			}
			dirs = append(dirs, newEntry(info, rel, "dir"))
		case info.Mode().IsRegular():
			visible, err := c.Request.User.IsFileVisible(ctx, rel)
			if err != nil {
				return err
			}
			if !visible {
				continue
			}
			entry := newEntry(info, rel, "file")
			entry.Mime = workspace.DetectMimeType(info.Name())
			entry.Size = info.Size()
			files = append(files, entry)
		default:
			// specials are not listed
		}
	}

	sortEntries(dirs)
	sortEntries(files)

	listing := Listing{Dirs: dirs, Files: files}
	if abs != m.resolver.Root() {
		parentRel, err := m.resolver.Rel(filepath.Dir(abs))
		if err != nil {
			return err
		}
		listing.Parent = apiPath(parentRel)
	}

	c.SetHeader(TypeHeader, "directory")
	c.RespondData(listing)
	return nil
}

// newEntry builds a listing entry. Birth and change times are not
// portably available through os.FileInfo, so all three timestamp
// fields carry the modification time.
func newEntry(info os.FileInfo, rel, typ string) Entry {
	ts := info.ModTime().UTC().Format(api.TimestampFormat)
	return Entry{
		Name:             info.Name(),
		Path:             apiPath(rel),
		CreationTime:     ts,
		LastChangeTime:   ts,
		LastModifiedTime: ts,
		Type:             typ,
	}
}

// sortEntries orders entries by name under a case-insensitive,
// locale-aware collation.
func sortEntries(entries []Entry) {
	col := collate.New(language.Und, collate.IgnoreCase)
	sort.Slice(entries, func(i, j int) bool {
		return col.CompareString(entries[i].Name, entries[j].Name) < 0
	})
}

// apiPath renders a workspace-relative path as the module's API path,
// percent-encoding each segment.
func apiPath(rel string) string {
	p := api.Prefix + "/" + ModuleName
	if rel == "" || rel == "." {
		return p
	}
	for _, seg := range strings.Split(rel, "/") {
		p += "/" + url.PathEscape(seg)
	}
	return p
}
