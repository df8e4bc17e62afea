package workspace

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMimeType is reported for files whose extension is unknown.
const DefaultMimeType = "application/octet-stream"

// extraTypes covers extensions common in workspaces that the stdlib
// table (and many /etc/mime.types files) leave out.
var extraTypes = map[string]string{
	".go":       "text/x-go",
	".hcl":      "text/plain",
	".log":      "text/plain",
	".markdown": "text/markdown",
	".md":       "text/markdown",
	".toml":     "application/toml",
	".txt":      "text/plain",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
}

// DetectMimeType returns the MIME type for a filename, based on its
// extension. The charset parameter the stdlib table attaches to text
// types is stripped, since listing payloads carry bare media types.
func DetectMimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if typ, ok := extraTypes[ext]; ok {
		return typ
	}

	typ := mime.TypeByExtension(ext)
	if typ == "" {
		return DefaultMimeType
	}
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = strings.TrimSpace(typ[:i])
	}
	return typ
}
