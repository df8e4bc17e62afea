// Package editor hands workspace files to the host environment for
// editing or viewing.
package editor

import (
	"context"

	"github.com/pkg/browser"
)

// Opener opens a file in the user's editor or viewer. Implementations
// report failure through the returned error; they never return file
// content.
type Opener interface {
	Open(ctx context.Context, path string) error
}

// SystemOpener opens files with the operating system's default
// application for the file type.
type SystemOpener struct{}

// Open hands the file at path to the OS.
func (SystemOpener) Open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return browser.OpenFile(path)
}
