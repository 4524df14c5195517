//go:build fyne && !cgo

package ui

import (
	"context"
	"errors"
)

var errNoCgo = errors.New("fyne dialogs require cgo (OpenGL); rebuild with CGO_ENABLED=1 -tags fyne")

// FyneProvider requires cgo (OpenGL). This stub is compiled when the build
// uses -tags fyne but CGO is disabled; both dialogs fail with guidance.
type FyneProvider struct{}

func (FyneProvider) PickFolder(ctx context.Context) (FolderSelection, error) {
	return FolderSelection{}, errNoCgo
}

func (FyneProvider) PickFiles(ctx context.Context) ([]string, error) {
	return nil, errNoCgo
}
