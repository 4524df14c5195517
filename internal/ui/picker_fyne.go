//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// FyneProvider shows native-looking fyne dialogs parented to the app window.
type FyneProvider struct {
	Window fyne.Window
}

// PickFolder opens a folder dialog and scans the chosen directory. Closing
// the dialog without a choice yields a zero FolderSelection.
func (p FyneProvider) PickFolder(ctx context.Context) (FolderSelection, error) {
	type result struct {
		sel FolderSelection
		err error
	}
	ch := make(chan result, 1)
	dialog.ShowFolderOpen(func(list fyne.ListableURI, err error) {
		if err != nil {
			ch <- result{err: err}
			return
		}
		if list == nil {
			ch <- result{}
			return
		}
		sel, serr := ScanFolder(list.Path())
		ch <- result{sel: sel, err: serr}
	}, p.Window)

	select {
	case r := <-ch:
		return r.sel, r.err
	case <-ctx.Done():
		return FolderSelection{}, ctx.Err()
	}
}

// PickFiles opens a file dialog. Fyne has no multi-select open, so one file
// is returned per invocation.
func (p FyneProvider) PickFiles(ctx context.Context) ([]string, error) {
	type result struct {
		paths []string
		err   error
	}
	ch := make(chan result, 1)
	dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			ch <- result{err: err}
			return
		}
		if rc == nil {
			ch <- result{}
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		ch <- result{paths: []string{path}}
	}, p.Window)

	select {
	case r := <-ch:
		return r.paths, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
