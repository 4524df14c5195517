/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package navigation holds the active view and its parameters.
package navigation

import "sync"

// Page identifies a view.
type Page string

const (
	PageHome     Page = "home"
	PageSettings Page = "settings"
	PageTitles   Page = "titles"
	PageHistory  Page = "history"
)

// Store is a minimal page/props holder. Views read it; stores write it
// after operations that should move the user, such as loading an article.
type Store struct {
	mu    sync.Mutex
	page  Page
	props map[string]any
}

// NewStore starts on the home page.
func NewStore() *Store {
	return &Store{page: PageHome}
}

// Go switches to page, replacing any previous props.
func (s *Store) Go(page Page, props map[string]any) {
	s.mu.Lock()
	s.page = page
	s.props = props
	s.mu.Unlock()
}

// Current returns the active page and its props.
func (s *Store) Current() (Page, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.props
}
