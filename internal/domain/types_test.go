/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "testing"

func TestIsImagePath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/scans/ch12/001.jpg", true},
		{"/scans/ch12/001.JPEG", true},
		{"C:\\scans\\ch12\\002.PNG", true},
		{"/scans/ch12/cover.webp", true},
		{"/scans/ch12/notes.txt", false},
		{"/scans/ch12/raw.psd", false},
		{"no-extension", false},
	}
	for _, c := range cases {
		if got := IsImagePath(c.path); got != c.want {
			t.Fatalf("IsImagePath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("/a/b/c.jpg"); got != "c.jpg" {
		t.Fatalf("BaseName = %q", got)
	}
	if got := BaseName("C:\\a\\b\\c.jpg"); got != "c.jpg" {
		t.Fatalf("BaseName windows = %q", got)
	}
	if got := BaseName("plain.png"); got != "plain.png" {
		t.Fatalf("BaseName plain = %q", got)
	}
}

func TestNewLocalEntry(t *testing.T) {
	e := NewLocalEntry("/scans/ch12/001.jpg")
	if e.ID != "/scans/ch12/001.jpg" || e.OriginalPath != e.ID {
		t.Fatalf("local entry identity mismatch: %+v", e)
	}
	if e.Origin != OriginLocalFile || !e.Selected {
		t.Fatalf("local entry defaults wrong: %+v", e)
	}
	if e.DisplayName != "001.jpg" {
		t.Fatalf("display name = %q", e.DisplayName)
	}
}

func TestNewRemoteEntry(t *testing.T) {
	e := NewRemoteEntry("https://img.example.com/x.jpg", 3)
	if e.Origin != OriginRemoteURL || e.ID != "https://img.example.com/x.jpg" {
		t.Fatalf("remote entry wrong: %+v", e)
	}
	if e.DisplayName != "Image 3" {
		t.Fatalf("placeholder name = %q", e.DisplayName)
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("https://telegra.ph/My-Chapter-01-02"); got != "My-Chapter-01-02" {
		t.Fatalf("Slug = %q", got)
	}
	if got := Slug("https://telegra.ph/My-Chapter-01-02/"); got != "My-Chapter-01-02" {
		t.Fatalf("Slug trailing slash = %q", got)
	}
}
