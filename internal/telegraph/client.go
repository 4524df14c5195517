/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telegraph is a minimal client for the Telegraph publishing API.
// Pages are image sequences: each chapter becomes a page whose content is a
// list of img nodes in reading order.
package telegraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "chapterpress/internal/log"
)

// Options configures the client.
type Options struct {
	BaseURL    string // default https://api.telegra.ph
	Token      string // account access token; empty means auto-create on first publish
	ShortName  string // account short name used when auto-creating
	AuthorName string
	Timeout    time.Duration
}

// Client talks to the Telegraph API.
type Client struct {
	baseURL    string
	token      string
	shortName  string
	authorName string
	http       *http.Client

	// OnTokenCreated is invoked when an account is auto-created so the
	// caller can persist the new token.
	OnTokenCreated func(token string)
}

// Page is the fetched projection of an existing article.
type Page struct {
	Title  string
	Path   string
	Images []string // img srcs in document order
}

// New creates a client. baseURL may carry a trailing slash; it is normalized.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.telegra.ph"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	short := opts.ShortName
	if short == "" {
		short = "chapterpress"
	}
	return &Client{
		baseURL:    base,
		token:      opts.Token,
		shortName:  short,
		authorName: opts.AuthorName,
		http:       &http.Client{Timeout: timeout},
	}
}

// Token returns the current access token (possibly auto-created).
func (c *Client) Token() string { return c.token }

type apiResponse struct {
	Ok     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type node struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

func imagesToContent(imageURLs []string) ([]byte, error) {
	nodes := make([]node, 0, len(imageURLs))
	for _, link := range imageURLs {
		nodes = append(nodes, node{Tag: "img", Attrs: map[string]string{"src": link}})
	}
	return json.Marshal(nodes)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegraph %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegraph %s: read body: %w", endpoint, err)
	}
	var api apiResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return nil, fmt.Errorf("telegraph %s: malformed response: %s", endpoint, truncate(string(body), 200))
	}
	if !api.Ok {
		return nil, fmt.Errorf("telegraph %s: %s", endpoint, api.Error)
	}
	return api.Result, nil
}

// ensureToken auto-creates an account when none is configured. The token is
// cached on the client and reported via OnTokenCreated.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	form := url.Values{}
	form.Set("short_name", c.shortName)
	if c.authorName != "" {
		form.Set("author_name", c.authorName)
	}
	raw, err := c.postForm(ctx, "/createAccount", form)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || res.AccessToken == "" {
		return "", fmt.Errorf("create account: no access token in response")
	}
	c.token = res.AccessToken
	applog.WithComponent("telegraph").Warn("created new telegraph account", slog.String("short_name", c.shortName))
	if c.OnTokenCreated != nil {
		c.OnTokenCreated(res.AccessToken)
	}
	return c.token, nil
}

// CreatePage publishes a new page and returns its public URL.
func (c *Client) CreatePage(ctx context.Context, title string, imageURLs []string) (string, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", err
	}
	content, err := imagesToContent(imageURLs)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("title", title)
	form.Set("content", string(content))
	form.Set("return_content", "false")
	raw, err := c.postForm(ctx, "/createPage", form)
	if err != nil {
		return "", err
	}
	return resultURL(raw)
}

// EditPage rewrites an existing page identified by its slug. accessToken may
// be empty to use the client's own token. The service reports success by
// returning the page URL; anything else is an error.
func (c *Client) EditPage(ctx context.Context, slug, title string, imageURLs []string, accessToken string) (string, error) {
	token := accessToken
	if token == "" {
		var err error
		token, err = c.ensureToken(ctx)
		if err != nil {
			return "", err
		}
	}
	content, err := imagesToContent(imageURLs)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	form := url.Values{}
	form.Set("access_token", token)
	form.Set("path", slug)
	form.Set("title", title)
	form.Set("content", string(content))
	form.Set("return_content", "false")
	raw, err := c.postForm(ctx, "/editPage", form)
	if err != nil {
		return "", err
	}
	return resultURL(raw)
}

// GetPage fetches a page by its public URL and extracts the ordered image
// sources from its content.
func (c *Client) GetPage(ctx context.Context, articleURL string) (Page, error) {
	slug := lastSegment(articleURL)
	if slug == "" {
		return Page{}, fmt.Errorf("article url has no path: %q", articleURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/getPage/%s?return_content=true", c.baseURL, url.PathEscape(slug)), nil)
	if err != nil {
		return Page{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("telegraph getPage: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("telegraph getPage: read body: %w", err)
	}
	var api apiResponse
	if err := json.Unmarshal(body, &api); err != nil {
		return Page{}, fmt.Errorf("telegraph getPage: malformed response: %s", truncate(string(body), 200))
	}
	if !api.Ok {
		return Page{}, fmt.Errorf("telegraph getPage: %s", api.Error)
	}
	var res struct {
		Title   string `json:"title"`
		Path    string `json:"path"`
		Content []any  `json:"content"`
	}
	if err := json.Unmarshal(api.Result, &res); err != nil {
		return Page{}, fmt.Errorf("telegraph getPage: decode result: %w", err)
	}
	return Page{Title: res.Title, Path: res.Path, Images: extractImageSrcs(res.Content)}, nil
}

// extractImageSrcs walks the content tree and collects img srcs in document
// order. Content nodes are either bare strings or tag objects with optional
// children.
func extractImageSrcs(content []any) []string {
	var out []string
	var walk func(nodes []any)
	walk = func(nodes []any) {
		for _, n := range nodes {
			m, ok := n.(map[string]any)
			if !ok {
				continue
			}
			if tag, _ := m["tag"].(string); tag == "img" {
				if attrs, ok := m["attrs"].(map[string]any); ok {
					if src, ok := attrs["src"].(string); ok {
						out = append(out, src)
					}
				}
			}
			if children, ok := m["children"].([]any); ok {
				walk(children)
			}
		}
	}
	walk(content)
	return out
}

func resultURL(raw json.RawMessage) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("decode result: %w", err)
	}
	if !strings.HasPrefix(res.URL, "http") {
		return "", fmt.Errorf("no page url in response")
	}
	return res.URL, nil
}

func lastSegment(articleURL string) string {
	trimmed := strings.TrimRight(articleURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
