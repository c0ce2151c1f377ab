// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package osmapi talks to the OpenStreetMap 0.6 API: it opens, fills, and
// closes server-side changesets on behalf of the changeset package. Every
// call is synchronous and is never retried; the caller decides what a
// failure means.
package osmapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/Beakerboy/OSM-bulk-upload/internal/changeset"
	"github.com/Beakerboy/OSM-bulk-upload/model"
)

const (
	// DefaultHost is the production API endpoint.
	DefaultHost = "https://api.openstreetmap.org"

	// DefaultUserAgent identifies this tool to the API operators.
	DefaultUserAgent = "osmup/2.0 (github.com/Beakerboy/OSM-bulk-upload)"

	apiVersion = "0.6"
	apiBase    = "/api/0.6"

	xmlContentType = "text/xml; charset=utf-8"

	errorBodyLimit = 2048
)

// clientOptions provides optional configuration parameters for Client construction.
type clientOptions struct {
	host       string
	userAgent  string
	gzipped    bool
	httpClient *http.Client
}

// ClientOption configures how we set up the client.
type ClientOption func(*clientOptions)

// WithHost points the client at a different API endpoint, such as the dev
// server.
func WithHost(host string) ClientOption {
	return func(o *clientOptions) {
		o.host = strings.TrimRight(host, "/")
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(o *clientOptions) {
		o.userAgent = ua
	}
}

// WithHTTPClient lets you supply the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithoutGzip disables gzip encoding of diff upload bodies.
func WithoutGzip() ClientOption {
	return func(o *clientOptions) {
		o.gzipped = false
	}
}

var defaultClientConfig = clientOptions{
	host:      DefaultHost,
	userAgent: DefaultUserAgent,
	gzipped:   true,
}

// Client is an authenticated OSM 0.6 API client.
type Client struct {
	cfg      clientOptions
	username string
	password string
}

var _ changeset.Transport = (*Client)(nil)

// NewClient creates a client authenticating with HTTP basic auth.
func NewClient(username, password string, opts ...ClientOption) *Client {
	cfg := defaultClientConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}

	return &Client{cfg: cfg, username: username, password: password}
}

func (c *Client) do(method, path string, body []byte, gzipped bool) (*http.Response, error) {
	var reader io.Reader

	if body != nil {
		if gzipped {
			var buf bytes.Buffer

			zw := gzip.NewWriter(&buf)
			if _, err := zw.Write(body); err != nil {
				return nil, fmt.Errorf("osmapi: compressing request: %w", err)
			}

			if err := zw.Close(); err != nil {
				return nil, fmt.Errorf("osmapi: compressing request: %w", err)
			}

			reader = &buf
		} else {
			reader = bytes.NewReader(body)
		}
	}

	req, err := http.NewRequest(method, c.cfg.host+apiBase+path, reader)
	if err != nil {
		return nil, fmt.Errorf("osmapi: %s %s: %w", method, path, err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("User-Agent", c.cfg.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", xmlContentType)

		if gzipped {
			req.Header.Set("Content-Encoding", "gzip")
		}
	}

	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osmapi: %s %s: %w", method, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

		return nil, fmt.Errorf("osmapi: %s %s: %s: %s",
			method, path, resp.Status, strings.TrimSpace(string(detail)))
	}

	return resp, nil
}

// CreateChangeset opens a changeset with the given tags and returns the id
// the server assigned.
func (c *Client) CreateChangeset(tags map[string]string) (int64, error) {
	body, err := encodeChangeset(c.cfg.userAgent, tags)
	if err != nil {
		return 0, fmt.Errorf("osmapi: encoding changeset: %w", err)
	}

	resp, err := c.do(http.MethodPut, "/changeset/create", body, false)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("osmapi: reading changeset id: %w", err)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("osmapi: parsing changeset id %q: %w", raw, err)
	}

	return id, nil
}

// UploadDiff posts one osmChange document and returns the per-element
// results the server answered with.
func (c *Client) UploadDiff(changesetID int64, creates, modifies, deletes []*model.Element) ([]changeset.Result, error) {
	body, err := encodeOsmChange(c.cfg.userAgent, creates, modifies, deletes)
	if err != nil {
		return nil, fmt.Errorf("osmapi: encoding osmChange: %w", err)
	}

	path := fmt.Sprintf("/changeset/%d/upload", changesetID)

	resp, err := c.do(http.MethodPost, path, body, c.cfg.gzipped)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseDiffResult(resp.Body)
}

// CloseChangeset closes the changeset.
func (c *Client) CloseChangeset(changesetID int64) error {
	resp, err := c.do(http.MethodPut, fmt.Sprintf("/changeset/%d/close", changesetID), nil, false)
	if err != nil {
		return err
	}

	return resp.Body.Close()
}
