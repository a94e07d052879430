/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"faceplate/internal/config"
	"faceplate/internal/domain"
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Method, Path string
	Code         int
	Message      string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Code)
}

// Is maps status codes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}

// Client is a minimal HTTP client for the library API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientFromConfig applies the backend section of the app config.
func NewClientFromConfig(cfg config.BackendConfig, token string) *Client {
	c := NewClient(cfg.BaseURL, token)
	c.client.Timeout = cfg.Timeout()
	if cfg.TLSInsecure {
		c.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for dev servers
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any, hdr http.Header, dest any) (http.Header, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode}
		var eb errorBody
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb) == nil {
			se.Message = eb.Error
		}
		return nil, se
	}
	if dest == nil {
		return resp.Header, nil
	}
	return resp.Header, json.NewDecoder(resp.Body).Decode(dest)
}

// RequestToken asks the server for a bearer token and stores it on the client.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (TokenResponse, error) {
	var tr TokenResponse
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/token", req, nil, &tr); err != nil {
		return TokenResponse{}, err
	}
	c.Token = tr.Token
	return tr, nil
}

// ListFaceplates returns the published faceplates, most recently updated first.
func (c *Client) ListFaceplates(ctx context.Context) ([]Faceplate, error) {
	var list []Faceplate
	if _, err := c.do(ctx, http.MethodGet, "/api/faceplates", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetDocument fetches the latest published version of a faceplate.
func (c *Client) GetDocument(ctx context.Context, id string) (Published, error) {
	var p Published
	if _, err := c.do(ctx, http.MethodGet, "/api/faceplates/"+url.PathEscape(id)+"/document", nil, nil, &p); err != nil {
		return Published{}, err
	}
	return p, nil
}

// PublishDocument uploads doc as a new version. A non-negative base is sent
// as If-Match; the server answers ErrConflict when it is stale.
func (c *Client) PublishDocument(ctx context.Context, doc domain.Document, base int64) (int64, error) {
	if doc.ID == "" {
		return 0, errors.New("document id is required")
	}
	var hdr http.Header
	if base >= 0 {
		hdr = http.Header{"If-Match": []string{strconv.FormatInt(base, 10)}}
	}
	var pr PublishResponse
	if _, err := c.do(ctx, http.MethodPut, "/api/faceplates/"+url.PathEscape(doc.ID)+"/document", doc, hdr, &pr); err != nil {
		return 0, err
	}
	return pr.Version, nil
}
