// Package client is a Go client for the neuroserve HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIKeyHeader carries the shared API key.
const APIKeyHeader = "X-API-Key"

// ErrNoService is returned by FindServiceWithTask when no service declares the task.
var ErrNoService = errors.New("no service exposes the task")

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("neuroserve: status %d", e.StatusCode)
	}
	return fmt.Sprintf("neuroserve: status %d: %s", e.StatusCode, e.Detail)
}

// ServiceInfo describes a registered service.
type ServiceInfo struct {
	Name     string   `json:"name"`
	Provider *string  `json:"provider"`
	Tasks    []string `json:"tasks"`
}

// TaskResult is the envelope of a task run.
type TaskResult struct {
	Service string          `json:"plugin"`
	Task    string          `json:"task"`
	Result  json.RawMessage `json:"result"`
}

// Decode unmarshals the task result into v.
func (r *TaskResult) Decode(v any) error {
	return json.Unmarshal(r.Result, v)
}

// UploadResult describes a stored PDF.
type UploadResult struct {
	OK        bool   `json:"ok"`
	Filename  string `json:"filename"`
	StoredAs  string `json:"stored_as"`
	Path      string `json:"path"`
	RelPath   string `json:"rel_path"`
	SizeBytes int64  `json:"size_bytes"`
}

// Client talks to a neuroserve server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the services API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/services/ping", nil, "", &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("ping: server reported not ok")
	}
	return nil
}

// ListServices returns every registered service.
func (c *Client) ListServices(ctx context.Context) ([]ServiceInfo, error) {
	var out []ServiceInfo
	if err := c.do(ctx, http.MethodGet, "/services", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetService returns the metadata of one service.
func (c *Client) GetService(ctx context.Context, name string) (*ServiceInfo, error) {
	var out ServiceInfo
	if err := c.do(ctx, http.MethodGet, "/services/"+url.PathEscape(name), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindServiceWithTask returns the first service, in listing order, that
// declares task.
func (c *Client) FindServiceWithTask(ctx context.Context, task string) (string, error) {
	services, err := c.ListServices(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range services {
		for _, t := range s.Tasks {
			if strings.EqualFold(t, task) {
				return s.Name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoService, task)
}

// RunTask runs task on service with payload, which must encode to a JSON
// object. A nil payload sends {}.
func (c *Client) RunTask(ctx context.Context, service, task string, payload any) (*TaskResult, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var out TaskResult
	path := "/services/" + url.PathEscape(service) + "/" + url.PathEscape(task)
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPDF streams r to the server as a multipart upload.
func (c *Client) UploadPDF(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var out UploadResult
	if err := c.do(ctx, http.MethodPost, "/uploads/pdf", pr, mw.FormDataContentType(), &out); err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	send := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set(APIKeyHeader, c.apiKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		return resp, nil
	}

	resp, err := c.sendWithRetry(ctx, method == http.MethodGet && body == nil, send)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Code = errBody.Error
			apiErr.Detail = errBody.Detail
		}
		if apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
