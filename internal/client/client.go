// Package client provides the typed HTTP client the CLI uses to talk to the
// revoice daemon's API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revoice/internal/api"
	"revoice/internal/config"
)

// ErrNotFound indicates the daemon has no video with the requested id.
var ErrNotFound = errors.New("video not found")

// ErrConflict indicates the daemon rejected a trigger because of current
// pipeline state (already running, stage not failed, stale dependency).
var ErrConflict = errors.New("conflicting pipeline state")

// ErrDaemonUnavailable indicates the daemon could not be reached at all.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Client talks to a running revoice daemon.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client from configuration. The daemon listens on
// paths.api_bind; a scheme-less bind address is assumed to be plain HTTP.
func New(cfg *config.Config) *Client {
	base := strings.TrimSpace(cfg.Paths.APIBind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		token:      strings.TrimSpace(cfg.Paths.APIToken),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWithBaseURL builds a client for an explicit endpoint (used in tests).
func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Health reports whether the daemon answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Add ingests a source URL, optionally starting processing immediately.
func (c *Client) Add(ctx context.Context, sourceURL string, process bool) (api.Video, error) {
	var video api.Video
	err := c.do(ctx, http.MethodPost, "/api/videos", api.AddVideoRequest{SourceURL: sourceURL, Process: process}, &video)
	return video, err
}

// List fetches every video, newest first.
func (c *Client) List(ctx context.Context) ([]api.Video, error) {
	var list api.VideoListResponse
	if err := c.do(ctx, http.MethodGet, "/api/videos", nil, &list); err != nil {
		return nil, err
	}
	return list.Videos, nil
}

// Get fetches one video with its full stage map.
func (c *Client) Get(ctx context.Context, id string) (api.Video, error) {
	var video api.Video
	err := c.do(ctx, http.MethodGet, "/api/videos/"+url.PathEscape(id), nil, &video)
	return video, err
}

// Delete removes a video.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/videos/"+url.PathEscape(id), nil, nil)
}

// Process resumes the pipeline for a video.
func (c *Client) Process(ctx context.Context, id string) (api.TriggerResponse, error) {
	var resp api.TriggerResponse
	err := c.do(ctx, http.MethodPost, "/api/videos/"+url.PathEscape(id)+"/process", nil, &resp)
	return resp, err
}

// Reprocess restarts the pipeline from scratch for a video.
func (c *Client) Reprocess(ctx context.Context, id string) (api.TriggerResponse, error) {
	var resp api.TriggerResponse
	err := c.do(ctx, http.MethodPost, "/api/videos/"+url.PathEscape(id)+"/reprocess", nil, &resp)
	return resp, err
}

// Retry re-runs one failed stage.
func (c *Client) Retry(ctx context.Context, id, stageName string) (api.TriggerResponse, error) {
	var resp api.TriggerResponse
	err := c.do(ctx, http.MethodPost, "/api/videos/"+url.PathEscape(id)+"/retry", api.RetryRequest{Stage: stageName}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return c.statusError(resp)
}

func (c *Client) statusError(resp *http.Response) error {
	message := strings.TrimSpace(readErrorMessage(resp.Body))
	if message == "" {
		message = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, message)
	default:
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, message)
	}
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload api.ErrorResponse
	if jsonErr := json.Unmarshal(data, &payload); jsonErr == nil && payload.Error != "" {
		return payload.Error
	}
	return string(data)
}
