// Package daemonctl is the HTTP client the CLI uses to talk to a running
// shelved daemon.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"shelve/internal/api"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running (start it with `shelved`)")

// APIError is a non-2xx response decoded from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon returned status %d", e.StatusCode)
}

// Client talks to the daemon API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given bind address ("host:port" or full URL).
func New(bind string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		// Synchronous folder runs can take a while; the transport-level
		// deadline comes from the caller's context instead.
		http: &http.Client{Timeout: 0},
	}
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

	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return ErrDaemonNotRunning
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}

func isConnectionRefused(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// Health fetches the daemon liveness payload.
func (c *Client) Health(ctx context.Context) (api.Health, error) {
	var health api.Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &health)
	return health, err
}

// Settings fetches the live engine settings.
func (c *Client) Settings(ctx context.Context) (api.Settings, error) {
	var settings api.Settings
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &settings)
	return settings, err
}

// UpdateSettings replaces the engine settings.
func (c *Client) UpdateSettings(ctx context.Context, payload api.Settings) (api.Settings, error) {
	var updated api.Settings
	err := c.do(ctx, http.MethodPost, "/api/settings", payload, &updated)
	return updated, err
}

// ListFolders returns all registered folders.
func (c *Client) ListFolders(ctx context.Context) ([]api.WatchedFolder, error) {
	var folders []api.WatchedFolder
	err := c.do(ctx, http.MethodGet, "/api/watched-folders", nil, &folders)
	return folders, err
}

// AddFolder registers a folder for watching.
func (c *Client) AddFolder(ctx context.Context, path string) (api.WatchedFolder, error) {
	var folder api.WatchedFolder
	err := c.do(ctx, http.MethodPost, "/api/watched-folders", api.AddFolderRequest{Path: path}, &folder)
	return folder, err
}

// RemoveFolder deletes a folder registration.
func (c *Client) RemoveFolder(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/watched-folders/%d", id), nil, nil)
}

// ToggleFolder flips a folder's enabled state.
func (c *Client) ToggleFolder(ctx context.Context, id int64) (api.WatchedFolder, error) {
	var folder api.WatchedFolder
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/watched-folders/%d/toggle", id), nil, &folder)
	return folder, err
}

// ListCategories returns all destination categories.
func (c *Client) ListCategories(ctx context.Context) ([]api.Category, error) {
	var categories []api.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &categories)
	return categories, err
}

// AddCategory registers a new destination category.
func (c *Client) AddCategory(ctx context.Context, payload api.CategoryRequest) (api.Category, error) {
	var category api.Category
	err := c.do(ctx, http.MethodPost, "/api/categories", payload, &category)
	return category, err
}

// UpdateCategory replaces a category's destination, description, and extensions.
func (c *Client) UpdateCategory(ctx context.Context, id int64, payload api.CategoryRequest) (api.Category, error) {
	var category api.Category
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/categories/%d", id), payload, &category)
	return category, err
}

// RemoveCategory deletes a category.
func (c *Client) RemoveCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil)
}

// ProcessFolder runs a synchronous bulk pass over a folder.
func (c *Client) ProcessFolder(ctx context.Context, folderID int64) (api.ProcessSummary, error) {
	var summary api.ProcessSummary
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/process-folder/%d", folderID), nil, &summary)
	return summary, err
}

// ProcessFolderAsync starts a background bulk job and returns its ID.
func (c *Client) ProcessFolderAsync(ctx context.Context, folderID int64) (api.ProcessAccepted, error) {
	var accepted api.ProcessAccepted
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/process-folder/%d?async=1", folderID), nil, &accepted)
	return accepted, err
}

// Progress fetches the current bulk job snapshot for a folder.
func (c *Client) Progress(ctx context.Context, folderID int64) (api.JobProgress, error) {
	var progress api.JobProgress
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/process-folder/%d/progress", folderID), nil, &progress)
	return progress, err
}

// Cancel requests cancellation of a folder's running bulk job.
func (c *Client) Cancel(ctx context.Context, folderID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/process-folder/%d/cancel", folderID), nil, nil)
}

// History lists the most recent movements.
func (c *Client) History(ctx context.Context, limit int) ([]api.Movement, error) {
	var movements []api.Movement
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/history?limit=%d", limit), nil, &movements)
	return movements, err
}

// HistoryStats fetches aggregate movement statistics.
func (c *Client) HistoryStats(ctx context.Context) (api.HistoryStats, error) {
	var stats api.HistoryStats
	err := c.do(ctx, http.MethodGet, "/api/history/stats", nil, &stats)
	return stats, err
}

// Undo reverses a completed movement.
func (c *Client) Undo(ctx context.Context, movementID int64) (api.Movement, error) {
	var movement api.Movement
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/history/%d/undo", movementID), nil, &movement)
	return movement, err
}

// WaitForDaemon polls the health endpoint until the daemon responds.
func (c *Client) WaitForDaemon(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if _, err := c.Health(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon not reachable: %w", lastErr)
}
