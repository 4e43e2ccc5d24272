// Package client talks to the script manager's HTTP API.
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

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

// StatusError is returned when the backend answers with an error status and
// a body that is not the JSON shape the caller asked for.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api %s %s failed with status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("api %s %s failed with status %d", e.Method, e.Path, e.Code)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// doJSON performs a request and decodes the JSON response into out. The
// backend reports failures as JSON with a non-2xx status (404 for an unknown
// script, 500 with a message), so a decodable body wins over the status
// code and the caller inspects the envelope.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if out == nil {
		if resp.StatusCode >= 400 {
			return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: snippet(blob)}
		}
		return nil
	}
	if err := json.Unmarshal(blob, out); err != nil {
		if resp.StatusCode >= 400 {
			return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: snippet(blob)}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Scripts(ctx context.Context) ([]models.Script, error) {
	var scripts []models.Script
	if err := c.doJSON(ctx, http.MethodGet, "/api/scripts", nil, &scripts); err != nil {
		return nil, err
	}
	return scripts, nil
}

func (c *Client) MasterStatus(ctx context.Context) (models.MasterStatus, error) {
	var status models.MasterStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/master/status", nil, &status); err != nil {
		return models.MasterStatus{}, err
	}
	return status, nil
}

// Start launches one script, or the whole queue when script is empty.
func (c *Client) Start(ctx context.Context, script string) (models.CommandResult, error) {
	var payload any
	if script = strings.TrimSpace(script); script != "" {
		payload = map[string]string{"script": script}
	}
	var result models.CommandResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/start", payload, &result); err != nil {
		return models.CommandResult{}, err
	}
	return result, nil
}

func (c *Client) Stop(ctx context.Context, script string) (models.CommandResult, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return models.CommandResult{}, errors.New("script name is required")
	}
	var result models.CommandResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/stop", map[string]string{"script": script}, &result); err != nil {
		return models.CommandResult{}, err
	}
	return result, nil
}

// Logs fetches the log text for a script by its live identifier.
func (c *Client) Logs(ctx context.Context, script string) (models.LogResponse, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return models.LogResponse{}, errors.New("script name is required")
	}
	var result models.LogResponse
	path := "/api/logs/" + url.PathEscape(script)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return models.LogResponse{}, err
	}
	return result, nil
}

func (c *Client) MainLog(ctx context.Context) (string, error) {
	var result models.MainLogResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/main_log", nil, &result); err != nil {
		return "", err
	}
	return result.Log, nil
}

func (c *Client) AppStatus(ctx context.Context) (models.AppStatusResponse, error) {
	var result models.AppStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/app/status", nil, &result); err != nil {
		return models.AppStatusResponse{}, err
	}
	return result, nil
}

func (c *Client) AppStart(ctx context.Context) (models.CommandResult, error) {
	var result models.CommandResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/app/start", nil, &result); err != nil {
		return models.CommandResult{}, err
	}
	return result, nil
}

func (c *Client) AppStop(ctx context.Context) (models.CommandResult, error) {
	var result models.CommandResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/app/stop", nil, &result); err != nil {
		return models.CommandResult{}, err
	}
	return result, nil
}

func snippet(blob []byte) string {
	text := strings.TrimSpace(string(blob))
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}
