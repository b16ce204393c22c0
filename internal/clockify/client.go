package clockify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/christopherklint97/taxiclock/internal/version"
)

const (
	DefaultBaseURL = "https://api.clockify.me/api/v1"

	// TimeFormat is the UTC layout Clockify expects for time entry bounds.
	TimeFormat = "2006-01-02T15:04:05Z"
)

// ErrLoginFailed is returned for any 401 or 403 response.
var ErrLoginFailed = errors.New("login failed, please check your credentials")

// APIError is a response with an unexpected status code.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, string(e.Body))
}

// DecodeError is a response body that could not be parsed.
type DecodeError struct {
	Path string
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unexpected response from %s (%s): %v", e.Path, truncate(string(e.Body), 200), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(apiKey string, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: version.UserAgent(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type response struct {
	status int
	body   []byte
}

// doRequest sends a single request. There are no retries: callers decide
// what a non-2xx status means for them.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("clockify API request", "method", method, "path", path)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API request transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("clockify API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Error("API authentication failed", "method", method, "path", path, "status", resp.StatusCode)
		return nil, ErrLoginFailed
	}

	return &response{status: resp.StatusCode, body: respBody}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/workspaces", nil)
	if err != nil {
		return nil, fmt.Errorf("getting workspaces: %w", err)
	}
	if resp.status != http.StatusOK {
		return nil, &APIError{Method: http.MethodGet, Path: "/workspaces", StatusCode: resp.status, Body: resp.body}
	}

	var workspaces []Workspace
	if err := json.Unmarshal(resp.body, &workspaces); err != nil {
		return nil, &DecodeError{Path: "/workspaces", Body: resp.body, Err: err}
	}
	return workspaces, nil
}

// ListProjects returns the first page of projects in the workspace.
func (c *Client) ListProjects(ctx context.Context, workspaceID string) ([]Project, error) {
	path := fmt.Sprintf("/workspaces/%s/projects", workspaceID)
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting projects: %w", err)
	}
	if resp.status != http.StatusOK {
		c.logger.Error("listing projects failed", "status", resp.status, "response", truncate(string(resp.body), 200))
		return nil, &APIError{Method: http.MethodGet, Path: path, StatusCode: resp.status, Body: resp.body}
	}

	var projects []Project
	if err := json.Unmarshal(resp.body, &projects); err != nil {
		c.logger.Error("parsing projects response", "status", resp.status, "response", truncate(string(resp.body), 200))
		return nil, &DecodeError{Path: path, Body: resp.body, Err: err}
	}
	return projects, nil
}

func (c *Client) ListTasks(ctx context.Context, workspaceID, projectID string) ([]Task, error) {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/tasks", workspaceID, projectID)
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting tasks: %w", err)
	}
	if resp.status != http.StatusOK {
		return nil, &APIError{Method: http.MethodGet, Path: path, StatusCode: resp.status, Body: resp.body}
	}

	var tasks []Task
	if err := json.Unmarshal(resp.body, &tasks); err != nil {
		return nil, &DecodeError{Path: path, Body: resp.body, Err: err}
	}
	return tasks, nil
}

// CreateTimeEntry posts a new time entry. Only 201 Created counts as success.
func (c *Client) CreateTimeEntry(ctx context.Context, workspaceID string, entry TimeEntryRequest) (*TimeEntry, error) {
	path := fmt.Sprintf("/workspaces/%s/time-entries", workspaceID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, entry)
	if err != nil {
		return nil, fmt.Errorf("creating time entry: %w", err)
	}
	if resp.status != http.StatusCreated {
		c.logger.Error("time entry rejected", "status", resp.status, "response", truncate(string(resp.body), 200))
		return nil, &APIError{Method: http.MethodPost, Path: path, StatusCode: resp.status, Body: resp.body}
	}

	var created TimeEntry
	if err := json.Unmarshal(resp.body, &created); err != nil {
		// The entry exists remotely; an odd body is not worth failing over.
		c.logger.Warn("parsing time entry response", "error", err)
		return &created, nil
	}
	return &created, nil
}

// FormatTime renders t in UTC the way the time entry endpoint expects.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
