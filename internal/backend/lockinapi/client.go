// Package lockinapi implements the service.Remote interface over the lockin REST backend.
package lockinapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"lockin/internal/config"
	"lockin/internal/logging"
	"lockin/internal/service"
)

const (
	// APITimeout is the timeout for a single API call.
	APITimeout = 10 * time.Second

	tasksPath      = "/tasks"
	savedTasksPath = "/saved-tasks"
	refreshPath    = "/auth/refresh"
)

// Client implements service.Remote against the REST backend.
type Client struct {
	baseURL    string
	username   string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a client from the stored session.
// Every request carries the session token as a bearer credential; an
// expired token is refreshed and written back to the session file.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	token, err := cfg.LoadSession()
	if err != nil {
		return nil, err
	}

	refreshURL := cfg.Settings.RefreshURL
	if refreshURL == "" {
		refreshURL = strings.TrimRight(cfg.Settings.APIURL, "/") + refreshPath
	}

	log := logging.WithComponent("api")
	ts := TokenSource(ctx, token, refreshURL, func(t *oauth2.Token) {
		if err := cfg.SaveSession(t); err != nil {
			log.Warn().Err(err).Msg("failed to persist refreshed session")
		}
	})

	return NewWithHTTPClient(cfg.Settings.APIURL, cfg.Settings.Username, oauth2.NewClient(ctx, ts)), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL, username string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		httpClient: httpClient,
		log:        logging.WithComponent("api"),
	}
}

// ListTasks implements service.Remote.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var resp []wireTask
	if err := c.do(ctx, http.MethodGet, tasksPath, nil, &resp); err != nil {
		return nil, err
	}
	result := make([]service.Task, 0, len(resp))
	for _, w := range resp {
		result = append(result, fromWireTask(w))
	}
	return result, nil
}

// CreateTask implements service.Remote.
func (c *Client) CreateTask(ctx context.Context, task service.Task) (*service.Task, error) {
	var resp wireTask
	if err := c.do(ctx, http.MethodPost, tasksPath, toWireTask(task, c.username), &resp); err != nil {
		return nil, err
	}
	created := fromWireTask(resp)
	return &created, nil
}

// UpdateTask implements service.Remote.
func (c *Client) UpdateTask(ctx context.Context, id int64, task service.Task) (*service.Task, error) {
	var resp wireTask
	if err := c.do(ctx, http.MethodPut, itemPath(tasksPath, id), toWireTask(task, c.username), &resp); err != nil {
		return nil, err
	}
	updated := fromWireTask(resp)
	return &updated, nil
}

// DeleteTask implements service.Remote.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(tasksPath, id), nil, nil)
}

// ListSavedTasks implements service.Remote.
func (c *Client) ListSavedTasks(ctx context.Context) ([]service.SavedTask, error) {
	var resp []wireSavedTask
	if err := c.do(ctx, http.MethodGet, savedTasksPath, nil, &resp); err != nil {
		return nil, err
	}
	result := make([]service.SavedTask, 0, len(resp))
	for _, w := range resp {
		result = append(result, fromWireSavedTask(w))
	}
	return result, nil
}

// CreateSavedTask implements service.Remote.
func (c *Client) CreateSavedTask(ctx context.Context, task service.SavedTask) (*service.SavedTask, error) {
	var resp wireSavedTask
	if err := c.do(ctx, http.MethodPost, savedTasksPath, toWireSavedTask(task, c.username), &resp); err != nil {
		return nil, err
	}
	created := fromWireSavedTask(resp)
	return &created, nil
}

// UpdateSavedTask implements service.Remote.
func (c *Client) UpdateSavedTask(ctx context.Context, id int64, task service.SavedTask) (*service.SavedTask, error) {
	var resp wireSavedTask
	if err := c.do(ctx, http.MethodPut, itemPath(savedTasksPath, id), toWireSavedTask(task, c.username), &resp); err != nil {
		return nil, err
	}
	updated := fromWireSavedTask(resp)
	return &updated, nil
}

// DeleteSavedTask implements service.Remote.
func (c *Client) DeleteSavedTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(savedTasksPath, id), nil, nil)
}

func itemPath(collection string, id int64) string {
	return collection + "/" + strconv.FormatInt(id, 10)
}

// do sends one request. in is encoded as the JSON body when non-nil and the
// response body is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapError(method, path, err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		var apiErr *googleapi.Error
		if method == http.MethodDelete && errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			c.log.Debug().Str("path", path).Msg("delete target already gone")
			return nil
		}
		return wrapError(method, path, err)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapError(method, path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// wrapError normalizes every failure to service.ErrUnavailable.
func wrapError(method, path string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s %s: status %d", service.ErrUnavailable, method, path, apiErr.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: request timed out", service.ErrUnavailable, method, path)
	}
	return fmt.Errorf("%w: %s %s: %v", service.ErrUnavailable, method, path, err)
}
