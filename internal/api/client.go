package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "EPICTREE_HTTP_TIMEOUT"
	apiTokenEnvKey     = "EPICTREE_API_TOKEN"
	sessionIDEnvKey    = "EPICTREE_SESSION_ID"
)

// Client is a simple HTTP client for the epictree API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
	sessionID string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		sessionID: strings.TrimSpace(os.Getenv(sessionIDEnvKey)),
	}
}

// SetSessionID sets the viewer session sent with every request.
func (c *Client) SetSessionID(id string) {
	c.sessionID = strings.TrimSpace(id)
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// CloseSession drops a viewer session on the server.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil, nil, nil)
}

// Tree returns the filtered session view. query carries the filter params.
func (c *Client) Tree(ctx context.Context, epicKey string, query url.Values) (TreeResponse, error) {
	var resp TreeResponse
	err := c.do(ctx, http.MethodGet, epicPath(epicKey, "tree"), query, nil, &resp)
	return resp, err
}

func (c *Client) Refresh(ctx context.Context, epicKey string) (RefreshResponse, error) {
	var resp RefreshResponse
	err := c.do(ctx, http.MethodPost, epicPath(epicKey, "refresh"), nil, nil, &resp)
	return resp, err
}

func (c *Client) Layout(ctx context.Context, epicKey string, query url.Values) (LayoutResponse, error) {
	var resp LayoutResponse
	err := c.do(ctx, http.MethodGet, epicPath(epicKey, "layout"), query, nil, &resp)
	return resp, err
}

func (c *Client) Summary(ctx context.Context, epicKey string) (SummaryResponse, error) {
	var resp SummaryResponse
	err := c.do(ctx, http.MethodGet, epicPath(epicKey, "summary"), nil, nil, &resp)
	return resp, err
}

// Render streams a rendered image ("svg" or "png") to w. It returns the
// snapshot key when the query asked the server to save the render.
func (c *Client) Render(ctx context.Context, epicKey, format string, query url.Values, w io.Writer) (string, error) {
	endpoint := c.baseURL + epicPath(epicKey, "render."+format)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	resp, err := c.stream(ctx, endpoint, w)
	if err != nil {
		return "", err
	}
	return resp.Header.Get(SnapshotHeader), nil
}

// Snapshot streams a saved render to w.
func (c *Client) Snapshot(ctx context.Context, key string, w io.Writer) error {
	_, err := c.stream(ctx, c.baseURL+"/v1/snapshots/"+key, w)
	return err
}

func (c *Client) DeleteSnapshot(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/v1/snapshots/"+key, nil, nil, nil)
}

func (c *Client) stream(ctx context.Context, endpoint string, w io.Writer) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) UpdateField(ctx context.Context, issueKey, field string, req EditRequest) (EditResponse, error) {
	var resp EditResponse
	path := "/v1/issues/" + url.PathEscape(issueKey) + "/fields/" + url.PathEscape(field)
	err := c.do(ctx, http.MethodPut, path, nil, req, &resp)
	return resp, err
}

func (c *Client) ListEdits(ctx context.Context, issueKey string, limit int) (EditsResponse, error) {
	var resp EditsResponse
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	err := c.do(ctx, http.MethodGet, "/v1/issues/"+url.PathEscape(issueKey)+"/edits", query, nil, &resp)
	return resp, err
}

func (c *Client) PublishIssueChanged(ctx context.Context, req IssueChangedRequest) (IssueChangedResponse, error) {
	var resp IssueChangedResponse
	err := c.do(ctx, http.MethodPost, "/v1/events/issue-changed", nil, req, &resp)
	return resp, err
}

// Invoke calls a named host operation with a raw JSON payload.
func (c *Client) Invoke(ctx context.Context, operation string, payload json.RawMessage) (InvokeResponse, error) {
	var resp InvokeResponse
	var body any
	if len(bytes.TrimSpace(payload)) > 0 {
		body = payload
	}
	err := c.do(ctx, http.MethodPost, "/v1/invoke/"+url.PathEscape(operation), nil, body, &resp)
	return resp, err
}

func epicPath(epicKey, suffix string) string {
	return "/v1/epics/" + url.PathEscape(epicKey) + "/" + suffix
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setHeaders(req *http.Request) {
	if req == nil {
		return
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.sessionID != "" {
		req.Header.Set(SessionHeader, c.sessionID)
	}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
