package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"epictree/internal/fields"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	apiPathPrefix      = "/rest/api/3"
	maxLoggedBody      = 512
)

// Limits caps the page sizes requested from the search endpoints.
type Limits struct {
	EpicIssuesMaxResults      int
	SubtasksMaxResults        int
	AssignableUsersMaxResults int
}

// DefaultLimits returns the built-in page-size caps.
func DefaultLimits() Limits {
	return Limits{
		EpicIssuesMaxResults:      100,
		SubtasksMaxResults:        100,
		AssignableUsersMaxResults: 50,
	}
}

// Config configures a Gateway.
type Config struct {
	BaseURL    string
	Email      string
	APIToken   string
	Mapping    fields.Mapping
	Limits     Limits
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Gateway issues Jira REST requests.
type Gateway struct {
	apiURL  string
	email   string
	token   string
	mapping fields.Mapping
	limits  Limits
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Gateway.
func New(cfg Config) *Gateway {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	limits := cfg.Limits
	defaults := DefaultLimits()
	if limits.EpicIssuesMaxResults <= 0 {
		limits.EpicIssuesMaxResults = defaults.EpicIssuesMaxResults
	}
	if limits.SubtasksMaxResults <= 0 {
		limits.SubtasksMaxResults = defaults.SubtasksMaxResults
	}
	if limits.AssignableUsersMaxResults <= 0 {
		limits.AssignableUsersMaxResults = defaults.AssignableUsersMaxResults
	}
	return &Gateway{
		apiURL:  apiURL(cfg.BaseURL),
		email:   strings.TrimSpace(cfg.Email),
		token:   strings.TrimSpace(cfg.APIToken),
		mapping: cfg.Mapping,
		limits:  limits,
		http:    httpClient,
		logger:  cfg.Logger,
	}
}

// Mapping returns the field mapping the gateway was built with.
func (g *Gateway) Mapping() fields.Mapping {
	return g.mapping
}

func apiURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.Contains(base, "/rest/api/") {
		return base
	}
	return base + apiPathPrefix
}

// HTTPError is a non-2xx Jira response.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("jira responded %d %s", e.Status, http.StatusText(e.Status))
}

func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := g.apiURL + path
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
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	g.setAuthHeader(req)

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &HTTPError{Status: resp.StatusCode, Body: data}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *Gateway) setAuthHeader(req *http.Request) {
	switch {
	case g.token == "":
		return
	case g.email != "":
		req.SetBasicAuth(g.email, g.token)
	default:
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}

func (g *Gateway) log() *slog.Logger {
	if g != nil && g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

// logFailure records a failed call. Transport and proxy failures are tagged
// separately but handled like any other failure.
func (g *Gateway) logFailure(op string, err error, attrs ...any) {
	args := append([]any{"op", op, "error", err}, attrs...)
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		args = append(args, "status", httpErr.Status, "body", truncateBody(httpErr.Body))
		g.log().Warn("jira request failed", args...)
	case IsProxyError(err):
		args = append(args, "proxy", true)
		g.log().Warn("jira transport failed", args...)
	default:
		g.log().Warn("jira request failed", args...)
	}
}

func truncateBody(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return string(body[:maxLoggedBody]) + "..."
}
