package main

import (
	"context"
	"errors"
	"net"

	"epictree/internal/api"
)

// sessionClosedErrorCode mirrors the server's numeric code for closed sessions.
const sessionClosedErrorCode = 2101

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify EPICTREE_API_TOKEN matches the server's api token.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly; the server limits concurrent renders and operations.")
		case "unimplemented":
			lines = append(lines, "hint: start the server with db_path set to enable the edit journal.")
		}
		if apiErr.ErrorCode == sessionClosedErrorCode {
			lines = append(lines, "hint: the viewer session was closed; retry without EPICTREE_SESSION_ID or with a new id.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify EPICTREE_API_URL points to an epictree server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; Jira may be slow, increase EPICTREE_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure an epictree server is running at EPICTREE_API_URL.",
			"hint: start local server manually with: epictree srv",
			"hint: you can increase EPICTREE_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
