package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"epictree/internal/api"
	"epictree/internal/auth"
	"epictree/internal/events"
	"epictree/internal/fields"
	"epictree/internal/jira"
	"epictree/internal/models"
	"epictree/internal/service"
	"epictree/internal/session"
	"epictree/internal/snapshot"
	"epictree/internal/store"
)

type fakeGateway struct {
	mu      sync.Mutex
	epic    jira.Issue
	issues  []jira.Issue
	update  jira.UpdateResult
	updates []string
}

func (f *fakeGateway) setEpicSummary(summary string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epic.Fields.Summary = summary
}

func (f *fakeGateway) updateCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

func (f *fakeGateway) FetchIssueByID(_ context.Context, id string, _ ...jira.IssueOption) jira.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epic.Key != id {
		return jira.FallbackIssue(id)
	}
	return f.epic
}

func (f *fakeGateway) FetchIssuesByEpicID(context.Context, string) jira.SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return jira.SearchResult{Issues: append([]jira.Issue(nil), f.issues...), Total: len(f.issues)}
}

func (f *fakeGateway) FetchSubtasksByParentKeys(context.Context, []string) jira.SearchResult {
	return jira.EmptySearchResult()
}

func (f *fakeGateway) FetchSubtasksByKeys(context.Context, []string) jira.SearchResult {
	return jira.EmptySearchResult()
}

func (f *fakeGateway) FetchPriorities(context.Context) []jira.Priority {
	return []jira.Priority{{ID: "1", Name: "Highest"}, {ID: "3", Name: "Medium"}}
}

func (f *fakeGateway) FetchAssignableUsers(context.Context, string) []jira.User {
	return []jira.User{{AccountID: "acc-1", DisplayName: "Ada Lovelace", Active: true}}
}

func (f *fakeGateway) FetchEditableFields(context.Context, string) []string {
	return []string{fields.Summary, fields.Labels}
}

func (f *fakeGateway) FetchLabels(context.Context) []string {
	return []string{"backend"}
}

func (f *fakeGateway) UpdateIssueField(_ context.Context, key, field string, _ any) jira.UpdateResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, key+":"+field)
	return f.update
}

func issue(key, summary, status string, labels ...string) jira.Issue {
	return jira.Issue{Key: key, Fields: jira.Fields{
		Summary: summary,
		Status:  &jira.Status{Name: status},
		Labels:  labels,
	}}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		epic: issue("PROJ-1", "Checkout revamp", "In Progress"),
		issues: []jira.Issue{
			issue("PROJ-2", "Cart API", "Done", "backend"),
			issue("PROJ-3", "Cart UI", "To Do", "ui"),
		},
		update: jira.UpdateResult{Success: true, Status: http.StatusNoContent},
	}
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	gw      *fakeGateway
	journal *store.Store
	bus     *events.Bus
}

func newTestEnv(t *testing.T, withJournal bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := newFakeGateway()
	svc := service.New(service.Config{Gateway: gw, Mapping: fields.NewMapping(""), Logger: logger})

	env := &testEnv{gw: gw, bus: events.NewBus(0, logger)}
	var journal store.Journal
	var snapshots *snapshot.Store
	if withJournal {
		dir := t.TempDir()
		st, err := store.Open(filepath.Join(dir, "edits.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		env.journal = st
		journal = st

		snapshots, err = snapshot.Open(filepath.Join(dir, "snapshots"))
		if err != nil {
			t.Fatalf("open snapshots: %v", err)
		}
	}

	registry := session.NewRegistry(func(id, epicKey string) *session.Session {
		return session.New(session.Config{ID: id, EpicKey: epicKey, Backend: svc, Journal: journal, Logger: logger})
	}, env.bus, logger)
	t.Cleanup(func() {
		registry.Close()
		env.bus.Close()
	})

	env.srv = New(Config{
		Service:     svc,
		Sessions:    registry,
		Bus:         env.bus,
		Journal:     journal,
		Snapshots:   snapshots,
		Verifier:    auth.NewVerifier("", ""),
		DefaultEpic: "PROJ-1",
		Logger:      logger,
	})
	env.handler = env.srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if sessionID != "" {
		req.Header.Set(api.SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	errResp := decode[api.ErrorResponse](t, w)
	if errResp.ErrorCode != code {
		t.Fatalf("expected error_code %d, got %d", code, errResp.ErrorCode)
	}
}

func findNode(root models.TreeNode, key string) (models.TreeNode, bool) {
	if root.Key == key {
		return root, true
	}
	for _, child := range root.Children {
		if n, ok := findNode(child, key); ok {
			return n, true
		}
	}
	return models.TreeNode{}, false
}

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7433")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7433" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:7433")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7433")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7433" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func TestWithAuth(t *testing.T) {
	next := func(called *bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true
			w.WriteHeader(http.StatusNoContent)
		})
	}

	t.Run("denies missing auth", func(t *testing.T) {
		srv := &Server{verifier: auth.NewVerifier("token", "")}
		nextCalled := false
		w := httptest.NewRecorder()
		srv.withAuth(next(&nextCalled)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
		expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
		if nextCalled {
			t.Fatal("next handler should not be called")
		}
	})

	t.Run("allows valid auth", func(t *testing.T) {
		srv := &Server{verifier: auth.NewVerifier("token", "")}
		nextCalled := false
		req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()
		srv.withAuth(next(&nextCalled)).ServeHTTP(w, req)
		if w.Code != http.StatusNoContent || !nextCalled {
			t.Fatalf("expected 204 from next handler, got %d", w.Code)
		}
	})

	t.Run("accepts hashed token", func(t *testing.T) {
		hash, err := auth.HashToken("a-long-enough-token")
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		srv := &Server{verifier: auth.NewVerifier("", hash)}
		nextCalled := false
		req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
		req.Header.Set("Authorization", "bearer a-long-enough-token")
		w := httptest.NewRecorder()
		srv.withAuth(next(&nextCalled)).ServeHTTP(w, req)
		if !nextCalled {
			t.Fatalf("expected hashed token to pass, got %d", w.Code)
		}
	})

	t.Run("health is exempt", func(t *testing.T) {
		srv := &Server{verifier: auth.NewVerifier("token", "")}
		nextCalled := false
		w := httptest.NewRecorder()
		srv.withAuth(next(&nextCalled)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if !nextCalled {
			t.Fatal("health should bypass auth")
		}
	})

	t.Run("open when no token configured", func(t *testing.T) {
		srv := &Server{}
		nextCalled := false
		w := httptest.NewRecorder()
		srv.withAuth(next(&nextCalled)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
		if !nextCalled {
			t.Fatal("expected request to pass without configured token")
		}
	})
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodGet, "/v1/info", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	info := decode[api.InfoResponse](t, w)
	if info.DefaultEpic != "PROJ-1" || !info.Journal || len(info.Operations) != len(service.Operations()) {
		t.Fatalf("unexpected info %#v", info)
	}
}

func TestCloseSession(t *testing.T) {
	env := newTestEnv(t, false)

	if w := env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree?status=Done", "viewer-a", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodDelete, "/v1/sessions/viewer-a", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	info := decode[api.InfoResponse](t, env.do(t, http.MethodGet, "/v1/info", "", nil))
	for _, id := range info.Sessions {
		if id == "viewer-a" {
			t.Fatalf("closed session still listed: %v", info.Sessions)
		}
	}
	expectError(t, env.do(t, http.MethodDelete, "/v1/sessions/viewer-a", "", nil), http.StatusNotFound, ErrCodeNotFound)

	// A new session with the same id starts without the old filters.
	view := decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer-a", nil))
	if len(view.Tree.Children) != 2 {
		t.Fatalf("expected unfiltered tree, got %#v", view.Tree)
	}
}

func TestTreeFiltersPersistPerSession(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree?status=Done", "viewer-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[api.TreeResponse](t, w)
	if view.Tree.Key != "PROJ-1" || len(view.Tree.Children) != 1 || view.Tree.Children[0].Key != "PROJ-2" {
		t.Fatalf("unexpected filtered tree %#v", view.Tree)
	}
	if len(view.Options.Statuses) < 2 {
		t.Fatalf("options should come from the unfiltered tree, got %#v", view.Options)
	}

	view = decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer-a", nil))
	if len(view.Tree.Children) != 1 {
		t.Fatalf("filters should persist for the session, got %d children", len(view.Tree.Children))
	}

	view = decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer-b", nil))
	if len(view.Tree.Children) != 2 {
		t.Fatalf("other sessions should be unfiltered, got %d children", len(view.Tree.Children))
	}

	view = decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree?status=", "viewer-a", nil))
	if len(view.Tree.Children) != 2 {
		t.Fatalf("empty filter params should clear filters, got %d children", len(view.Tree.Children))
	}
}

func TestTreeDefaultEpicAndValidation(t *testing.T) {
	env := newTestEnv(t, false)

	view := decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/-/tree", "", nil))
	if view.EpicKey != "PROJ-1" {
		t.Fatalf("expected default epic, got %q", view.EpicKey)
	}

	expectError(t, env.do(t, http.MethodGet, "/v1/epics/not%20a%20key/tree", "", nil), http.StatusBadRequest, ErrCodeInvalidKey)
	expectError(t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree?blocking=sometimes", "", nil), http.StatusBadRequest, ErrCodeInvalidFilter)
}

func TestTreeBlockingFilterIgnoresCase(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree?blocking=Blocked", "viewer-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view := decode[api.TreeResponse](t, w)
	if len(view.Filters.BlockingStatus) != 1 || view.Filters.BlockingStatus[0] != "blocked" {
		t.Fatalf("expected normalized blocking filter, got %#v", view.Filters.BlockingStatus)
	}
}

func TestRefreshAndSummary(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/v1/epics/PROJ-1/refresh", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	refresh := decode[api.RefreshResponse](t, w)
	if !refresh.Committed || refresh.Generation != 1 {
		t.Fatalf("unexpected refresh %#v", refresh)
	}

	summary := decode[api.SummaryResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/summary", "", nil))
	if summary.Issues != 2 || summary.ByStatus["Done"] != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
}

func TestUpdateFieldFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, true)
	env.gw.update = jira.UpdateResult{Success: false, Status: http.StatusBadRequest, Error: "Field 'labels' cannot be set"}

	env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer", nil)
	w := env.do(t, http.MethodPut, "/v1/issues/PROJ-2/fields/labels", "viewer", api.EditRequest{Value: []string{"urgent"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode[api.EditResponse](t, w)
	if res.Success || res.Status != http.StatusBadRequest || res.Error == "" {
		t.Fatalf("unexpected edit result %#v", res)
	}

	view := decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer", nil))
	node, ok := findNode(view.Tree, "PROJ-2")
	if !ok || len(node.Labels) != 1 || node.Labels[0] != "backend" {
		t.Fatalf("expected original labels after rollback, got %#v", node.Labels)
	}
	if len(view.Pending) != 0 {
		t.Fatalf("expected no pending overlay entries, got %#v", view.Pending)
	}
	if view.EditErrors["PROJ-2"]["labels"] != res.Error {
		t.Fatalf("expected inline error, got %#v", view.EditErrors)
	}

	edits := decode[api.EditsResponse](t, env.do(t, http.MethodGet, "/v1/issues/PROJ-2/edits", "", nil))
	if len(edits.Edits) != 1 || edits.Edits[0].Success || edits.Edits[0].SessionID != "viewer" {
		t.Fatalf("unexpected journal %#v", edits.Edits)
	}
}

func TestUpdateFieldSuccessShowsOverlay(t *testing.T) {
	env := newTestEnv(t, false)

	env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer", nil)
	res := decode[api.EditResponse](t, env.do(t, http.MethodPut, "/v1/issues/PROJ-3/fields/storyPoints", "viewer", api.EditRequest{Value: 5}))
	if !res.Success {
		t.Fatalf("expected success, got %#v", res)
	}

	view := decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer", nil))
	node, _ := findNode(view.Tree, "PROJ-3")
	if node.StoryPoints != 5 {
		t.Fatalf("expected overlaid story points, got %v", node.StoryPoints)
	}
	if calls := env.gw.updateCalls(); len(calls) != 1 || calls[0] != "PROJ-3:storyPoints" {
		t.Fatalf("unexpected gateway writes %v", calls)
	}
}

func TestUpdateFieldWithoutSession(t *testing.T) {
	env := newTestEnv(t, true)

	res := decode[api.EditResponse](t, env.do(t, http.MethodPut, "/v1/issues/PROJ-9/fields/summary", "", api.EditRequest{Value: "  New title "}))
	if !res.Success {
		t.Fatalf("expected success, got %#v", res)
	}
	if calls := env.gw.updateCalls(); len(calls) != 1 {
		t.Fatalf("expected a direct write, got %v", calls)
	}

	res = decode[api.EditResponse](t, env.do(t, http.MethodPut, "/v1/issues/PROJ-9/fields/summary", "", api.EditRequest{Value: "   "}))
	if res.Success || res.Error != "Summary cannot be empty" {
		t.Fatalf("expected validation failure, got %#v", res)
	}
	if calls := env.gw.updateCalls(); len(calls) != 1 {
		t.Fatalf("invalid values must not reach the gateway, got %v", calls)
	}

	edits := decode[api.EditsResponse](t, env.do(t, http.MethodGet, "/v1/issues/PROJ-9/edits?limit=10", "", nil))
	if len(edits.Edits) != 2 || edits.Edits[0].Success || !edits.Edits[1].Success {
		t.Fatalf("unexpected journal %#v", edits.Edits)
	}
}

func TestUpdateFieldRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, false)

	expectError(t, env.do(t, http.MethodPut, "/v1/issues/PROJ-2/fields/status", "", api.EditRequest{Value: "Done"}), http.StatusBadRequest, ErrCodeInvalidField)
	expectError(t, env.do(t, http.MethodPut, "/v1/issues/nokey/fields/summary", "", api.EditRequest{Value: "x"}), http.StatusBadRequest, ErrCodeInvalidKey)

	req := httptest.NewRequest(http.MethodPut, "/v1/issues/PROJ-2/fields/summary", strings.NewReader("{"))
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	expectError(t, w, http.StatusBadRequest, ErrCodeInvalidJSON)
}

func TestListEditsWithoutJournal(t *testing.T) {
	env := newTestEnv(t, false)
	expectError(t, env.do(t, http.MethodGet, "/v1/issues/PROJ-2/edits", "", nil), http.StatusNotImplemented, ErrCodeJournalDisabled)
}

func TestInvoke(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/v1/invoke/fetchPriorities", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[api.InvokeResponse](t, w)
	var priorities []jira.Priority
	if err := json.Unmarshal(resp.Result, &priorities); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if resp.Operation != service.OpFetchPriorities || len(priorities) != 2 {
		t.Fatalf("unexpected invoke response %#v", resp)
	}

	w = env.do(t, http.MethodPost, "/v1/invoke/updateIssueField", "", map[string]any{
		"issueKey": "PROJ-2", "fieldName": "storyPoints", "fieldValue": "abc",
	})
	var update jira.UpdateResult
	if err := json.Unmarshal(decode[api.InvokeResponse](t, w).Result, &update); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if update.Success || update.Error != "Story points must be a number" {
		t.Fatalf("unexpected update result %#v", update)
	}

	expectError(t, env.do(t, http.MethodPost, "/v1/invoke/dropTables", "", nil), http.StatusNotFound, ErrCodeOperationNotFound)
	expectError(t, env.do(t, http.MethodPost, "/v1/invoke/fetchIssueById", "", map[string]any{}), http.StatusBadRequest, ErrCodeInvalidPayload)
}

func TestLayoutEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/v1/epics/PROJ-1/layout?mode=polar&link=line", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[api.LayoutResponse](t, w)
	if len(resp.Layout.Nodes) != 3 || len(resp.Layout.Links) != 2 || resp.Minimap == nil || resp.Scroll != nil {
		t.Fatalf("unexpected layout %#v", resp)
	}

	// The tree fits the default viewport so any click clamps to the origin.
	clicked := decode[api.LayoutResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/layout?minimap_x=40&minimap_y=10", "", nil))
	if clicked.Scroll == nil || clicked.Scroll.X != 0 || clicked.Scroll.Y != 0 {
		t.Fatalf("expected clamped scroll offsets, got %#v", clicked.Scroll)
	}
	expectError(t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/layout?minimap_x=-1", "", nil), http.StatusBadRequest, ErrCodeInvalidQuery)

	expectError(t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/layout?mode=spiral", "", nil), http.StatusBadRequest, ErrCodeInvalidLayout)
	expectError(t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/layout?width=wide", "", nil), http.StatusBadRequest, ErrCodeInvalidQuery)
}

func TestRenderRejectsUnboundedSizes(t *testing.T) {
	env := newTestEnv(t, false)

	for _, query := range []string{"width=NaN", "width=Inf", "height=-Inf", "scroll_x=NaN", "step_percent=NaN"} {
		expectError(t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/render.png?"+query, "", nil), http.StatusBadRequest, ErrCodeInvalidQuery)
	}
	for _, query := range []string{"width=1e9", "width=100000&height=100000", "height=16385"} {
		expectError(t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/render.png?"+query, "", nil), http.StatusBadRequest, ErrCodeInvalidLayout)
	}

	w := env.do(t, http.MethodGet, "/v1/epics/PROJ-1/render.png?width=2000&height=1000", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a bounded canvas, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRender(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		path        string
		contentType string
		prefix      string
	}{
		{"/v1/epics/PROJ-1/render.svg", "image/svg+xml", "<?xml"},
		{"/v1/epics/PROJ-1/render.png?orientation=horizontal&legend=false", "image/png", "\x89PNG"},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodGet, tt.path, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", tt.path, w.Code, w.Body.String())
		}
		if got := w.Header().Get("Content-Type"); got != tt.contentType {
			t.Fatalf("%s: expected %s, got %s", tt.path, tt.contentType, got)
		}
		if !strings.HasPrefix(w.Body.String(), tt.prefix) {
			t.Fatalf("%s: unexpected body prefix %q", tt.path, w.Body.String()[:min(8, w.Body.Len())])
		}
	}
}

func TestRenderSnapshots(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/v1/epics/PROJ-1/render.svg?save=true", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	key := w.Header().Get(api.SnapshotHeader)
	if !snapshot.ValidKey(key) || !strings.HasSuffix(key, ".svg") {
		t.Fatalf("expected snapshot key, got %q", key)
	}
	rendered := w.Body.String()

	got := env.do(t, http.MethodGet, "/v1/snapshots/"+key, "", nil)
	if got.Code != http.StatusOK || got.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("expected saved svg, got %d %q", got.Code, got.Header().Get("Content-Type"))
	}
	if got.Body.String() != rendered {
		t.Fatal("snapshot body differs from the render")
	}

	if w := env.do(t, http.MethodDelete, "/v1/snapshots/"+key, "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	expectError(t, env.do(t, http.MethodGet, "/v1/snapshots/"+key, "", nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, env.do(t, http.MethodGet, "/v1/snapshots/sha256/zz/nope.svg", "", nil), http.StatusBadRequest, ErrCodeInvalidKey)
}

func TestRenderSaveWithoutSnapshots(t *testing.T) {
	env := newTestEnv(t, false)
	expectError(t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/render.png?save=true", "", nil), http.StatusNotImplemented, ErrCodeSnapshotsDisabled)
	expectError(t, env.do(t, http.MethodGet, "/v1/snapshots/sha256/ab/x.png", "", nil), http.StatusNotImplemented, ErrCodeSnapshotsDisabled)
}

func TestIssueChangedRefreshesWatchingSessions(t *testing.T) {
	env := newTestEnv(t, false)

	view := decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer", nil))
	if view.Generation != 1 {
		t.Fatalf("expected first load, got generation %d", view.Generation)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.bus.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	env.gw.setEpicSummary("Checkout v2")
	resp := decode[api.IssueChangedResponse](t, env.do(t, http.MethodPost, "/v1/events/issue-changed", "", api.IssueChangedRequest{
		IssueKey: "proj-2",
		EpicKey:  "PROJ-1",
		Fields:   []string{fields.Summary},
	}))
	if resp.Delivered != 1 {
		t.Fatalf("expected one subscriber, got %d", resp.Delivered)
	}

	for {
		view = decode[api.TreeResponse](t, env.do(t, http.MethodGet, "/v1/epics/PROJ-1/tree", "viewer", nil))
		if view.Tree.Name == "Checkout v2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session was not refreshed, name %q", view.Tree.Name)
		}
		time.Sleep(5 * time.Millisecond)
	}

	expectError(t, env.do(t, http.MethodPost, "/v1/events/issue-changed", "", api.IssueChangedRequest{IssueKey: "??"}), http.StatusBadRequest, ErrCodeInvalidKey)
}

func TestRenderLimiterRejectsWhenFull(t *testing.T) {
	srv := &Server{renderLimiter: make(chan struct{}, 1)}
	srv.renderLimiter <- struct{}{}

	called := false
	w := httptest.NewRecorder()
	srv.withLimiter(w, httptest.NewRequest(http.MethodGet, "/v1/epics/PROJ-1/render.svg", nil), srv.renderLimiter, "render", func() {
		called = true
	})
	expectError(t, w, http.StatusTooManyRequests, ErrCodeResourceExhausted)
	if called {
		t.Fatal("handler should not run when the limiter is full")
	}
}
