// Package session holds the per-viewer state of one epic tree: the last
// assembled tree, the active filters, pending optimistic edits and the
// inline edit errors.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"epictree/internal/filter"
	"epictree/internal/jira"
	"epictree/internal/models"
	"epictree/internal/overlay"
	"epictree/internal/service"
	"epictree/internal/store"
	"epictree/internal/tree"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Backend loads trees and writes fields.
type Backend interface {
	LoadTree(ctx context.Context, epicID string) tree.Result
	UpdateIssueField(ctx context.Context, req service.UpdateIssueFieldRequest) jira.UpdateResult
}

// Config configures a Session.
type Config struct {
	ID      string
	EpicKey string
	Backend Backend
	Overlay *overlay.Overlay
	Journal store.Journal
	Logger  *slog.Logger
	Now     func() time.Time
}

// Session is safe for concurrent use.
type Session struct {
	id      string
	epicKey string
	backend Backend
	overlay *overlay.Overlay
	journal store.Journal
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	generation uint64
	closed     bool
	loaded     bool
	loadedAt   time.Time
	result     tree.Result
	filters    models.FilterState
	editErrors map[string]map[string]string
}

// New creates a Session. Nothing is fetched until Refresh.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ov := cfg.Overlay
	if ov == nil {
		ov = overlay.New()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:         cfg.ID,
		epicKey:    cfg.EpicKey,
		backend:    cfg.Backend,
		overlay:    ov,
		journal:    cfg.Journal,
		logger:     logger.With("session", cfg.ID, "epic", cfg.EpicKey),
		now:        now,
		editErrors: map[string]map[string]string{},
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// EpicKey returns the epic this session shows.
func (s *Session) EpicKey() string {
	return s.epicKey
}

// Overlay returns the session's optimistic overlay.
func (s *Session) Overlay() *overlay.Overlay {
	return s.overlay
}

// Refresh loads the tree and commits it unless a newer refresh started or
// the session closed while loading. It reports whether the result was
// committed.
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	result := s.backend.LoadTree(ctx, s.epicKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if gen != s.generation {
		s.logger.Debug("discarding stale tree", "generation", gen, "current", s.generation)
		return false, nil
	}
	s.result = result
	s.loaded = true
	s.loadedAt = s.now()
	return true, nil
}

// Generation returns the number of refreshes started so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// EnsureLoaded refreshes once if nothing was loaded yet.
func (s *Session) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded, closed := s.loaded, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if loaded {
		return nil
	}
	_, err := s.Refresh(ctx)
	return err
}

// SetFilters replaces the active filters.
func (s *Session) SetFilters(filters models.FilterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters.Normalized()
}

// View is what a viewer sees.
type View struct {
	SessionID  string                       `json:"sessionId" yaml:"sessionId"`
	EpicKey    string                       `json:"epicKey" yaml:"epicKey"`
	Tree       models.TreeNode              `json:"tree" yaml:"tree"`
	Filters    models.FilterState           `json:"filters" yaml:"filters"`
	Options    filter.Options               `json:"options" yaml:"options"`
	Warnings   []string                     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	EditErrors map[string]map[string]string `json:"editErrors,omitempty" yaml:"editErrors,omitempty"`
	Pending    []overlay.Entry              `json:"pending,omitempty" yaml:"pending,omitempty"`
	Generation uint64                       `json:"generation" yaml:"generation"`
	LoadedAt   time.Time                    `json:"loadedAt" yaml:"loadedAt"`
}

// View applies pending edits to the last loaded tree and then the filters.
// Filter options come from the unfiltered tree.
func (s *Session) View() View {
	s.mu.Lock()
	result := s.result
	filters := s.filters
	view := View{
		SessionID:  s.id,
		EpicKey:    s.epicKey,
		Filters:    filters,
		Warnings:   append([]string(nil), result.Warnings...),
		EditErrors: copyErrors(s.editErrors),
		Generation: s.generation,
		LoadedAt:   s.loadedAt,
	}
	s.mu.Unlock()

	overlaid := s.overlay.Apply(result.Root)
	view.Options = filter.OptionsFor(overlaid)
	view.Tree = filter.Apply(overlaid, filters)
	view.Pending = s.overlay.Live()
	return view
}

// Tree returns the overlaid, unfiltered tree.
func (s *Session) Tree() models.TreeNode {
	s.mu.Lock()
	root := s.result.Root
	s.mu.Unlock()
	return s.overlay.Apply(root)
}

// EditError returns the inline error for a field, if any.
func (s *Session) EditError(issueKey, field string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.editErrors[issueKey][field]
	return msg, ok
}

// Close stops the session and drops its pending edits. In-flight refreshes
// are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.overlay.Reset()
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) setEditError(issueKey, field, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == "" {
		delete(s.editErrors[issueKey], field)
		if len(s.editErrors[issueKey]) == 0 {
			delete(s.editErrors, issueKey)
		}
		return
	}
	if s.editErrors[issueKey] == nil {
		s.editErrors[issueKey] = map[string]string{}
	}
	s.editErrors[issueKey][field] = msg
}

func copyErrors(in map[string]map[string]string) map[string]map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]map[string]string, len(in))
	for key, fieldsByName := range in {
		inner := make(map[string]string, len(fieldsByName))
		for f, msg := range fieldsByName {
			inner[f] = msg
		}
		out[key] = inner
	}
	return out
}

func sortedKeys(m map[string]*Session) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
