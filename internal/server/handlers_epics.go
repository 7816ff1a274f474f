package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"epictree/internal/api"
	"epictree/internal/layout"
	"epictree/internal/render"
	"epictree/internal/session"
	"epictree/internal/tree"
)

const (
	defaultViewportWidth  = 1200
	defaultViewportHeight = 800
	minimapMaxWidth       = 200
	minimapMaxHeight      = 150
)

// loadedSession resolves the caller's session for epicID and loads its tree
// on first use.
func (s *Server) loadedSession(w http.ResponseWriter, r *http.Request, epicID string) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Header.Get(api.SessionHeader), epicID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	if err := sess.EnsureLoaded(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	epicID, ok := s.pathEpicID(w, r)
	if !ok {
		return
	}
	filters, set, err := filtersFromQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sess, ok := s.loadedSession(w, r, epicID)
	if !ok {
		return
	}
	if set {
		sess.SetFilters(filters)
	}
	s.writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	epicID, ok := s.pathEpicID(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(r.Header.Get(api.SessionHeader), epicID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	committed, err := sess.Refresh(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RefreshResponse{Committed: committed, Generation: sess.Generation()})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	epicID, ok := s.pathEpicID(w, r)
	if !ok {
		return
	}
	sess, ok := s.loadedSession(w, r, epicID)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, tree.Summarize(sess.Tree()))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	epicID, ok := s.pathEpicID(w, r)
	if !ok {
		return
	}
	l, minimap, ok := s.computeLayout(w, r, epicID)
	if !ok {
		return
	}
	resp := api.LayoutResponse{Layout: l, Minimap: minimap}

	// A minimap click is answered with the scroll offsets that centre it.
	query := r.URL.Query()
	if query.Has("minimap_x") || query.Has("minimap_y") {
		var click layout.Point
		var err error
		if click.X, err = queryFloat(r, "minimap_x"); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if click.Y, err = queryFloat(r, "minimap_y"); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		view, _ := requestViewport(r)
		x, y := minimap.ScrollFor(click, view)
		resp.Scroll = &api.ScrollOffset{X: x, Y: y}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	epicID, ok := s.pathEpicID(w, r)
	if !ok {
		return
	}
	format, err := render.FormatFromPath(r.URL.Path)
	if err != nil {
		s.writeServiceError(w, r, badRequestCode(err, ErrCodeInvalidQuery))
		return
	}
	legend := true
	if r.URL.Query().Has("legend") {
		if legend, err = queryBool(r, "legend"); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	withMinimap, err := queryBool(r, "minimap")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	save, err := queryBool(r, "save")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if save && s.snapshots == nil {
		s.writeServiceError(w, r, snapshotsDisabled())
		return
	}

	s.withLimiter(w, r, s.renderLimiter, "render", func() {
		l, minimap, ok := s.computeLayout(w, r, epicID)
		if !ok {
			return
		}
		opts := render.Options{Title: epicID, Legend: legend}
		if len(l.Nodes) > 0 {
			opts.Title = strings.TrimSpace(l.Nodes[0].Name)
		}
		if withMinimap && minimap != nil && minimap.Visible {
			opts.Minimap = minimap
		}

		var buf bytes.Buffer
		if err := render.Write(&buf, format, l, opts); err != nil {
			if errors.Is(err, render.ErrCanvasTooLarge) {
				s.writeServiceError(w, r, badRequestCode(err, ErrCodeInvalidLayout))
				return
			}
			s.writeServiceError(w, r, makeAPIError(http.StatusInternalServerError, "internal", ErrCodeRenderFailed, err))
			return
		}
		if save {
			snap, err := s.snapshots.Put(r.Context(), string(format), bytes.NewReader(buf.Bytes()))
			if err != nil {
				s.writeServiceError(w, r, storeFailure(err))
				return
			}
			w.Header().Set(api.SnapshotHeader, snap.Key)
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			s.log().Warn("write rendered tree", "epic", epicID, "format", format, "error", err)
		}
	})
}

// computeLayout lays out the filtered session tree and its minimap.
func (s *Server) computeLayout(w http.ResponseWriter, r *http.Request, epicID string) (layout.Layout, *layout.Minimap, bool) {
	opts, err := layoutOptionsFromQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return layout.Layout{}, nil, false
	}
	view, err := requestViewport(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return layout.Layout{}, nil, false
	}

	sess, ok := s.loadedSession(w, r, epicID)
	if !ok {
		return layout.Layout{}, nil, false
	}
	l, err := layout.Compute(sess.View().Tree, opts)
	if err != nil {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("layout: %w", err), ErrCodeInvalidLayout))
		return layout.Layout{}, nil, false
	}
	minimap := layout.ComputeMinimap(l, view, minimapMaxWidth, minimapMaxHeight)
	return l, &minimap, true
}

// requestViewport reads the viewport from the query, defaulting its size.
func requestViewport(r *http.Request) (layout.Viewport, error) {
	view, err := viewportFromQuery(r)
	if err != nil {
		return view, err
	}
	if view.Width == 0 {
		view.Width = defaultViewportWidth
	}
	if view.Height == 0 {
		view.Height = defaultViewportHeight
	}
	return view, nil
}
