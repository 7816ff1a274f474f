package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"epictree/internal/render"
	"epictree/internal/snapshot"
)

func snapshotsDisabled() error {
	return makeAPIError(http.StatusNotImplemented, "unimplemented", ErrCodeSnapshotsDisabled, fmt.Errorf("snapshot storage is not configured"))
}

// pathSnapshotKey validates the key wildcard. The key carries the image
// format as its extension.
func (s *Server) pathSnapshotKey(w http.ResponseWriter, r *http.Request) (string, render.Format, bool) {
	if s.snapshots == nil {
		s.writeServiceError(w, r, snapshotsDisabled())
		return "", "", false
	}
	key := r.PathValue("key")
	if !snapshot.ValidKey(key) {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("invalid snapshot key"), ErrCodeInvalidKey))
		return "", "", false
	}
	format, err := render.FormatFromPath(key)
	if err != nil {
		s.writeServiceError(w, r, badRequestCode(err, ErrCodeInvalidKey))
		return "", "", false
	}
	return key, format, true
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	key, format, ok := s.pathSnapshotKey(w, r)
	if !ok {
		return
	}
	rc, err := s.snapshots.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			s.writeServiceError(w, r, notFoundCode(err, ErrCodeNotFound))
			return
		}
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.log().Warn("write snapshot", "key", key, "error", err)
	}
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	key, _, ok := s.pathSnapshotKey(w, r)
	if !ok {
		return
	}
	if err := s.snapshots.Delete(r.Context(), key); err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
