package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"epictree/internal/api"
	"epictree/internal/service"
)

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	operation := strings.TrimSpace(r.PathValue("operation"))
	s.withLimiter(w, r, s.invokeLimiter, "invoke", func() {
		var payload json.RawMessage
		if err := decodeJSON(w, r, &payload); err != nil && !errors.Is(err, io.EOF) {
			s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
			return
		}

		result, err := s.service.Invoke(r.Context(), operation, payload)
		switch {
		case errors.Is(err, service.ErrUnknownOperation):
			s.writeServiceError(w, r, notFoundCode(err, ErrCodeOperationNotFound))
			return
		case errors.Is(err, service.ErrInvalidPayload):
			s.writeServiceError(w, r, badRequestCode(err, ErrCodeInvalidPayload))
			return
		case err != nil:
			s.writeServiceError(w, r, internalError(err))
			return
		}

		raw, err := json.Marshal(result)
		if err != nil {
			s.writeServiceError(w, r, internalError(err))
			return
		}
		s.writeJSON(w, http.StatusOK, api.InvokeResponse{Operation: operation, Result: raw})
	})
}
