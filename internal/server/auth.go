package server

import (
	"fmt"
	"net/http"

	"epictree/internal/auth"
)

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || !s.verifier.Required() {
			next.ServeHTTP(w, r)
			return
		}
		if !s.verifier.Verify(auth.BearerToken(r.Header.Get("Authorization"))) {
			err := makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, fmt.Errorf("missing or invalid bearer token"))
			s.writeErrorReq(w, r, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
