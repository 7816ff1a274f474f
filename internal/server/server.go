package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"epictree/internal/auth"
	"epictree/internal/events"
	"epictree/internal/service"
	"epictree/internal/session"
	"epictree/internal/snapshot"
	"epictree/internal/store"
)

const (
	allowRemoteEnvKey      = "EPICTREE_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 30 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	shutdownTimeout        = 10 * time.Second
	renderConcurrencyLimit = 2
	invokeConcurrencyLimit = 8
)

// Config wires a Server.
type Config struct {
	Addr        string
	Service     *service.Service
	Sessions    *session.Registry
	Bus         *events.Bus
	Journal     store.Journal
	Snapshots   *snapshot.Store
	Verifier    *auth.Verifier
	DefaultEpic string
	JiraSite    string
	Logger      *slog.Logger
}

// Server wraps HTTP handlers for the epictree API.
type Server struct {
	addr          string
	service       *service.Service
	sessions      *session.Registry
	bus           *events.Bus
	journal       store.Journal
	snapshots     *snapshot.Store
	verifier      *auth.Verifier
	defaultEpic   string
	jiraSite      string
	logger        *slog.Logger
	renderLimiter chan struct{}
	invokeLimiter chan struct{}
}

// New creates a new server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:          cfg.Addr,
		service:       cfg.Service,
		sessions:      cfg.Sessions,
		bus:           cfg.Bus,
		journal:       cfg.Journal,
		snapshots:     cfg.Snapshots,
		verifier:      cfg.Verifier,
		defaultEpic:   strings.TrimSpace(cfg.DefaultEpic),
		jiraSite:      cfg.JiraSite,
		logger:        logger,
		renderLimiter: make(chan struct{}, renderConcurrencyLimit),
		invokeLimiter: make(chan struct{}, invokeConcurrencyLimit),
	}
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr, "auth", s.verifier.Required())
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
