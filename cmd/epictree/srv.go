package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"epictree/internal/auth"
	"epictree/internal/config"
	"epictree/internal/events"
	"epictree/internal/fields"
	"epictree/internal/jira"
	"epictree/internal/overlay"
	"epictree/internal/server"
	"epictree/internal/service"
	"epictree/internal/session"
	"epictree/internal/snapshot"
	"epictree/internal/store"
)

const apiTokenEnvKey = "EPICTREE_API_TOKEN"

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the epictree API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if strings.TrimSpace(cfg.Jira.BaseURL) == "" {
				return fmt.Errorf("jira.base_url is required (set it with: epictree config set jira.base_url <url>)")
			}

			logger := slog.Default().With("component", "server")
			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			var journal store.Journal
			var snapshots *snapshot.Store
			if cfg.DBPath != "" {
				logger.Info("opening edit journal", "path", cfg.DBPath)
				st, err := store.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()
				journal = st

				snapshots, err = snapshot.Open(filepath.Join(filepath.Dir(cfg.DBPath), ".epictree", "snapshots"))
				if err != nil {
					return err
				}
			}

			svc := newService(cfg, logger)
			bus := events.NewBus(events.DefaultBufferSize, logger.With("component", "events"))
			defer bus.Close()

			ttl := cfg.OverlayTTL()
			sessionLogger := logger.With("component", "session")
			registry := session.NewRegistry(func(id, epicKey string) *session.Session {
				return session.New(session.Config{
					ID:      id,
					EpicKey: epicKey,
					Backend: svc,
					Overlay: overlay.New(overlay.WithTTL(ttl)),
					Journal: journal,
					Logger:  sessionLogger,
				})
			}, bus, sessionLogger)
			defer registry.Close()

			srv := server.New(server.Config{
				Addr:        addr,
				Service:     svc,
				Sessions:    registry,
				Bus:         bus,
				Journal:     journal,
				Snapshots:   snapshots,
				Verifier:    auth.NewVerifier(os.Getenv(apiTokenEnvKey), cfg.Server.APITokenHash),
				DefaultEpic: cfg.Server.DefaultEpic,
				JiraSite:    cfg.Jira.BaseURL,
				Logger:      logger,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}

// newService builds the Jira-backed service from config.
func newService(cfg *config.Config, logger *slog.Logger) *service.Service {
	mapping := fields.NewMapping(cfg.Fields.StoryPoints)
	gw := jira.New(jira.Config{
		BaseURL:  cfg.Jira.BaseURL,
		Email:    cfg.Jira.Email,
		APIToken: cfg.Jira.APIToken,
		Mapping:  mapping,
		Limits: jira.Limits{
			EpicIssuesMaxResults:      cfg.Limits.EpicIssuesMaxResults,
			SubtasksMaxResults:        cfg.Limits.SubtasksMaxResults,
			AssignableUsersMaxResults: cfg.Limits.AssignableUsersMaxResults,
		},
		Logger: logger.With("component", "jira"),
	})
	return service.New(service.Config{
		Gateway: gw,
		Mapping: mapping,
		Context: service.Context{
			IssueKey:      cfg.Server.DefaultEpic,
			SiteURL:       cfg.Jira.BaseURL,
			EpicLinkField: cfg.Fields.EpicLink,
			SprintField:   cfg.Fields.Sprint,
		},
		Logger: logger.With("component", "service"),
	})
}
