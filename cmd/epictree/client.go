package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/exec"
	"time"

	"epictree/internal/api"
	"epictree/internal/config"
)

const (
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
	serverPingTimeout  = 500 * time.Millisecond
)

// withClient runs fn against the configured server, spawning a local
// `epictree srv` for the duration of fn when a loopback API is not up yet.
func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	client := api.NewClient(cfg.APIURL)
	stop, err := ensureLocalServer(cfg, client)
	if err != nil {
		return err
	}
	if stop != nil {
		defer stop()
	}
	return fn(client)
}

func ensureLocalServer(cfg *config.Config, client *api.Client) (func(), error) {
	if !isLoopbackURL(cfg.APIURL) {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverPingTimeout)
	defer cancel()
	if err := client.Ping(ctx); err == nil {
		return nil, nil
	}

	cmd, err := spawnServer(cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("spawned local server", "pid", cmd.Process.Pid, "api_url", cfg.APIURL)

	stop := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	if err := waitForServer(client, serverStartTimeout); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

func spawnServer(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"EPICTREE_DB="+cfg.DBPath,
		"EPICTREE_API_URL="+cfg.APIURL,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isDialError(err) {
			// Something else owns the port.
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// isLoopbackURL reports whether raw points at this machine. Remote servers
// are never spawned.
func isLoopbackURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
