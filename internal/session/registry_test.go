package session

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"epictree/internal/events"
)

func testRegistry(backend Backend, bus *events.Bus) *Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistry(func(id, epicKey string) *Session {
		return New(Config{ID: id, EpicKey: epicKey, Backend: backend, Logger: logger})
	}, bus, logger)
}

func TestRegistryGetReusesAndReplaces(t *testing.T) {
	reg := testRegistry(&fakeBackend{}, nil)
	defer reg.Close()

	a, err := reg.Get("", "E1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.ID() != DefaultID {
		t.Fatalf("expected default id, got %q", a.ID())
	}
	b, _ := reg.Get(DefaultID, "E1")
	if a != b {
		t.Fatal("expected the same session")
	}

	c, _ := reg.Get(DefaultID, "E2")
	if c == a || !a.Closed() || c.EpicKey() != "E2" {
		t.Fatal("switching epics should replace and close the old session")
	}
	if ids := reg.IDs(); len(ids) != 1 || ids[0] != DefaultID {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestRegistryRemoveAndClose(t *testing.T) {
	bus := events.NewBus(4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()
	reg := testRegistry(&fakeBackend{}, bus)

	s1, _ := reg.Get("one", "E1")
	if _, err := reg.Get("two", "E1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	waitFor(t, func() bool { return bus.Subscribers() == 2 })

	reg.Remove("one")
	if !s1.Closed() {
		t.Fatal("removed session should be closed")
	}
	if _, ok := reg.Lookup("one"); ok {
		t.Fatal("removed session should be gone")
	}
	waitFor(t, func() bool { return bus.Subscribers() == 1 })

	reg.Close()
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after close, got %d", bus.Subscribers())
	}
	if _, err := reg.Get("three", "E1"); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestRegistrySessionsRefreshOnEvents(t *testing.T) {
	backend := &fakeBackend{}
	bus := events.NewBus(4, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()
	reg := testRegistry(backend, bus)
	defer reg.Close()

	s, _ := reg.Get("one", "E1")
	waitFor(t, func() bool { return bus.Subscribers() == 1 })
	bus.Publish(events.Event{Name: events.IssueChanged, EpicKey: "E1"})
	waitFor(t, func() bool { return backend.loadCount() == 1 })
	if err := s.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("ensure loaded: %v", err)
	}
}
