package events

import (
	"io"
	"log/slog"
	"testing"
)

func quietBus(size int) *Bus {
	return NewBus(size, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishSubscribe(t *testing.T) {
	bus := quietBus(4)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(Event{Name: IssueChanged, IssueKey: "K1"})
	got := <-ch
	if got.Name != IssueChanged || got.IssueKey != "K1" || got.Timestamp.IsZero() {
		t.Fatalf("unexpected event %#v", got)
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := quietBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(Event{Name: IssueChanged, IssueKey: "K1"})
	bus.Publish(Event{Name: IssueChanged, IssueKey: "K2"})

	if got := <-ch; got.IssueKey != "K1" {
		t.Fatalf("expected first event, got %#v", got)
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected second event to be dropped, got %#v", ev)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := quietBus(1)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.Subscribers())
	}
	bus.Publish(Event{Name: IssueChanged})
}

func TestCloseBus(t *testing.T) {
	bus := quietBus(1)
	ch, cancel := bus.Subscribe()
	bus.Close()
	bus.Close()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed by Close")
	}
	late, _ := bus.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
	bus.Publish(Event{Name: IssueChanged})
}
