package session

import (
	"context"

	"epictree/internal/events"
)

// Watch refreshes the session whenever an issue-changed event for its epic
// arrives. It returns when ctx is done, the bus closes or the session closes.
func (s *Session) Watch(ctx context.Context, bus *events.Bus) {
	ch, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if !s.wants(event) {
				continue
			}
			s.logger.Debug("change event", "issue", event.IssueKey, "source", event.Source)
			if _, err := s.Refresh(ctx); err != nil {
				return
			}
		}
	}
}

func (s *Session) wants(event events.Event) bool {
	if event.Name != events.IssueChanged {
		return false
	}
	return event.EpicKey == "" || event.EpicKey == s.epicKey
}
