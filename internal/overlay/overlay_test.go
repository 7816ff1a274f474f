package overlay

import (
	"sync"
	"testing"
	"time"

	"epictree/internal/fields"
	"epictree/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestOverlay() (*Overlay, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now)), clock
}

func TestSetGetExpiry(t *testing.T) {
	o, clock := newTestOverlay()
	o.Set("K1", fields.Priority, "2")

	v, ok := o.Get("K1", fields.Priority)
	if !ok || v != "2" {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	clock.Advance(30 * time.Second)
	if !o.Has("K1", fields.Priority) {
		t.Fatal("entry should still be live at exactly the window")
	}

	clock.Advance(time.Millisecond)
	if _, ok := o.Get("K1", fields.Priority); ok {
		t.Fatal("expected expired entry to be absent")
	}
	if o.Has("K1", fields.Priority) {
		t.Fatal("Has must mirror expiry")
	}
	if len(o.Live()) != 0 {
		t.Fatal("expired entry should have been evicted")
	}
}

func TestSetOverwritesWithFreshTimestamp(t *testing.T) {
	o, clock := newTestOverlay()
	o.Set("K1", fields.Summary, "first")
	clock.Advance(20 * time.Second)
	o.Set("K1", fields.Summary, "second")
	clock.Advance(20 * time.Second)

	v, ok := o.Get("K1", fields.Summary)
	if !ok || v != "second" {
		t.Fatalf("Get = %v, %v", v, ok)
	}
}

func TestClearAndClearAll(t *testing.T) {
	o, _ := newTestOverlay()
	o.Set("K1", fields.Summary, "a")
	o.Set("K1", fields.Labels, []string{"x"})
	o.Set("K10", fields.Summary, "b")

	o.Clear("K1", fields.Summary)
	if o.Has("K1", fields.Summary) || !o.Has("K1", fields.Labels) {
		t.Fatal("Clear removed the wrong entries")
	}

	o.ClearAll("K1")
	if o.Has("K1", fields.Labels) {
		t.Fatal("ClearAll left an entry")
	}
	if !o.Has("K10", fields.Summary) {
		t.Fatal("ClearAll removed another entity's entry")
	}
}

func TestClearIfOnlyRemovesSameEntry(t *testing.T) {
	o, _ := newTestOverlay()
	older := o.Set("K1", fields.Summary, "old")
	newer := o.Set("K1", fields.Summary, "new")

	// Same clock reading, still distinct entries.
	if !older.Timestamp.Equal(newer.Timestamp) {
		t.Fatal("fake clock should not advance")
	}
	if o.Current(older) || !o.Current(newer) {
		t.Fatal("only the newest entry is current")
	}
	if o.ClearIf(older) {
		t.Fatal("stale entry should not clear the newer one")
	}
	if v, _ := o.Get("K1", fields.Summary); v != "new" {
		t.Fatalf("expected newer value kept, got %v", v)
	}
	if !o.ClearIf(newer) || o.Has("K1", fields.Summary) {
		t.Fatal("current entry should be cleared")
	}
	if o.ClearIf(newer) {
		t.Fatal("clearing twice should report false")
	}
}

func TestConfigurableTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	o := New(WithClock(clock.Now), WithTTL(5*time.Second))
	o.Set("K1", fields.Summary, "a")
	clock.Advance(6 * time.Second)
	if o.Has("K1", fields.Summary) {
		t.Fatal("expected custom ttl to expire entry")
	}
	if New(WithTTL(0)).TTL() != DefaultTTL {
		t.Fatal("non-positive ttl should keep the default")
	}
}

func TestStoredLabelsAreCopied(t *testing.T) {
	o, _ := newTestOverlay()
	labels := []string{"a"}
	o.Set("K1", fields.Labels, labels)
	labels[0] = "mutated"

	v, _ := o.Get("K1", fields.Labels)
	if got := v.([]string); got[0] != "a" {
		t.Fatalf("stored labels changed to %v", got)
	}
}

func TestApplyOverridesFields(t *testing.T) {
	o, _ := newTestOverlay()
	root := models.TreeNode{
		Key:  "E1",
		Name: "Epic",
		Children: []models.TreeNode{
			{
				Key:         "K1",
				Name:        "Old",
				Summary:     "Old",
				StoryPoints: 1,
				Priority:    &models.Priority{ID: "3", Name: "Medium"},
				Assignee:    &models.Person{AccountID: "a1", DisplayName: "Ada"},
				Labels:      []string{"x"},
			},
		},
	}

	o.Set("K1", fields.Summary, "New")
	o.Set("K1", fields.StoryPoints, 8.0)
	o.Set("K1", fields.Priority, "2", WithDisplayName("High"), WithIcon("high.svg"))
	o.Set("K1", fields.Assignee, nil)
	o.Set("K1", fields.Labels, []string{"y", "z"})

	got := o.Apply(root).Children[0]
	if got.Name != "New" || got.Summary != "New" || got.StoryPoints != 8 {
		t.Fatalf("summary/points not applied: %#v", got)
	}
	if got.PriorityName() != "High" || got.Priority.ID != "2" || got.Priority.IconURL != "high.svg" {
		t.Fatalf("priority not applied: %#v", got.Priority)
	}
	if got.HasAssignee() {
		t.Fatalf("assignee should be cleared, got %#v", got.Assignee)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "y" {
		t.Fatalf("labels not applied: %v", got.Labels)
	}

	orig := root.Children[0]
	if orig.Name != "Old" || orig.PriorityName() != "Medium" || !orig.HasAssignee() {
		t.Fatalf("input tree modified: %#v", orig)
	}
}

func TestConcurrentAccess(t *testing.T) {
	o := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				o.Set("K1", fields.Summary, "v")
				o.Get("K1", fields.Summary)
				o.ClearAll("K1")
			}
		}()
	}
	wg.Wait()
}
