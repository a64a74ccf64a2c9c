package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deckoviz/vizzy/internal/types"
)

func newTestStore(homeLimit, enterpriseLimit int) *Store {
	return NewStore(128, time.Hour, homeLimit, enterpriseLimit)
}

func TestGetOrCreate(t *testing.T) {
	s := newTestStore(5, 0)

	_, created := s.GetOrCreate("abc")
	if !created {
		t.Fatal("expected first reference to create the session")
	}
	_, created = s.GetOrCreate("abc")
	if created {
		t.Fatal("expected second reference to reuse the session")
	}
}

func TestReserveQuota_RejectsAtLimit(t *testing.T) {
	s := newTestStore(2, 0)

	allowed, current, limit, err := s.ReserveQuota("sess", 4, types.SegmentHome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed != 2 || current != 2 {
		t.Errorf("expected reservation clamped to limit, got allowed=%d current=%d", allowed, current)
	}
	if limit == nil || *limit != 2 {
		t.Errorf("expected limit 2, got %v", limit)
	}

	_, current, _, err = s.ReserveQuota("sess", 1, types.SegmentHome)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if qe.Current != 2 || qe.Limit != 2 {
		t.Errorf("expected error to carry 2/2, got %d/%d", qe.Current, qe.Limit)
	}
	if current != 2 {
		t.Errorf("rejected reservation must not change the counter, got %d", current)
	}
}

func TestReserveQuota_UnlimitedSegment(t *testing.T) {
	s := newTestStore(5, 0) // enterprise limit 0 = unlimited

	allowed, current, limit, err := s.ReserveQuota("sess", 4, types.SegmentEnterprise)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed != 4 || current != 4 {
		t.Errorf("expected full reservation, got allowed=%d current=%d", allowed, current)
	}
	if limit != nil {
		t.Errorf("expected nil limit for unlimited segment, got %d", *limit)
	}
}

func TestReserveQuota_ConcurrentNeverExceedsLimit(t *testing.T) {
	s := newTestStore(10, 0)

	var wg sync.WaitGroup
	granted := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _, _, err := s.ReserveQuota("sess", 1, types.SegmentHome)
			if err == nil {
				granted <- allowed
			}
		}()
	}
	wg.Wait()
	close(granted)

	total := 0
	for n := range granted {
		total += n
	}
	if total != 10 {
		t.Errorf("expected exactly 10 granted images across concurrent requests, got %d", total)
	}
}

func TestReleaseQuota(t *testing.T) {
	s := newTestStore(5, 0)

	s.ReserveQuota("sess", 4, types.SegmentHome)
	s.ReleaseQuota("sess", 3)
	current, _ := s.Quota("sess", types.SegmentHome)
	if current != 1 {
		t.Errorf("expected counter 1 after release, got %d", current)
	}

	s.ReleaseQuota("sess", 100)
	current, _ = s.Quota("sess", types.SegmentHome)
	if current != 0 {
		t.Errorf("counter must not go negative, got %d", current)
	}
}

func TestQuota_ResetsOnNewDay(t *testing.T) {
	s := newTestStore(5, 0)
	day := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }

	s.ReserveQuota("sess", 5, types.SegmentHome)
	if _, _, _, err := s.ReserveQuota("sess", 1, types.SegmentHome); err == nil {
		t.Fatal("expected quota exhausted on day one")
	}

	day = day.Add(24 * time.Hour)
	allowed, current, _, err := s.ReserveQuota("sess", 2, types.SegmentHome)
	if err != nil {
		t.Fatalf("expected counter reset on new day, got %v", err)
	}
	if allowed != 2 || current != 2 {
		t.Errorf("expected fresh counter, got allowed=%d current=%d", allowed, current)
	}
}

func TestAppendExchange_CommitsAtomically(t *testing.T) {
	s := newTestStore(5, 0)
	now := time.Now()

	rec := &types.GenerationRecord{
		Timestamp: now,
		Intent:    types.IntentVisualGeneration,
		Prompt:    "a sunset over mountains",
		Images:    []string{"https://img.test/1.png"},
		Segment:   types.SegmentHome,
	}
	s.AppendExchange("sess",
		types.Turn{Role: types.RoleUser, Content: "paint a sunset", Timestamp: now},
		types.Turn{Role: types.RoleAssistant, Content: "done", Images: rec.Images, Timestamp: now},
		rec,
	)

	view, ok := s.Snapshot("sess")
	if !ok {
		t.Fatal("expected session to exist")
	}
	if len(view.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(view.Turns))
	}
	if len(view.Generations) != 1 {
		t.Fatalf("expected 1 generation record, got %d", len(view.Generations))
	}

	last, ok := s.LastGeneration("sess")
	if !ok || last.Prompt != "a sunset over mountains" {
		t.Errorf("expected last generation record, got %+v ok=%v", last, ok)
	}
}

func TestLastGeneration_UnknownSessionDoesNotCreate(t *testing.T) {
	s := newTestStore(5, 0)
	if _, ok := s.LastGeneration("ghost"); ok {
		t.Fatal("expected no record for unknown session")
	}
	if s.Exists("ghost") {
		t.Fatal("lookup must not create the session")
	}
}

func TestSnapshot_ReturnsCopies(t *testing.T) {
	s := newTestStore(5, 0)
	s.AppendExchange("sess",
		types.Turn{Role: types.RoleUser, Content: "hi"},
		types.Turn{Role: types.RoleAssistant, Content: "hello"},
		nil,
	)

	view, _ := s.Snapshot("sess")
	view.Turns[0].Content = "mutated"

	fresh, _ := s.Snapshot("sess")
	if fresh.Turns[0].Content != "hi" {
		t.Error("snapshot must not alias session internals")
	}
}
