// Package session owns all per-session conversational state: history,
// the generation log, and daily image quota counters. Sessions live in
// process memory only and are discarded on restart; the arena is
// bounded by an expirable LRU so idle sessions age out.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/deckoviz/vizzy/internal/types"
)

// QuotaExceededError reports a rejected visual generation along with
// enough context for the caller to render a user-facing message.
type QuotaExceededError struct {
	Current int
	Limit   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily image limit reached (%d/%d)", e.Current, e.Limit)
}

// Session holds the state of one conversation. All access goes through
// Store methods; the mutex serializes concurrent messages for the same
// session id.
type Session struct {
	mu sync.Mutex

	id          string
	createdAt   time.Time
	turns       []types.Turn
	generations []types.GenerationRecord
	imageCount  int
	quotaDate   string
}

// View is a read-only snapshot of a session.
type View struct {
	ID          string                   `json:"session_id"`
	CreatedAt   time.Time                `json:"created_at"`
	Turns       []types.Turn             `json:"messages"`
	Generations []types.GenerationRecord `json:"generations"`
	ImageCount  int                      `json:"image_count"`
}

// Store is the arena of sessions keyed by opaque id.
type Store struct {
	mu    sync.Mutex
	arena *expirable.LRU[string, *Session]

	homeLimit       int
	enterpriseLimit int

	now func() time.Time
}

// NewStore creates a session store. maxEntries and ttl bound the arena;
// a daily limit of 0 means unlimited for that segment.
func NewStore(maxEntries int, ttl time.Duration, homeLimit, enterpriseLimit int) *Store {
	return &Store{
		arena:           expirable.NewLRU[string, *Session](maxEntries, nil, ttl),
		homeLimit:       homeLimit,
		enterpriseLimit: enterpriseLimit,
		now:             time.Now,
	}
}

// GetOrCreate returns the session for id, creating it on first
// reference. The second return reports whether the session is new.
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.arena.Get(id); ok {
		return sess, false
	}
	now := s.now()
	sess := &Session{
		id:        id,
		createdAt: now,
		quotaDate: now.Format("2006-01-02"),
	}
	s.arena.Add(id, sess)
	return sess, true
}

// Exists reports whether a session is currently in the arena, without
// creating one.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arena.Contains(id)
}

// resetIfNewDay zeroes the daily counter when the calendar date has
// changed since the last quota touch. Caller must hold sess.mu.
func (s *Store) resetIfNewDay(sess *Session) {
	today := s.now().Format("2006-01-02")
	if sess.quotaDate != today {
		sess.imageCount = 0
		sess.quotaDate = today
	}
}

// limitFor returns the configured daily limit for a segment; nil means
// unlimited.
func (s *Store) limitFor(seg types.Segment) *int {
	limit := s.homeLimit
	if seg == types.SegmentEnterprise {
		limit = s.enterpriseLimit
	}
	if limit <= 0 {
		return nil
	}
	return &limit
}

// ReserveQuota atomically checks the session's daily counter against
// the segment limit and increments it by the granted amount. It returns
// the number of images the caller may generate, the counter after the
// reservation, and the limit (nil = unlimited). When the counter has
// already reached the limit it returns a QuotaExceededError and leaves
// the session untouched, so over-quota requests never reach a provider.
func (s *Store) ReserveQuota(id string, requested int, seg types.Segment) (allowed, current int, limit *int, err error) {
	sess, _ := s.GetOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.resetIfNewDay(sess)
	limit = s.limitFor(seg)
	if limit == nil {
		sess.imageCount += requested
		return requested, sess.imageCount, nil, nil
	}
	if sess.imageCount >= *limit {
		return 0, sess.imageCount, limit, &QuotaExceededError{Current: sess.imageCount, Limit: *limit}
	}
	allowed = requested
	if remaining := *limit - sess.imageCount; allowed > remaining {
		allowed = remaining
	}
	sess.imageCount += allowed
	return allowed, sess.imageCount, limit, nil
}

// ReleaseQuota returns an unused part of a reservation, e.g. when a
// provider yielded fewer images than reserved.
func (s *Store) ReleaseQuota(id string, n int) {
	if n <= 0 {
		return
	}
	sess, _ := s.GetOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.imageCount -= n
	if sess.imageCount < 0 {
		sess.imageCount = 0
	}
}

// AppendExchange commits one full message exchange: the user turn, the
// assistant turn, and (when present) the generation record, all under
// one lock so a concurrent reader never observes a half-written
// exchange.
func (s *Store) AppendExchange(id string, user, assistant types.Turn, rec *types.GenerationRecord) {
	sess, _ := s.GetOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, user, assistant)
	if rec != nil {
		sess.generations = append(sess.generations, *rec)
	}
}

// History returns a copy of the last n turns (all turns when n <= 0).
func (s *Store) History(id string, n int) []types.Turn {
	sess, _ := s.GetOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	turns := sess.turns
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out
}

// LastGeneration returns the most recent generation record without
// creating a session for unknown ids.
func (s *Store) LastGeneration(id string) (types.GenerationRecord, bool) {
	s.mu.Lock()
	sess, ok := s.arena.Get(id)
	s.mu.Unlock()
	if !ok {
		return types.GenerationRecord{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.generations) == 0 {
		return types.GenerationRecord{}, false
	}
	return sess.generations[len(sess.generations)-1], true
}

// Snapshot returns a copy of the full session state, or false for an
// unknown id.
func (s *Store) Snapshot(id string) (View, bool) {
	s.mu.Lock()
	sess, ok := s.arena.Get(id)
	s.mu.Unlock()
	if !ok {
		return View{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.resetIfNewDay(sess)
	v := View{
		ID:          sess.id,
		CreatedAt:   sess.createdAt,
		Turns:       make([]types.Turn, len(sess.turns)),
		Generations: make([]types.GenerationRecord, len(sess.generations)),
		ImageCount:  sess.imageCount,
	}
	copy(v.Turns, sess.turns)
	copy(v.Generations, sess.generations)
	return v, true
}

// Quota reports the current counter and segment limit. The daily
// rollover is applied first so a counter from a previous day is never
// reported; no reservation is made.
func (s *Store) Quota(id string, seg types.Segment) (current int, limit *int) {
	sess, _ := s.GetOrCreate(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.resetIfNewDay(sess)
	return sess.imageCount, s.limitFor(seg)
}
