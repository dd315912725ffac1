package reservation

import (
	"sync"
	"time"

	"github.com/metinatakli/cinema-ticketing/internal/clock"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

// HoldDuration is how long a granted seat hold lasts.
const HoldDuration = 2 * time.Minute

// HoldStore keeps temporary, expiring seat holds in memory. Holds are an optimistic
// convenience for buyers; sales are validated against persisted purchases at finalization.
//
// Every read-modify-write on a showing runs under that showing's mutex, so grant and refuse
// decisions for one showing are linearizable. Expired holds are evicted lazily on access.
type HoldStore struct {
	clock    clock.Clock
	duration time.Duration

	mu     sync.Mutex
	shards map[int]*showingHolds
}

type showingHolds struct {
	mu    sync.Mutex
	holds map[domain.SeatCoordinate]time.Time
	// set once the shard has been unlinked from the store; callers must look it up again
	dropped bool
}

type HoldStoreOption func(*HoldStore)

// WithHoldDuration overrides HoldDuration for new holds.
func WithHoldDuration(d time.Duration) HoldStoreOption {
	return func(s *HoldStore) {
		if d > 0 {
			s.duration = d
		}
	}
}

func NewHoldStore(clk clock.Clock, opts ...HoldStoreOption) *HoldStore {
	s := &HoldStore{
		clock:    clk,
		duration: HoldDuration,
		shards:   make(map[int]*showingHolds),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *HoldStore) shard(showingID int) *showingHolds {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shards[showingID]
	if !ok {
		sh = &showingHolds{holds: make(map[domain.SeatCoordinate]time.Time)}
		s.shards[showingID] = sh
	}

	return sh
}

// lookup returns the showing's shard without creating one.
func (s *HoldStore) lookup(showingID int) (*showingHolds, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shards[showingID]
	return sh, ok
}

// dropIfEmpty unlinks sh when it holds nothing and is still the showing's shard.
// Lock order is store, then shard.
func (s *HoldStore) dropIfEmpty(showingID int, sh *showingHolds) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shards[showingID] != sh {
		return
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if len(sh.holds) == 0 {
		sh.dropped = true
		delete(s.shards, showingID)
	}
}

// TryHold places a hold on coord unless an unexpired one already exists. It returns the new
// hold's expiry when granted and the existing hold's expiry when refused.
func (s *HoldStore) TryHold(showingID int, coord domain.SeatCoordinate) (bool, time.Time) {
	for {
		sh := s.shard(showingID)
		now := s.clock.Now()

		sh.mu.Lock()
		if sh.dropped {
			sh.mu.Unlock()
			continue
		}

		if until, ok := sh.holds[coord]; ok && until.After(now) {
			sh.mu.Unlock()
			return false, until
		}

		until := now.Add(s.duration)
		sh.holds[coord] = until
		sh.mu.Unlock()

		return true, until
	}
}

// ActiveHolds evicts expired holds of the showing and returns the remaining coordinates.
func (s *HoldStore) ActiveHolds(showingID int) domain.SeatSet {
	sh, ok := s.lookup(showingID)
	if !ok {
		return domain.SeatSet{}
	}

	now := s.clock.Now()

	sh.mu.Lock()
	active := make(domain.SeatSet, len(sh.holds))
	for coord, until := range sh.holds {
		if !until.After(now) {
			delete(sh.holds, coord)
			continue
		}
		active.Add(coord)
	}
	sh.mu.Unlock()

	if len(active) == 0 {
		s.dropIfEmpty(showingID, sh)
	}

	return active
}

// Release removes the hold on coord and reports whether a live hold was removed.
func (s *HoldStore) Release(showingID int, coord domain.SeatCoordinate) bool {
	return s.ReleaseMany(showingID, []domain.SeatCoordinate{coord}) == 1
}

// ReleaseMany removes the holds on coords and returns how many live holds were removed.
func (s *HoldStore) ReleaseMany(showingID int, coords []domain.SeatCoordinate) int {
	if len(coords) == 0 {
		return 0
	}

	sh, ok := s.lookup(showingID)
	if !ok {
		return 0
	}

	now := s.clock.Now()

	sh.mu.Lock()
	released := 0
	for _, coord := range coords {
		if sh.release(coord, now) {
			released++
		}
	}
	empty := len(sh.holds) == 0
	sh.mu.Unlock()

	if empty {
		s.dropIfEmpty(showingID, sh)
	}

	return released
}

func (sh *showingHolds) release(coord domain.SeatCoordinate, now time.Time) bool {
	until, ok := sh.holds[coord]
	if !ok {
		return false
	}

	delete(sh.holds, coord)

	return until.After(now)
}

// Close drops every hold. The store stays usable afterwards.
func (s *HoldStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.dropped = true
		sh.mu.Unlock()
	}

	s.shards = make(map[int]*showingHolds)
}
