package status

import (
	"sync"
	"time"
)

// Op names a successful state transition.
type Op string

const (
	OpStart  Op = "start"
	OpPause  Op = "pause"
	OpResume Op = "resume"
	OpStop   Op = "stop"
)

// Observer is notified after every successful transition with the number of
// records left in the store. It is called without the store lock held.
type Observer func(op Op, active int)

// Snapshot is a read-only view of one record.
type Snapshot struct {
	Activity string `json:"activity"`
	// Time is the effective elapsed time in whole seconds.
	Time   int64 `json:"time"`
	Paused bool  `json:"paused"`
}

// record is the timer kept for one identity. Exactly one of startedAt being
// set and paused being true holds at any time.
type record struct {
	activity  string
	startedAt time.Time
	paused    bool
	// accumulated is the whole seconds spent running before the last pause.
	accumulated int64
}

func (r *record) elapsed(now time.Time) int64 {
	if r.paused {
		return r.accumulated
	}
	return r.accumulated + elapsedSeconds(r.startedAt, now)
}

// Store maps identity keys to activity timers.
type Store struct {
	mu       sync.Mutex
	records  map[string]*record
	clock    Clock
	observer Observer
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for all transitions. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]*record),
		clock:   SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a new running activity for id, replacing any existing record
// and its accumulated time.
func (s *Store) Start(id, activity string) error {
	if activity == "" {
		return ErrInvalidActivity
	}

	s.mu.Lock()
	s.records[id] = &record{
		activity:  activity,
		startedAt: s.clock.Now(),
	}
	active := len(s.records)
	s.mu.Unlock()

	s.notify(OpStart, active)
	return nil
}

// Pause freezes the timer for id, folding the running interval into the
// accumulated seconds.
func (s *Store) Pause(id string) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if r.paused {
		s.mu.Unlock()
		return ErrAlreadyPaused
	}
	r.accumulated += elapsedSeconds(r.startedAt, s.clock.Now())
	r.startedAt = time.Time{}
	r.paused = true
	active := len(s.records)
	s.mu.Unlock()

	s.notify(OpPause, active)
	return nil
}

// Resume restarts a paused timer for id. The accumulated seconds are kept.
func (s *Store) Resume(id string) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok || !r.paused {
		s.mu.Unlock()
		return ErrNothingToResume
	}
	r.startedAt = s.clock.Now()
	r.paused = false
	active := len(s.records)
	s.mu.Unlock()

	s.notify(OpResume, active)
	return nil
}

// Stop deletes the record for id. Stopping an absent identity succeeds.
func (s *Store) Stop(id string) {
	s.mu.Lock()
	delete(s.records, id)
	active := len(s.records)
	s.mu.Unlock()

	s.notify(OpStop, active)
}

// Query returns the current snapshot for id.
func (s *Store) Query(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{
		Activity: r.activity,
		Time:     r.elapsed(s.clock.Now()),
		Paused:   r.paused,
	}, nil
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) notify(op Op, active int) {
	if s.observer != nil {
		s.observer(op, active)
	}
}
