// Package session tracks per-visitor dashboard state.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/campaignlens/campaignlens/internal/dataset"
	"github.com/campaignlens/campaignlens/internal/filter"
)

// State is the dashboard lifecycle state of one session.
type State int

const (
	// StateNoFile is the initial state; only uploads are accepted.
	StateNoFile State = iota
	// StateFileLoaded means a dataset is resident and the full pipeline is active.
	StateFileLoaded
	// StateMissingColumn is terminal: the uploaded file lacks the outcome
	// column and only the error is shown.
	StateMissingColumn
)

func (s State) String() string {
	switch s {
	case StateNoFile:
		return "no_file"
	case StateFileLoaded:
		return "file_loaded"
	case StateMissingColumn:
		return "missing_column"
	default:
		return "unknown"
	}
}

// ErrNoDataset signals an operation that needs a loaded dataset.
var ErrNoDataset = eris.New("session: no dataset loaded")

// ErrTerminal signals the session is stuck in the missing-column state.
var ErrTerminal = eris.New("session: outcome column missing, upload halted")

// Session holds at most one resident dataset and its current filtered
// derivation. All access is serialized through the session's own lock.
type Session struct {
	ID string

	mu       sync.Mutex
	state    State
	filename string
	ds       *dataset.Dataset
	filtered *dataset.Dataset
	spec     *filter.Spec
	lastSeen time.Time
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Filename returns the name of the uploaded file, if any.
func (s *Session) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename
}

// SetDataset installs a freshly loaded dataset, transitioning to FileLoaded,
// or to the terminal MissingColumn state when the outcome column is absent.
func (s *Session) SetDataset(ds *dataset.Dataset, filename, outcomeColumn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateMissingColumn {
		return ErrTerminal
	}

	if err := ds.RequireColumn(outcomeColumn); err != nil {
		s.state = StateMissingColumn
		s.filename = filename
		s.ds = nil
		s.filtered = nil
		s.spec = nil
		return err
	}

	s.state = StateFileLoaded
	s.filename = filename
	s.ds = ds
	s.filtered = nil
	s.spec = nil
	return nil
}

// Dataset returns the resident dataset.
func (s *Session) Dataset() (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateMissingColumn {
		return nil, ErrTerminal
	}
	if s.ds == nil {
		return nil, ErrNoDataset
	}
	return s.ds, nil
}

// SetFiltered replaces the previous filtered result; the old one is discarded.
func (s *Session) SetFiltered(ds *dataset.Dataset, spec filter.Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFileLoaded {
		return ErrNoDataset
	}
	s.filtered = ds
	s.spec = &spec
	return nil
}

// Filtered returns the current filtered dataset, falling back to the full
// dataset when no filter has been submitted yet.
func (s *Session) Filtered() (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateMissingColumn {
		return nil, ErrTerminal
	}
	if s.filtered != nil {
		return s.filtered, nil
	}
	if s.ds == nil {
		return nil, ErrNoDataset
	}
	return s.ds, nil
}

// Spec returns the most recently applied filter spec, or nil.
func (s *Session) Spec() *filter.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Manager holds active sessions in memory and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewManager creates a Manager expiring sessions idle longer than ttl.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// New creates and registers a fresh session in the NoFile state.
func (m *Manager) New() *Session {
	s := &Session{
		ID:       uuid.New().String(),
		state:    StateNoFile,
		lastSeen: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given id, refreshing its idle timer.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch(time.Now())
	}
	return s, ok
}

// GetOrNew returns the identified session or registers a new one when the id
// is unknown or empty.
func (m *Manager) GetOrNew(id string) *Session {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s
		}
	}
	return m.New()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many.
func (m *Manager) Sweep() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.ttl {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					zap.L().Debug("session: swept idle sessions", zap.Int("count", n))
				}
			}
		}
	}()
}
