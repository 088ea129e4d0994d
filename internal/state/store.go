package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/actlog/internal/github"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Owner               string
	Repo                string
	Runs                []github.WorkflowRun
	HasRuns             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// HasActiveRuns reports whether any run in the snapshot is still going.
func (s Snapshot) HasActiveRuns() bool {
	for _, r := range s.Runs {
		if r.Active() {
			return true
		}
	}
	return false
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetRepository records which repository the runs belong to and drops runs of
// any previous one.
func (s *Store) SetRepository(owner, repo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Owner == owner && s.snapshot.Repo == repo {
		return
	}
	s.snapshot = Snapshot{Owner: owner, Repo: repo}
}

// Update replaces the stored runs. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(runs []github.WorkflowRun, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Runs = cloneRuns(runs)
	s.snapshot.HasRuns = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Runs = cloneRuns(s.snapshot.Runs)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneRuns(runs []github.WorkflowRun) []github.WorkflowRun {
	if len(runs) == 0 {
		return nil
	}
	dup := make([]github.WorkflowRun, len(runs))
	copy(dup, runs)
	return dup
}
