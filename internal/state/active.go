package state

import (
	"sync"

	"github.com/five82/actlog/internal/logview"
)

// LogRef tags one opening of a log view. Seq differs between openings of the
// same job, so results requested for an earlier opening can be told apart.
type LogRef struct {
	ID  logview.Identifier
	Seq uint64
}

// ActiveLog tracks the log view currently on screen.
type ActiveLog struct {
	mu   sync.Mutex
	cur  LogRef
	open bool
	seq  uint64
}

// Open makes id the active log and returns its tag.
func (a *ActiveLog) Open(id logview.Identifier) LogRef {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	a.cur = LogRef{ID: id, Seq: a.seq}
	a.open = true
	return a.cur
}

// Close clears the active log.
func (a *ActiveLog) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cur = LogRef{}
	a.open = false
}

// Current returns the active tag, if any.
func (a *ActiveLog) Current() (LogRef, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur, a.open
}

// IsActive reports whether ref still names the open view. Async results must
// be dropped when it returns false.
func (a *ActiveLog) IsActive(ref LogRef) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open && a.cur == ref
}
