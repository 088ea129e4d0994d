// Package notify carries the signals actlog emits after it acts: refresh the
// run tree after a mutation, reveal a resolved deep link, or show a failure.
package notify

import (
	"log/slog"
	"sync"

	"github.com/five82/actlog/internal/logview"
)

// Kind distinguishes signals.
type Kind int

const (
	KindRefreshTree Kind = iota
	KindReveal
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRefreshTree:
		return "refresh"
	case KindReveal:
		return "reveal"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Signal is one emitted notification.
type Signal struct {
	Kind     Kind
	Reason   string
	Location logview.Location
	Err      error
}

// Notifier receives signals. Implementations must not block for long; they
// are called from command goroutines.
type Notifier interface {
	RefreshTree(reason string)
	RevealLocation(loc logview.Location)
	ShowError(err error)
}

// Func adapts a function to Notifier.
type Func func(Signal)

func (f Func) RefreshTree(reason string) { f(Signal{Kind: KindRefreshTree, Reason: reason}) }

func (f Func) RevealLocation(loc logview.Location) { f(Signal{Kind: KindReveal, Location: loc}) }

func (f Func) ShowError(err error) {
	if err == nil {
		return
	}
	f(Signal{Kind: KindError, Err: err})
}

// Log returns a Notifier writing every signal to logger.
func Log(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return Func(func(s Signal) {
		switch s.Kind {
		case KindRefreshTree:
			logger.Info("refresh requested", "reason", s.Reason)
		case KindReveal:
			logger.Debug("reveal", "uri", s.Location.ID.URI(), "line", s.Location.Line)
		case KindError:
			logger.Error("action failed", "error", s.Err)
		}
	})
}

// Chan returns a Notifier that delivers signals to ch without blocking. When
// ch is full the signal is dropped.
func Chan(ch chan<- Signal) Notifier {
	return Func(func(s Signal) {
		select {
		case ch <- s:
		default:
		}
	})
}

// Multi fans signals out to every notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(s Signal) {
		for _, n := range notifiers {
			if n == nil {
				continue
			}
			switch s.Kind {
			case KindRefreshTree:
				n.RefreshTree(s.Reason)
			case KindReveal:
				n.RevealLocation(s.Location)
			case KindError:
				n.ShowError(s.Err)
			}
		}
	})
}

// Recorder keeps signals in memory.
type Recorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *Recorder) RefreshTree(reason string) { r.add(Signal{Kind: KindRefreshTree, Reason: reason}) }

func (r *Recorder) RevealLocation(loc logview.Location) {
	r.add(Signal{Kind: KindReveal, Location: loc})
}

func (r *Recorder) ShowError(err error) {
	if err == nil {
		return
	}
	r.add(Signal{Kind: KindError, Err: err})
}

// Signals returns a copy of what was recorded.
func (r *Recorder) Signals() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

// Kinds returns the kinds recorded, in order.
func (r *Recorder) Kinds() []Kind {
	signals := r.Signals()
	kinds := make([]Kind, len(signals))
	for i, s := range signals {
		kinds[i] = s.Kind
	}
	return kinds
}

func (r *Recorder) add(s Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, s)
	r.mu.Unlock()
}
