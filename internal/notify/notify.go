// Package notify delivers short user-facing notices about a submission.
package notify

import (
	"sync"

	"cfsubmit/internal/logging"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notification is a single toast.
type Notification struct {
	Level Level
	Title string
	Body  string
}

// Notifier delivers notifications. Implementations must be safe for use
// from the automation completion goroutine.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Nop discards every notification.
var Nop Notifier = NotifierFunc(func(Notification) {})

type gate struct {
	enabled bool
	next    Notifier
}

// Gate forwards to next only when enabled. Suppressed notifications are
// still visible in the notify debug log.
func Gate(enabled bool, next Notifier) Notifier {
	return gate{enabled: enabled, next: next}
}

func (g gate) Notify(n Notification) {
	if !g.enabled {
		logging.NotifyDebug("Toast suppressed: [%s] %s: %s", n.Level, n.Title, n.Body)
		return
	}
	g.next.Notify(n)
}

// Fanout delivers to every notifier in order. Delivery is serialized so
// sinks never interleave.
type Fanout struct {
	mu    sync.Mutex
	sinks []Notifier
}

// NewFanout returns a Fanout over sinks, skipping nils.
func NewFanout(sinks ...Notifier) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Notify(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sinks {
		s.Notify(n)
	}
}
