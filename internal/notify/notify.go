// Package notify delivers fire-and-forget notifications for monitor status
// transitions. The reconciler calls Send exactly once per detected up/down
// transition; delivery failures are logged and never propagate back into
// event processing.
package notify

import (
	"sync"

	"github.com/statusbeat/statusbeat/internal/logger"
)

// Notifier receives one call per up/down transition.
type Notifier interface {
	Send(title, body string)
}

// LogNotifier writes notifications to the logger. It is the default backend
// when no external notifier is configured.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(title, body string) {
	n.log.Info("notification: %s — %s", title, body)
}

// MultiNotifier fans a notification out to several backends.
type MultiNotifier struct {
	targets []Notifier
}

// NewMultiNotifier combines notifiers. Nil entries are skipped.
func NewMultiNotifier(targets ...Notifier) *MultiNotifier {
	var kept []Notifier
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &MultiNotifier{targets: kept}
}

func (n *MultiNotifier) Send(title, body string) {
	for _, t := range n.targets {
		t.Send(title, body)
	}
}

// BufferNotifier captures notifications for test assertions. Safe for
// concurrent use since the reconciler sends from the event-consuming
// goroutine.
type BufferNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

// Notification is one captured Send call.
type Notification struct {
	Title string
	Body  string
}

func (n *BufferNotifier) Send(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{Title: title, Body: body})
}

// Sent returns a copy of the captured notifications.
func (n *BufferNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}
