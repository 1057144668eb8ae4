// Package notify is an in-process publish/subscribe channel used to tell
// live views that a write has landed and their data is stale.
package notify

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sells-group/bathroom-finder/internal/model"
)

// Handler receives an event and its optional payload.
type Handler func(event model.Event, payload any)

// Subscription identifies one registered handler. The zero value is inert.
type Subscription struct {
	event model.Event
	entry *entry
}

// Event returns the event the subscription listens to.
func (s Subscription) Event() model.Event { return s.event }

type entry struct {
	id      uint64
	handler Handler
	active  atomic.Bool
}

// Notifier dispatches events to subscribers synchronously, in subscription
// order. It is safe for concurrent use. Handlers run without any lock held
// and may subscribe, unsubscribe or publish re-entrantly.
type Notifier struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[model.Event][]*entry
	log    *zap.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger overrides the logger used for handler panics.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) {
		n.log = l
	}
}

// New creates an empty Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		subs: make(map[model.Event][]*entry),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Subscribe registers handler for event.
func (n *Notifier) Subscribe(event model.Event, handler Handler) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	e := &entry{id: n.nextID, handler: handler}
	e.active.Store(true)
	n.subs[event] = append(n.subs[event], e)

	return Subscription{event: event, entry: e}
}

// Unsubscribe removes a handler. It is idempotent and may be called from
// inside a handler; a handler removed mid-dispatch is not invoked for the
// remainder of that dispatch.
func (n *Notifier) Unsubscribe(sub Subscription) {
	if sub.entry == nil {
		return
	}
	sub.entry.active.Store(false)

	n.mu.Lock()
	defer n.mu.Unlock()

	list := n.subs[sub.event]
	for i, e := range list {
		if e == sub.entry {
			// Copy so in-flight dispatch snapshots keep their view.
			next := make([]*entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(n.subs, sub.event)
			} else {
				n.subs[sub.event] = next
			}
			return
		}
	}
}

// Publish invokes every handler registered for event. A panicking handler is
// logged and skipped; it never reaches the publisher or other handlers.
func (n *Notifier) Publish(event model.Event, payload any) {
	n.mu.Lock()
	snapshot := n.subs[event]
	n.mu.Unlock()

	for _, e := range snapshot {
		if !e.active.Load() {
			continue
		}
		n.invoke(event, e, payload)
	}
}

// Count returns the number of handlers registered for event.
func (n *Notifier) Count(event model.Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[event])
}

func (n *Notifier) invoke(event model.Event, e *entry, payload any) {
	defer func() {
		if r := recover(); r != nil {
			n.logger().Error("notify: subscriber panicked",
				zap.String("event", string(event)),
				zap.Uint64("subscription", e.id),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	e.handler(event, payload)
}

func (n *Notifier) logger() *zap.Logger {
	if n.log != nil {
		return n.log
	}
	return zap.L()
}
