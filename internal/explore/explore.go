// Package explore keeps a live, filterable view of nearby bathrooms that is
// refreshed whenever a write is published.
package explore

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/notify"
	"github.com/sells-group/bathroom-finder/internal/pipeline"
)

// Loader supplies raw bathroom records.
type Loader interface {
	ListLocations(ctx context.Context) ([]model.Location, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
}

// Query is one view request.
type Query struct {
	Position geo.Coordinate
	Filters  model.FilterCriteria
	Sort     model.SortKey
}

// Explorer caches a snapshot of all locations and rebuilds views from it.
// While active, any review or bathroom event marks the snapshot stale and
// the next View reloads it.
type Explorer struct {
	loader   Loader
	notifier *notify.Notifier

	mu       sync.Mutex
	snapshot []model.Location
	stale    bool
	gen      uint64
	subs     []notify.Subscription
}

// New creates an inactive Explorer. Its snapshot starts stale.
func New(loader Loader, n *notify.Notifier) *Explorer {
	return &Explorer{loader: loader, notifier: n, stale: true}
}

// Activate subscribes to write events. Calling it twice is a no-op.
func (e *Explorer) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.subs) > 0 {
		return
	}
	for _, ev := range []model.Event{model.EventReviewAdded, model.EventBathroomAdded} {
		e.subs = append(e.subs, e.notifier.Subscribe(ev, e.onChange))
	}
	e.stale = true
}

// Deactivate drops the subscriptions. Writes are no longer heard, so the
// snapshot is marked stale and every later View reloads.
func (e *Explorer) Deactivate() {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.stale = true
	e.mu.Unlock()

	for _, s := range subs {
		e.notifier.Unsubscribe(s)
	}
}

// Active reports whether the explorer is subscribed.
func (e *Explorer) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs) > 0
}

func (e *Explorer) onChange(event model.Event, _ any) {
	zap.L().Debug("explore: snapshot invalidated", zap.String("event", string(event)))
	e.mu.Lock()
	e.stale = true
	e.gen++
	e.mu.Unlock()
}

// View returns the filtered, sorted locations for q.
func (e *Explorer) View(ctx context.Context, q Query) ([]model.DerivedLocation, error) {
	locs, err := e.locations(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.BuildView(locs, q.Position, q.Filters, q.Sort), nil
}

// Detail returns one location derived for position. It reads through to
// the loader so the result reflects the latest committed reviews.
func (e *Explorer) Detail(ctx context.Context, id string, position geo.Coordinate) (*model.DerivedLocation, error) {
	loc, err := e.loader.GetLocation(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "explore: detail %s", id)
	}
	d := pipeline.Derive(*loc, position)
	return &d, nil
}

// locations returns the current snapshot, reloading it when stale. The
// returned slice is never mutated after it is published.
func (e *Explorer) locations(ctx context.Context) ([]model.Location, error) {
	e.mu.Lock()
	if !e.stale {
		snap := e.snapshot
		e.mu.Unlock()
		return snap, nil
	}
	gen := e.gen
	e.mu.Unlock()

	loaded, err := e.loader.ListLocations(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "explore: load locations")
	}
	snap := make([]model.Location, len(loaded))
	for i, l := range loaded {
		snap[i] = l.Clone()
	}

	e.mu.Lock()
	e.snapshot = snap
	// An inactive explorer hears no events and reloads on every view. A
	// write published during the load leaves the snapshot stale.
	e.stale = len(e.subs) == 0 || e.gen != gen
	e.mu.Unlock()
	return snap, nil
}
