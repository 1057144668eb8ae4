package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/bathroom-finder/internal/model"
)

func TestPublish_InvokesInOrderOnce(t *testing.T) {
	n := New()
	var calls []string

	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "first") })
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "second") })

	n.Publish(model.EventReviewAdded, nil)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublish_PassesEventAndPayload(t *testing.T) {
	n := New()
	var gotEvent model.Event
	var gotPayload any

	n.Subscribe(model.EventBathroomAdded, func(e model.Event, p any) {
		gotEvent = e
		gotPayload = p
	})

	payload := model.BathroomAddedPayload{LocationID: "loc-1"}
	n.Publish(model.EventBathroomAdded, payload)

	assert.Equal(t, model.EventBathroomAdded, gotEvent)
	assert.Equal(t, payload, gotPayload)
}

func TestPublish_OnlyMatchingEvent(t *testing.T) {
	n := New()
	var reviews, bathrooms int
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { reviews++ })
	n.Subscribe(model.EventBathroomAdded, func(model.Event, any) { bathrooms++ })

	n.Publish(model.EventReviewAdded, nil)
	assert.Equal(t, 1, reviews)
	assert.Equal(t, 0, bathrooms)
}

func TestPublish_NoSubscribers(t *testing.T) {
	n := New()
	assert.NotPanics(t, func() { n.Publish(model.EventReviewAdded, nil) })
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	n := New()
	var calls []string

	a := n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "a") })
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "b") })

	n.Publish(model.EventReviewAdded, nil)
	n.Unsubscribe(a)
	n.Publish(model.EventReviewAdded, nil)

	assert.Equal(t, []string{"a", "b", "b"}, calls)
	assert.Equal(t, 1, n.Count(model.EventReviewAdded))
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	n := New()
	sub := n.Subscribe(model.EventReviewAdded, func(model.Event, any) {})

	n.Unsubscribe(sub)
	assert.NotPanics(t, func() { n.Unsubscribe(sub) })
	assert.NotPanics(t, func() { n.Unsubscribe(Subscription{}) })
	assert.Equal(t, 0, n.Count(model.EventReviewAdded))
}

func TestUnsubscribe_SelfDuringDispatch(t *testing.T) {
	n := New()
	var calls []string
	var self Subscription

	self = n.Subscribe(model.EventReviewAdded, func(model.Event, any) {
		calls = append(calls, "self")
		n.Unsubscribe(self)
	})
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "other") })

	n.Publish(model.EventReviewAdded, nil)
	n.Publish(model.EventReviewAdded, nil)

	assert.Equal(t, []string{"self", "other", "other"}, calls)
}

func TestUnsubscribe_OtherDuringDispatch(t *testing.T) {
	n := New()
	var calls []string
	var victim Subscription

	n.Subscribe(model.EventReviewAdded, func(model.Event, any) {
		calls = append(calls, "killer")
		n.Unsubscribe(victim)
	})
	victim = n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "victim") })
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "bystander") })

	n.Publish(model.EventReviewAdded, nil)

	assert.Equal(t, []string{"killer", "bystander"}, calls)
}

func TestSubscribe_DuringDispatchNotInvokedUntilNextPublish(t *testing.T) {
	n := New()
	var calls []string
	added := false

	n.Subscribe(model.EventReviewAdded, func(model.Event, any) {
		calls = append(calls, "outer")
		if !added {
			added = true
			n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "late") })
		}
	})

	n.Publish(model.EventReviewAdded, nil)
	n.Publish(model.EventReviewAdded, nil)

	assert.Equal(t, []string{"outer", "outer", "late"}, calls)
}

func TestPublish_ReentrantPublish(t *testing.T) {
	n := New()
	var calls []string

	n.Subscribe(model.EventBathroomAdded, func(model.Event, any) {
		calls = append(calls, "bathroom")
		n.Publish(model.EventReviewAdded, nil)
	})
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "review") })

	n.Publish(model.EventBathroomAdded, nil)
	assert.Equal(t, []string{"bathroom", "review"}, calls)
}

func TestPublish_PanickingHandlerIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	n := New(WithLogger(zap.New(core)))
	var calls []string

	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "before") })
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { panic("boom") })
	n.Subscribe(model.EventReviewAdded, func(model.Event, any) { calls = append(calls, "after") })

	require.NotPanics(t, func() { n.Publish(model.EventReviewAdded, nil) })
	assert.Equal(t, []string{"before", "after"}, calls)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "notify: subscriber panicked", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["panic"])
	assert.Equal(t, "review_added", entry.ContextMap()["event"])
}

func TestNotifier_ConcurrentUse(t *testing.T) {
	n := New()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := n.Subscribe(model.EventReviewAdded, func(model.Event, any) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			n.Publish(model.EventReviewAdded, nil)
			n.Unsubscribe(sub)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.Count(model.EventReviewAdded))
	assert.GreaterOrEqual(t, total, 20)
}
