package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/hashicorp/go-multierror"

	"conventest/pkg/logging"
)

// Listener observes run events. Handle is called synchronously; returning means
// the event has been fully handled.
type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// AsyncListener handles events with pending completion. The bus waits for the
// returned channel to yield (or close) before publishing the next event.
type AsyncListener interface {
	HandleAsync(ctx context.Context, event Event) <-chan error
}

// Interested is implemented by listeners that only want some event types.
// Listeners without it receive every event.
type Interested interface {
	EventTypes() []EventType
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f ListenerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// EventFilter is a function that determines if an event should be processed
type EventFilter func(Event) bool

// FilterByType creates a filter that matches events of specific types
func FilterByType(eventTypes ...EventType) EventFilter {
	typeMap := make(map[EventType]bool)
	for _, t := range eventTypes {
		typeMap[t] = true
	}

	return func(event Event) bool {
		return typeMap[event.Type()]
	}
}

// Async registers an AsyncListener on a bus.
func Async(listener AsyncListener) Listener {
	return asyncListener{inner: listener}
}

type asyncListener struct {
	inner AsyncListener
}

// Handle waits for the pending completion of the wrapped listener.
func (a asyncListener) Handle(ctx context.Context, event Event) error {
	done := a.inner.HandleAsync(ctx, event)
	if done == nil {
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EventTypes forwards the interest of the wrapped listener.
func (a asyncListener) EventTypes() []EventType {
	if interested, ok := a.inner.(Interested); ok {
		return interested.EventTypes()
	}
	return nil
}

// BusMetrics tracks event bus activity
type BusMetrics struct {
	Listeners           int
	EventsPublished     int64
	EventsDelivered     int64
	ListenerFaults      int64
	LastEventTime       time.Time
	EventsByType        map[EventType]int64
	AverageDeliveryTime time.Duration
}

type registration struct {
	listener Listener
	filter   EventFilter
}

// Bus delivers events to a fixed list of listeners in registration order.
// Publish calls are serialized, and each returns only once every interested
// listener, asynchronous ones included, has finished with the event.
type Bus struct {
	registrations []registration

	publishMu sync.Mutex
	metricsMu sync.RWMutex
	metrics   BusMetrics
}

// NewBus creates a bus for one run. Nil listeners are ignored.
func NewBus(listeners ...Listener) *Bus {
	bus := &Bus{
		metrics: BusMetrics{EventsByType: make(map[EventType]int64)},
	}
	for _, listener := range listeners {
		if listener == nil {
			continue
		}
		reg := registration{listener: listener}
		if interested, ok := listener.(Interested); ok {
			if types := interested.EventTypes(); len(types) > 0 {
				reg.filter = FilterByType(types...)
			}
		}
		bus.registrations = append(bus.registrations, reg)
	}
	bus.metrics.Listeners = len(bus.registrations)
	return bus
}

// Publish delivers event to every interested listener. Listener faults and
// panics do not stop delivery to the remaining listeners; they are combined
// into the returned error.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	startTime := time.Now()
	delivered := 0
	var result *multierror.Error

	for _, reg := range b.registrations {
		if reg.filter != nil && !reg.filter(event) {
			continue
		}
		delivered++
		if err := safeHandle(ctx, reg.listener, event); err != nil {
			logging.Error("Bus", err, "Listener %T failed to handle %s", reg.listener, event.Type())
			result = multierror.Append(result, err)
		}
	}

	b.metricsMu.Lock()
	b.metrics.EventsPublished++
	b.metrics.EventsByType[event.Type()]++
	b.metrics.LastEventTime = event.Timestamp()
	b.metrics.EventsDelivered += int64(delivered)
	if result != nil {
		b.metrics.ListenerFaults += int64(len(result.Errors))
	}
	if delivered > 0 {
		deliveryTime := time.Since(startTime)
		// Simple moving average for delivery time
		if b.metrics.AverageDeliveryTime == 0 {
			b.metrics.AverageDeliveryTime = deliveryTime
		} else {
			b.metrics.AverageDeliveryTime = (b.metrics.AverageDeliveryTime + deliveryTime) / 2
		}
	}
	b.metricsMu.Unlock()

	return result.ErrorOrNil()
}

// GetMetrics returns a copy of the bus metrics
func (b *Bus) GetMetrics() BusMetrics {
	b.metricsMu.RLock()
	defer b.metricsMu.RUnlock()

	metrics := b.metrics
	metrics.EventsByType = make(map[EventType]int64, len(b.metrics.EventsByType))
	for k, v := range b.metrics.EventsByType {
		metrics.EventsByType[k] = v
	}
	return metrics
}

// safeHandle invokes a listener and converts a panic into an error.
func safeHandle(ctx context.Context, listener Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerrors.Wrap(fmt.Errorf("listener %T panicked handling %s: %v", listener, event.Type(), r), 2)
		}
	}()
	return listener.Handle(ctx, event)
}
