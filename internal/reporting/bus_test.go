package reporting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type syncListener struct {
	name    string
	journal *journal
	types   []EventType
}

func (l *syncListener) Handle(_ context.Context, event Event) error {
	l.journal.add(l.name + ":" + event.Source())
	return nil
}

func (l *syncListener) EventTypes() []EventType { return l.types }

type slowListener struct {
	name    string
	journal *journal
	delay   time.Duration
}

func (l *slowListener) HandleAsync(_ context.Context, event Event) <-chan error {
	done := make(chan error, 1)
	go func() {
		time.Sleep(l.delay)
		l.journal.add(l.name + ":" + event.Source())
		done <- nil
	}()
	return done
}

func classStarted(source string) Event {
	return &ClassStarted{BaseEvent: BaseEvent{EventType: EventTypeClassStarted, SourceLabel: source, EventTime: time.Now()}, Class: source}
}

func TestBus_RegistrationOrder(t *testing.T) {
	j := &journal{}
	bus := NewBus(&syncListener{name: "first", journal: j}, nil, &syncListener{name: "second", journal: j})

	require.NoError(t, bus.Publish(context.Background(), classStarted("E1")))
	assert.Equal(t, []string{"first:E1", "second:E1"}, j.all())
	assert.Equal(t, 2, bus.GetMetrics().Listeners)
}

func TestBus_AsyncListenerOrdering(t *testing.T) {
	j := &journal{}
	bus := NewBus(
		Async(&slowListener{name: "async", journal: j, delay: 20 * time.Millisecond}),
		&syncListener{name: "sync", journal: j},
	)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, classStarted("E1")))
	require.NoError(t, bus.Publish(ctx, classStarted("E2")))

	assert.Equal(t, []string{"async:E1", "sync:E1", "async:E2", "sync:E2"}, j.all())
}

func TestBus_ConcurrentPublishersAreSerialized(t *testing.T) {
	j := &journal{}
	bus := NewBus(Async(&slowListener{name: "a", journal: j, delay: time.Millisecond}), &syncListener{name: "b", journal: j})

	var wg sync.WaitGroup
	for _, source := range []string{"X", "Y", "Z"} {
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			assert.NoError(t, bus.Publish(context.Background(), classStarted(source)))
		}(source)
	}
	wg.Wait()

	entries := j.all()
	require.Len(t, entries, 6)
	for i := 0; i < len(entries); i += 2 {
		// Each event is fully handled by both listeners before the next begins.
		assert.Equal(t, entries[i][2:], entries[i+1][2:])
	}
}

func TestBus_InterestFiltering(t *testing.T) {
	j := &journal{}
	bus := NewBus(
		&syncListener{name: "classes", journal: j, types: []EventType{EventTypeClassStarted}},
		&syncListener{name: "cases", journal: j, types: []EventType{EventTypeCasePassed}},
		&syncListener{name: "all", journal: j},
	)

	require.NoError(t, bus.Publish(context.Background(), classStarted("C")))
	assert.Equal(t, []string{"classes:C", "all:C"}, j.all())

	metrics := bus.GetMetrics()
	assert.Equal(t, int64(1), metrics.EventsPublished)
	assert.Equal(t, int64(2), metrics.EventsDelivered)
	assert.Equal(t, int64(1), metrics.EventsByType[EventTypeClassStarted])
}

func TestBus_ListenerFaults(t *testing.T) {
	j := &journal{}
	failing := ListenerFunc(func(context.Context, Event) error { return errors.New("listener failed") })
	panicking := ListenerFunc(func(context.Context, Event) error { panic("listener panicked") })

	bus := NewBus(failing, panicking, &syncListener{name: "after", journal: j})
	err := bus.Publish(context.Background(), classStarted("C"))

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)
	assert.EqualError(t, merr.Errors[0], "listener failed")
	assert.Contains(t, merr.Errors[1].Error(), "listener panicked")

	assert.Equal(t, []string{"after:C"}, j.all())
	assert.Equal(t, int64(2), bus.GetMetrics().ListenerFaults)
}

type failingAsync struct{}

func (failingAsync) HandleAsync(context.Context, Event) <-chan error {
	done := make(chan error, 1)
	done <- errors.New("async failed")
	return done
}

type blockingAsync struct{}

func (blockingAsync) HandleAsync(context.Context, Event) <-chan error {
	return make(chan error)
}

func TestBus_AsyncFaults(t *testing.T) {
	bus := NewBus(Async(failingAsync{}))
	assert.ErrorContains(t, bus.Publish(context.Background(), classStarted("C")), "async failed")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	bus = NewBus(Async(blockingAsync{}))
	assert.ErrorIs(t, bus.Publish(ctx, classStarted("C")), context.DeadlineExceeded)
}
