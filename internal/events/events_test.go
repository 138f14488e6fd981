package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects emitted events for assertions
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(ctx context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestAsyncPublisher_DeliversEvents(t *testing.T) {
	sink := &recordingSink{}
	pub := NewAsyncPublisher(sink, 16)

	pub.Publish(Event{Type: TypeLoginSucceeded, UserID: "user-1"})
	pub.Publish(Event{Type: TypeSessionRevoked, UserID: "user-1"})
	pub.Close()

	got := sink.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, TypeLoginSucceeded, got[0].Type)
	assert.Equal(t, TypeSessionRevoked, got[1].Type)
	assert.False(t, got[0].OccurredAt.IsZero(), "OccurredAt should be stamped")
}

func TestAsyncPublisher_DropsWhenFull(t *testing.T) {
	// A sink that never returns would block the worker; use a slow one and
	// a tiny buffer so overflow is deterministic after the worker stalls
	block := make(chan struct{})
	sink := blockingSink{release: block}
	pub := NewAsyncPublisher(sink, 1)

	// First event occupies the worker, second fills the buffer
	pub.Publish(Event{Type: TypeLoginFailed})
	time.Sleep(10 * time.Millisecond)
	pub.Publish(Event{Type: TypeLoginFailed})

	for i := 0; i < 10; i++ {
		pub.Publish(Event{Type: TypeLoginFailed})
	}

	assert.Greater(t, pub.Dropped(), uint64(0))
	close(block)
	pub.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(ctx context.Context, event Event) {
	<-s.release
}

func TestNopPublisher(t *testing.T) {
	// Must not panic
	NopPublisher{}.Publish(Event{Type: TypeOtpRequested})
}
