package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Auth domain event types published to downstream consumers
const (
	TypeOtpRequested   = "auth.otp_requested"
	TypeLoginSucceeded = "auth.login_succeeded"
	TypeLoginFailed    = "auth.login_failed"
	TypeTokenRefreshed = "auth.token_refreshed"
	TypeSessionRevoked = "auth.session_revoked"
)

// Event is a domain fact about an authentication outcome. Delivery is
// fire-and-forget observability; no auth flow depends on it.
type Event struct {
	Type       string
	UserID     string
	IPAddress  string
	Metadata   map[string]string
	OccurredAt time.Time
}

// Publisher delivers domain events to a downstream sink
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// Sink receives events from an AsyncPublisher's worker
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// LogSink writes events as structured log records
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, event Event) {
	attrs := []slog.Attr{
		slog.String("event_type", event.Type),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	s.Logger.LogAttrs(ctx, slog.LevelInfo, "domain_event", attrs...)
}

// AsyncPublisher buffers events and emits them from a single worker
// goroutine. When the buffer is full events are dropped and counted
// rather than blocking the auth flow.
type AsyncPublisher struct {
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewAsyncPublisher starts the worker; callers must Close on shutdown
func NewAsyncPublisher(sink Sink, bufferSize int) *AsyncPublisher {
	if bufferSize <= 0 {
		bufferSize = 64
	}

	p := &AsyncPublisher{
		sink: sink,
		ch:   make(chan Event, bufferSize),
		done: make(chan struct{}),
	}

	p.wg.Add(1)
	go p.run()

	return p
}

func (p *AsyncPublisher) run() {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.ch:
			p.sink.Emit(context.Background(), event)
		case <-p.done:
			// Drain whatever is already buffered before exiting
			for {
				select {
				case event := <-p.ch:
					p.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Publish enqueues an event, dropping it when the buffer is full
func (p *AsyncPublisher) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	select {
	case p.ch <- event:
	default:
		p.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full buffer
func (p *AsyncPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close stops the worker after draining buffered events
func (p *AsyncPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
