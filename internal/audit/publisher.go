package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	id "kycportal/pkg/domain"
	"kycportal/pkg/requestcontext"
)

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists stored events. Stream sinks such as Kafka do not implement it.
type Reader interface {
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]Event, error)
}

// Publisher enriches events from the request context and hands them to a
// sink, either inline or through a bounded queue drained by a Worker.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
	inbox  chan Event
	now    func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithQueue makes Emit non-blocking. Events are dropped with a warning when
// the queue is full.
func WithQueue(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records event. Failures are logged and returned; callers treat audit
// as best effort and never fail the user action on it.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.WorkspaceID == "" {
		if ws := requestcontext.WorkspaceID(ctx); !ws.IsNil() {
			event.WorkspaceID = ws.String()
		}
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}

	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			p.logger.WarnContext(ctx, "audit queue full, dropping event",
				"action", event.Action,
				"request_id", event.RequestID,
			)
		}
		return nil
	}

	if err := p.sink.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to append audit event",
			"action", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
		return err
	}
	return nil
}

// Worker returns a worker draining the queue, or nil when Emit is inline.
func (p *Publisher) Worker() *Worker {
	if p.inbox == nil {
		return nil
	}
	return NewWorker(p.sink, p.inbox, p.logger)
}
