package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInboxFull reports a dropped event: the buffer is full and Emit will not
// block a request on the audit store.
var ErrInboxFull = errors.New("audit inbox full")

// Inbox is an Emitter that hands events to a Worker over a buffered channel,
// keeping audit persistence off the request path. Emit never blocks on a slow
// store: when the buffer is full the event is dropped and reported to the
// caller, who logs it (chain state is already final by the time anything
// audits).
type Inbox struct {
	ch chan Event
}

func NewInbox(size int) *Inbox {
	return &Inbox{ch: make(chan Event, size)}
}

func (i *Inbox) Emit(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case i.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrInboxFull
	}
}

// Events exposes the receive side for the draining Worker.
func (i *Inbox) Events() <-chan Event {
	return i.ch
}

// Worker drains an event channel into the store. A failed append is logged
// and the loop keeps going; one bad row must not stop the trail.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

type WorkerOption func(w *Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(store Store, inbox <-chan Event, opts ...WorkerOption) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes until ctx is cancelled, then drains whatever the inbox still
// holds before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.append(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}
