package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"eventadmission/internal/domain"
)

// Handler processes one domain event. A returned error is logged and otherwise ignored.
type Handler func(ctx context.Context, ev domain.DomainEvent) error

type envelope struct {
	ctx context.Context
	ev  domain.DomainEvent
}

// Bus is an in-process asynchronous event bus. A single worker delivers events in publish order,
// so events of one registration event id reach handlers in the order they were produced.
// Publish never blocks on handlers.
type Bus struct {
	logger *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []envelope
	handlers map[domain.EventKind][]Handler
	closing  bool
	stopped  bool

	done      chan struct{}
	closeOnce sync.Once
}

// NewBus creates a bus and starts its worker.
func NewBus(logger *slog.Logger) *Bus {
	b := &Bus{
		logger:   logger,
		handlers: make(map[domain.EventKind][]Handler),
		done:     make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.loop()
	return b
}

// Subscribe registers h for kind. Handlers of one kind run in subscription order.
func (b *Bus) Subscribe(kind domain.EventKind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeKinds registers h for every kind listed.
func (b *Bus) SubscribeKinds(h Handler, kinds ...domain.EventKind) {
	for _, kind := range kinds {
		b.Subscribe(kind, h)
	}
}

// Publish enqueues events for delivery. The caller's cancellation does not reach handlers; its
// values do. Events published after the worker stopped are dropped.
func (b *Bus) Publish(ctx context.Context, evs ...domain.DomainEvent) {
	if len(evs) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		for _, ev := range evs {
			b.logger.Warn("event bus stopped, dropping event", "kind", ev.Kind(), "event_id", ev.EventKey())
		}
		return
	}
	for _, ev := range evs {
		b.queue = append(b.queue, envelope{ctx: detached, ev: ev})
	}
	b.mu.Unlock()
	b.cond.Signal()
}

// Close stops accepting work once the queue is drained and waits for the worker to exit.
// Handlers may still publish while the queue drains.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closing = true
		b.mu.Unlock()
		b.cond.Broadcast()
	})
	<-b.done
}

// Pending returns the number of queued events not yet handed to handlers.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Bus) loop() {
	defer close(b.done)
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closing {
			b.cond.Wait()
		}
		if len(b.queue) == 0 {
			b.stopped = true
			b.mu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue[0] = envelope{}
		b.queue = b.queue[1:]
		handlers := b.handlers[next.ev.Kind()]
		b.mu.Unlock()

		for _, h := range handlers {
			b.dispatch(next, h)
		}
	}
}

func (b *Bus) dispatch(env envelope, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"kind", env.ev.Kind(),
				"event_id", env.ev.EventKey(),
				"err", fmt.Sprint(r),
			)
		}
	}()
	if err := h(env.ctx, env.ev); err != nil {
		b.logger.ErrorContext(env.ctx, "event handler failed",
			"kind", env.ev.Kind(),
			"event_id", env.ev.EventKey(),
			"err", err,
		)
	}
}
