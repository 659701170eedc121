package services

import (
	"context"
	"fmt"
	"time"

	"eventadmission/internal/domain"
)

// eventGuard runs a mutation under the event's lock and publishes the events it produced before
// the lock is released, so the sink sees each event's operations in lock order. Nothing is
// published when the mutation fails.
type eventGuard struct {
	locker domain.EventLocker
	sink   domain.EventSink
}

func (g eventGuard) run(ctx context.Context, eventID string, fn func(ctx context.Context) ([]domain.DomainEvent, error)) error {
	unlock, err := g.locker.Lock(ctx, eventID)
	if err != nil {
		return fmt.Errorf("lock event %s: %w", eventID, err)
	}
	defer unlock()

	events, err := fn(ctx)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		g.sink.Publish(ctx, events...)
	}
	return nil
}

// withTimeout bounds ctx by d; a non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
