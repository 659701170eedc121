package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventadmission/internal/domain"
)

// CancellationReactor promotes the head of the waiting list when a confirmed seat is given up.
// It is the only automatic trigger for promotion.
type CancellationReactor struct {
	eventGuard
	registrationRepo domain.RegistrationRepository
	configRepo       domain.RegistrationConfigRepository
	waitingList      *waitingListService
	logger           *slog.Logger
	contextTimeout   time.Duration
}

func NewCancellationReactor(
	registrationRepo domain.RegistrationRepository,
	configRepo domain.RegistrationConfigRepository,
	locker domain.EventLocker,
	sink domain.EventSink,
	logger *slog.Logger,
	timeout time.Duration,
) *CancellationReactor {
	return &CancellationReactor{
		eventGuard:       eventGuard{locker: locker, sink: sink},
		registrationRepo: registrationRepo,
		configRepo:       configRepo,
		waitingList:      newWaitingListService(registrationRepo, locker, sink, logger, timeout),
		logger:           logger,
		contextTimeout:   timeout,
	}
}

// HandleUserUnregistered reacts to a cancellation. Anything other than a cancelled Confirmed
// registration is ignored since it held no seat.
func (r *CancellationReactor) HandleUserUnregistered(ctx context.Context, ev domain.UserUnregistered) error {
	if ev.PreviousState != domain.StateConfirmed {
		return nil
	}

	ctx, cancel := withTimeout(ctx, r.contextTimeout)
	defer cancel()

	return r.run(ctx, ev.EventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		cfg, err := r.configRepo.GetByEventIDOrDefault(ctx, ev.EventID)
		if err != nil {
			return nil, fmt.Errorf("get registration config: %w", err)
		}
		if !cfg.WaitingListEnabled {
			return nil, nil
		}
		confirmed, err := r.registrationRepo.CountByEventAndState(ctx, ev.EventID, domain.StateConfirmed)
		if err != nil {
			return nil, fmt.Errorf("count confirmed registrations: %w", err)
		}
		if !cfg.HasSpot(confirmed) {
			r.logger.DebugContext(ctx, "no spot freed, skipping promotion", "event_id", ev.EventID, "confirmed", confirmed)
			return nil, nil
		}
		_, events, err := r.waitingList.promoteNext(ctx, ev.EventID)
		return events, err
	})
}

// Handle adapts the reactor to the event bus.
func (r *CancellationReactor) Handle(ctx context.Context, ev domain.DomainEvent) error {
	unregistered, ok := ev.(domain.UserUnregistered)
	if !ok {
		return nil
	}
	return r.HandleUserUnregistered(ctx, unregistered)
}
