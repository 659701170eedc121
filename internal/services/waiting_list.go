package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventadmission/internal/domain"
)

type waitingListService struct {
	eventGuard
	registrationRepo domain.RegistrationRepository
	logger           *slog.Logger
	now              func() time.Time
	contextTimeout   time.Duration
}

// NewWaitingListService creates a WaitingListService. Mutations take the event lock of locker and
// publish to sink after it is released.
func NewWaitingListService(
	registrationRepo domain.RegistrationRepository,
	locker domain.EventLocker,
	sink domain.EventSink,
	logger *slog.Logger,
	timeout time.Duration,
) domain.WaitingListService {
	return newWaitingListService(registrationRepo, locker, sink, logger, timeout)
}

func newWaitingListService(
	registrationRepo domain.RegistrationRepository,
	locker domain.EventLocker,
	sink domain.EventSink,
	logger *slog.Logger,
	timeout time.Duration,
) *waitingListService {
	return &waitingListService{
		eventGuard:       eventGuard{locker: locker, sink: sink},
		registrationRepo: registrationRepo,
		logger:           logger,
		now:              time.Now,
		contextTimeout:   timeout,
	}
}

func (w *waitingListService) NextPosition(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := withTimeout(ctx, w.contextTimeout)
	defer cancel()

	position, err := w.registrationRepo.NextWaitingListPosition(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("next waiting list position: %w", err)
	}
	return position, nil
}

// AddToWaitingList queues the user at the next position. existing may carry the user's final
// registration to reactivate; when nil it is looked up.
func (w *waitingListService) AddToWaitingList(ctx context.Context, in domain.RegisterInput, existing *domain.Registration) (*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, w.contextTimeout)
	defer cancel()

	var reg *domain.Registration
	err := w.run(ctx, in.EventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		current := existing
		if current == nil {
			found, err := w.registrationRepo.GetByEventAndUser(ctx, in.EventID, in.UserID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("get registration: %w", err)
			}
			current = found
		}
		if current != nil && !current.State.IsFinal() {
			return nil, &domain.AlreadyRegisteredError{EventID: in.EventID, UserID: in.UserID}
		}
		var events []domain.DomainEvent
		var err error
		reg, events, err = w.addToWaitingList(ctx, in, current)
		return events, err
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (w *waitingListService) PromoteNext(ctx context.Context, eventID string) (*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, w.contextTimeout)
	defer cancel()

	var promoted *domain.Registration
	err := w.run(ctx, eventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		var events []domain.DomainEvent
		var err error
		promoted, events, err = w.promoteNext(ctx, eventID)
		return events, err
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

func (w *waitingListService) RecalculatePositions(ctx context.Context, eventID string) error {
	ctx, cancel := withTimeout(ctx, w.contextTimeout)
	defer cancel()

	return w.run(ctx, eventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		return nil, w.recalculatePositions(ctx, eventID)
	})
}

func (w *waitingListService) GetPosition(ctx context.Context, eventID, userID string) (*int, error) {
	ctx, cancel := withTimeout(ctx, w.contextTimeout)
	defer cancel()

	reg, err := w.registrationRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.State != domain.StateWaitingList || reg.Position == nil {
		return nil, nil
	}
	position := *reg.Position
	return &position, nil
}

func (w *waitingListService) GetWaitingList(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, w.contextTimeout)
	defer cancel()

	regs, err := w.registrationRepo.ListWaitingList(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list waiting list: %w", err)
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

// The methods below expect the caller to hold the event lock.

func (w *waitingListService) addToWaitingList(ctx context.Context, in domain.RegisterInput, existing *domain.Registration) (*domain.Registration, []domain.DomainEvent, error) {
	position, err := w.registrationRepo.NextWaitingListPosition(ctx, in.EventID)
	if err != nil {
		return nil, nil, fmt.Errorf("next waiting list position: %w", err)
	}

	var reg *domain.Registration
	if existing != nil && existing.State.IsFinal() {
		reg = existing.Clone()
		if err := reg.Reactivate(domain.StateWaitingList, in.FormData, in.Notes); err != nil {
			return nil, nil, err
		}
		reg.UpdatePosition(position)
	} else {
		reg = domain.NewRegistration(in.EventID, in.UserID, in.FormData, in.Notes)
		if err := reg.MoveToWaitingList(position); err != nil {
			return nil, nil, err
		}
	}

	if err := w.registrationRepo.Save(ctx, reg); err != nil {
		return nil, nil, fmt.Errorf("save registration: %w", err)
	}

	w.logger.InfoContext(ctx, "added to waiting list",
		"event_id", reg.EventID,
		"user_id", reg.UserID,
		"registration_id", reg.ID,
		"position", position,
	)

	return reg, []domain.DomainEvent{
		domain.UserRegistered{
			RegistrationID: reg.ID,
			EventID:        reg.EventID,
			UserID:         reg.UserID,
			State:          reg.State,
			Position:       &position,
		},
	}, nil
}

func (w *waitingListService) promoteNext(ctx context.Context, eventID string) (*domain.Registration, []domain.DomainEvent, error) {
	head, err := w.registrationRepo.FirstInWaitingList(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("first in waiting list: %w", err)
	}

	if head.Position == nil {
		return nil, nil, fmt.Errorf("waiting list head %s of event %s has no position", head.ID, eventID)
	}
	previousPosition := *head.Position
	if !head.Promote(w.now()) {
		return nil, nil, &domain.InvalidTransitionError{RegistrationID: head.ID, From: head.State, Trigger: domain.TriggerPromote}
	}
	if err := w.registrationRepo.Save(ctx, head); err != nil {
		return nil, nil, fmt.Errorf("save promoted registration: %w", err)
	}
	if err := w.recalculatePositions(ctx, eventID); err != nil {
		return nil, nil, err
	}

	w.logger.InfoContext(ctx, "promoted from waiting list",
		"event_id", eventID,
		"user_id", head.UserID,
		"registration_id", head.ID,
		"previous_position", previousPosition,
	)

	return head, []domain.DomainEvent{
		domain.WaitingListPromoted{
			RegistrationID:   head.ID,
			EventID:          head.EventID,
			UserID:           head.UserID,
			PreviousPosition: previousPosition,
		},
		domain.RegistrationConfirmed{
			RegistrationID: head.ID,
			EventID:        head.EventID,
			UserID:         head.UserID,
		},
	}, nil
}

// recalculatePositions renumbers the queue to 1..N keeping its order, writing only changed rows.
func (w *waitingListService) recalculatePositions(ctx context.Context, eventID string) error {
	queue, err := w.registrationRepo.ListWaitingList(ctx, eventID)
	if err != nil {
		return fmt.Errorf("list waiting list: %w", err)
	}
	for i, reg := range queue {
		want := i + 1
		if reg.Position != nil && *reg.Position == want {
			continue
		}
		reg.UpdatePosition(want)
		if err := w.registrationRepo.Save(ctx, reg); err != nil {
			return fmt.Errorf("save waiting list position: %w", err)
		}
	}
	return nil
}
