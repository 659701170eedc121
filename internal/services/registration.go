package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventadmission/internal/domain"
)

type registrationService struct {
	eventGuard
	registrationRepo domain.RegistrationRepository
	configRepo       domain.RegistrationConfigRepository
	waitingList      *waitingListService
	logger           *slog.Logger
	now              func() time.Time
	contextTimeout   time.Duration
}

// NewRegistrationService returns the admission engine. Every mutation of an event runs under the
// event's lock taken from locker; the resulting events go to sink once the lock is released.
func NewRegistrationService(
	registrationRepo domain.RegistrationRepository,
	configRepo domain.RegistrationConfigRepository,
	locker domain.EventLocker,
	sink domain.EventSink,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RegistrationService {
	return newRegistrationService(registrationRepo, configRepo, locker, sink, logger, timeout)
}

func newRegistrationService(
	registrationRepo domain.RegistrationRepository,
	configRepo domain.RegistrationConfigRepository,
	locker domain.EventLocker,
	sink domain.EventSink,
	logger *slog.Logger,
	timeout time.Duration,
) *registrationService {
	return &registrationService{
		eventGuard:       eventGuard{locker: locker, sink: sink},
		registrationRepo: registrationRepo,
		configRepo:       configRepo,
		waitingList:      newWaitingListService(registrationRepo, locker, sink, logger, timeout),
		logger:           logger,
		now:              time.Now,
		contextTimeout:   timeout,
	}
}

func (s *registrationService) Register(ctx context.Context, in domain.RegisterInput) (*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if in.EventID == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: event id and user id are required", domain.ErrInvalidInput)
	}

	var reg *domain.Registration
	err := s.run(ctx, in.EventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		var events []domain.DomainEvent
		var err error
		reg, events, err = s.register(ctx, in)
		return events, err
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) register(ctx context.Context, in domain.RegisterInput) (*domain.Registration, []domain.DomainEvent, error) {
	existing, err := s.registrationRepo.GetByEventAndUser(ctx, in.EventID, in.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("get registration: %w", err)
		}
		existing = nil
	}
	if existing != nil && !existing.State.IsFinal() {
		return nil, nil, &domain.AlreadyRegisteredError{EventID: in.EventID, UserID: in.UserID}
	}

	cfg, err := s.configRepo.GetByEventIDOrDefault(ctx, in.EventID)
	if err != nil {
		return nil, nil, fmt.Errorf("get registration config: %w", err)
	}
	now := s.now()
	if reason, closed := cfg.ClosedReason(now); closed {
		return nil, nil, &domain.RegistrationClosedError{EventID: in.EventID, Reason: reason}
	}
	if missing := cfg.MissingRequiredFields(in.FormData); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing required fields: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	confirmed, err := s.registrationRepo.CountByEventAndState(ctx, in.EventID, domain.StateConfirmed)
	if err != nil {
		return nil, nil, fmt.Errorf("count confirmed registrations: %w", err)
	}

	if !cfg.HasSpot(confirmed) {
		if !cfg.WaitingListEnabled {
			return nil, nil, &domain.EventFullError{EventID: in.EventID, Reason: domain.FullNoSpots}
		}
		waiting, err := s.registrationRepo.CountByEventAndState(ctx, in.EventID, domain.StateWaitingList)
		if err != nil {
			return nil, nil, fmt.Errorf("count waiting list: %w", err)
		}
		if !cfg.WaitingListHasRoom(waiting) {
			return nil, nil, &domain.EventFullError{EventID: in.EventID, Reason: domain.FullWaitingList}
		}
		return s.waitingList.addToWaitingList(ctx, in, existing)
	}

	var reg *domain.Registration
	if existing != nil {
		reg = existing.Clone()
		if err := reg.Reactivate(domain.StatePending, in.FormData, in.Notes); err != nil {
			return nil, nil, err
		}
	} else {
		reg = domain.NewRegistration(in.EventID, in.UserID, in.FormData, in.Notes)
	}
	if !cfg.RequiresConfirmation {
		reg.Confirm(now)
	}

	if err := s.registrationRepo.Save(ctx, reg); err != nil {
		return nil, nil, fmt.Errorf("save registration: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"event_id", reg.EventID,
		"user_id", reg.UserID,
		"registration_id", reg.ID,
		"state", reg.State,
		"reactivated", existing != nil,
	)

	events := []domain.DomainEvent{
		domain.UserRegistered{
			RegistrationID: reg.ID,
			EventID:        reg.EventID,
			UserID:         reg.UserID,
			State:          reg.State,
		},
	}
	if reg.State == domain.StateConfirmed {
		events = append(events, domain.RegistrationConfirmed{
			RegistrationID: reg.ID,
			EventID:        reg.EventID,
			UserID:         reg.UserID,
		})
	}
	return reg, events, nil
}

func (s *registrationService) Cancel(ctx context.Context, eventID, userID string) error {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.run(ctx, eventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		reg, err := s.registrationRepo.GetByEventAndUser(ctx, eventID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.RegistrationNotFoundError{EventID: eventID, UserID: userID}
			}
			return nil, fmt.Errorf("get registration: %w", err)
		}

		cfg, err := s.configRepo.GetByEventIDOrDefault(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("get registration config: %w", err)
		}
		now := s.now()
		if !cfg.CanCancel(now) {
			return nil, &domain.CannotCancelError{RegistrationID: reg.ID, EventID: eventID, Reason: domain.CancelDeadlinePassed}
		}

		previous := reg.State
		if err := reg.Cancel(now); err != nil {
			return nil, err
		}
		if err := s.registrationRepo.Save(ctx, reg); err != nil {
			return nil, fmt.Errorf("save registration: %w", err)
		}
		if previous == domain.StateWaitingList {
			if err := s.waitingList.recalculatePositions(ctx, eventID); err != nil {
				return nil, err
			}
		}

		s.logger.InfoContext(ctx, "registration cancelled",
			"event_id", eventID,
			"user_id", userID,
			"registration_id", reg.ID,
			"previous_state", previous,
		)

		return []domain.DomainEvent{
			domain.UserUnregistered{
				RegistrationID: reg.ID,
				EventID:        eventID,
				UserID:         userID,
				PreviousState:  previous,
			},
		}, nil
	})
}

// mutateByID loads a registration, then runs fn on it under its event's lock. The row is read
// again once the lock is held so fn never acts on a stale copy.
func (s *registrationService) mutateByID(
	ctx context.Context,
	registrationID string,
	fn func(ctx context.Context, reg *domain.Registration) ([]domain.DomainEvent, error),
) (*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.findByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	err = s.run(ctx, reg.EventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		locked, err := s.findByID(ctx, registrationID)
		if err != nil {
			return nil, err
		}
		reg = locked
		return fn(ctx, reg)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) findByID(ctx context.Context, registrationID string) (*domain.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.RegistrationNotFoundError{ID: registrationID}
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *registrationService) Confirm(ctx context.Context, registrationID string) (*domain.Registration, error) {
	return s.mutateByID(ctx, registrationID, func(ctx context.Context, reg *domain.Registration) ([]domain.DomainEvent, error) {
		if _, ok := domain.TransitionFor(reg.State, domain.TriggerConfirm); !ok {
			return nil, &domain.InvalidTransitionError{RegistrationID: reg.ID, From: reg.State, Trigger: domain.TriggerConfirm}
		}
		previous := reg.State
		reg.Confirm(s.now())
		if err := s.registrationRepo.Save(ctx, reg); err != nil {
			return nil, fmt.Errorf("save registration: %w", err)
		}
		if previous == domain.StateWaitingList {
			if err := s.waitingList.recalculatePositions(ctx, reg.EventID); err != nil {
				return nil, err
			}
		}
		s.logger.InfoContext(ctx, "registration confirmed",
			"event_id", reg.EventID,
			"registration_id", reg.ID,
			"previous_state", previous,
		)
		return []domain.DomainEvent{
			domain.RegistrationConfirmed{RegistrationID: reg.ID, EventID: reg.EventID, UserID: reg.UserID},
		}, nil
	})
}

func (s *registrationService) Reject(ctx context.Context, registrationID string) (*domain.Registration, error) {
	return s.mutateByID(ctx, registrationID, func(ctx context.Context, reg *domain.Registration) ([]domain.DomainEvent, error) {
		previous := reg.State
		if err := reg.Reject(); err != nil {
			return nil, err
		}
		if err := s.registrationRepo.Save(ctx, reg); err != nil {
			return nil, fmt.Errorf("save registration: %w", err)
		}
		if previous == domain.StateWaitingList {
			if err := s.waitingList.recalculatePositions(ctx, reg.EventID); err != nil {
				return nil, err
			}
		}
		s.logger.InfoContext(ctx, "registration rejected",
			"event_id", reg.EventID,
			"registration_id", reg.ID,
			"previous_state", previous,
		)
		return []domain.DomainEvent{
			domain.RegistrationRejected{RegistrationID: reg.ID, EventID: reg.EventID, UserID: reg.UserID},
		}, nil
	})
}

func (s *registrationService) MoveToWaitingList(ctx context.Context, registrationID string) (*domain.Registration, error) {
	return s.mutateByID(ctx, registrationID, func(ctx context.Context, reg *domain.Registration) ([]domain.DomainEvent, error) {
		position, err := s.registrationRepo.NextWaitingListPosition(ctx, reg.EventID)
		if err != nil {
			return nil, fmt.Errorf("next waiting list position: %w", err)
		}
		previous := reg.State
		if err := reg.MoveToWaitingList(position); err != nil {
			return nil, err
		}
		if err := s.registrationRepo.Save(ctx, reg); err != nil {
			return nil, fmt.Errorf("save registration: %w", err)
		}
		s.logger.InfoContext(ctx, "registration moved to waiting list",
			"event_id", reg.EventID,
			"registration_id", reg.ID,
			"previous_state", previous,
			"position", position,
		)
		return nil, nil
	})
}

func (s *registrationService) UpdateAdminNotes(ctx context.Context, registrationID string, notes *string) (*domain.Registration, error) {
	return s.mutateByID(ctx, registrationID, func(ctx context.Context, reg *domain.Registration) ([]domain.DomainEvent, error) {
		reg.UpdateAdminNotes(notes)
		if err := s.registrationRepo.Save(ctx, reg); err != nil {
			return nil, fmt.Errorf("save registration: %w", err)
		}
		return nil, nil
	})
}

// Delete removes the registration row. It is an administrative operation outside the state machine;
// the queue is renumbered when the row was waiting.
func (s *registrationService) Delete(ctx context.Context, registrationID string) error {
	_, err := s.mutateByID(ctx, registrationID, func(ctx context.Context, reg *domain.Registration) ([]domain.DomainEvent, error) {
		if err := s.registrationRepo.Delete(ctx, reg.ID); err != nil {
			return nil, fmt.Errorf("delete registration: %w", err)
		}
		if reg.State == domain.StateWaitingList {
			if err := s.waitingList.recalculatePositions(ctx, reg.EventID); err != nil {
				return nil, err
			}
		}
		s.logger.InfoContext(ctx, "registration deleted",
			"event_id", reg.EventID,
			"registration_id", reg.ID,
			"state", reg.State,
		)
		return nil, nil
	})
	return err
}

func (s *registrationService) UpdateConfig(ctx context.Context, cfg *domain.RegistrationConfig) error {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if cfg == nil || cfg.EventID == "" {
		return fmt.Errorf("%w: event id is required", domain.ErrInvalidInput)
	}
	if cfg.OpensAt != nil && cfg.ClosesAt != nil && cfg.ClosesAt.Before(*cfg.OpensAt) {
		return fmt.Errorf("%w: registration closes before it opens", domain.ErrInvalidInput)
	}
	for _, f := range cfg.CustomFields {
		if f.Name == "" {
			return fmt.Errorf("%w: custom field name is required", domain.ErrInvalidInput)
		}
	}

	return s.run(ctx, cfg.EventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		if err := s.configRepo.Save(ctx, cfg); err != nil {
			return nil, fmt.Errorf("save registration config: %w", err)
		}
		s.logger.InfoContext(ctx, "registration config updated", "event_id", cfg.EventID)
		return nil, nil
	})
}

func (s *registrationService) GetConfig(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	cfg, err := s.configRepo.GetByEventIDOrDefault(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get registration config: %w", err)
	}
	return cfg, nil
}

func (s *registrationService) DeleteConfig(ctx context.Context, eventID string) error {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.run(ctx, eventID, func(ctx context.Context) ([]domain.DomainEvent, error) {
		if err := s.configRepo.Delete(ctx, eventID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, fmt.Errorf("delete registration config: %w", err)
		}
		return nil, nil
	})
}
