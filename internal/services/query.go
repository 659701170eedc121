package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventadmission/internal/domain"
)

type registrationQueryService struct {
	registrationRepo domain.RegistrationRepository
	configRepo       domain.RegistrationConfigRepository
	now              func() time.Time
	contextTimeout   time.Duration
}

// NewRegistrationQueryService returns the read side. Reads take no locks.
func NewRegistrationQueryService(
	registrationRepo domain.RegistrationRepository,
	configRepo domain.RegistrationConfigRepository,
	timeout time.Duration,
) domain.RegistrationQueryService {
	return &registrationQueryService{
		registrationRepo: registrationRepo,
		configRepo:       configRepo,
		now:              time.Now,
		contextTimeout:   timeout,
	}
}

func (s *registrationQueryService) GetEventStatus(ctx context.Context, eventID string) (*domain.EventStatus, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	cfg, err := s.configRepo.GetByEventIDOrDefault(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get registration config: %w", err)
	}
	confirmed, err := s.registrationRepo.CountByEventAndState(ctx, eventID, domain.StateConfirmed)
	if err != nil {
		return nil, fmt.Errorf("count confirmed registrations: %w", err)
	}
	waiting, err := s.registrationRepo.CountByEventAndState(ctx, eventID, domain.StateWaitingList)
	if err != nil {
		return nil, fmt.Errorf("count waiting list: %w", err)
	}

	available := -1
	if cfg.HasParticipantLimit() {
		available = max(*cfg.MaxParticipants-confirmed, 0)
	}

	return &domain.EventStatus{
		Config:              cfg,
		CurrentParticipants: confirmed,
		CurrentWaitingList:  waiting,
		AvailableSpots:      available,
		IsOpen:              cfg.IsOpen(s.now()),
		IsFull:              !cfg.HasSpot(confirmed),
	}, nil
}

func (s *registrationQueryService) GetUserRegistration(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.RegistrationNotFoundError{EventID: eventID, UserID: userID}
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *registrationQueryService) Find(ctx context.Context, registrationID string) (*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.RegistrationNotFoundError{ID: registrationID}
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *registrationQueryService) ListRegistrations(ctx context.Context, eventID string, state *domain.RegistrationState, page domain.PaginationParams) ([]*domain.Registration, int, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if state != nil && !state.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown state %q", domain.ErrInvalidInput, *state)
	}
	regs, total, err := s.registrationRepo.ListByEvent(ctx, eventID, state, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, total, nil
}

func (s *registrationQueryService) GetWaitingList(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListWaitingList(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list waiting list: %w", err)
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

func (s *registrationQueryService) ListUserRegistrations(ctx context.Context, userID string) ([]*domain.Registration, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

// ListUserUpcomingRegistrations returns the user's registrations that are still in play.
func (s *registrationQueryService) ListUserUpcomingRegistrations(ctx context.Context, userID string) ([]*domain.Registration, error) {
	all, err := s.ListUserRegistrations(ctx, userID)
	if err != nil {
		return nil, err
	}
	upcoming := make([]*domain.Registration, 0, len(all))
	for _, reg := range all {
		if !reg.State.IsFinal() {
			upcoming = append(upcoming, reg)
		}
	}
	return upcoming, nil
}
