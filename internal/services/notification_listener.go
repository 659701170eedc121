package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"eventadmission/internal/domain"
)

// NotificationListener turns registration events into emails. Failures are logged by the bus and
// never reach the operation that produced the event.
type NotificationListener struct {
	notifications    domain.NotificationService
	registrationRepo domain.RegistrationRepository
	logger           *slog.Logger

	mu sync.Mutex
	// promoted holds registrations whose promotion mail was sent and whose paired confirmation
	// event is still to come.
	promoted map[string]struct{}
}

func NewNotificationListener(
	notifications domain.NotificationService,
	registrationRepo domain.RegistrationRepository,
	logger *slog.Logger,
) *NotificationListener {
	return &NotificationListener{
		notifications:    notifications,
		registrationRepo: registrationRepo,
		logger:           logger,
		promoted:         make(map[string]struct{}),
	}
}

func (l *NotificationListener) Handle(ctx context.Context, ev domain.DomainEvent) error {
	switch e := ev.(type) {
	case domain.UserRegistered:
		return l.onRegistered(ctx, e)
	case domain.RegistrationConfirmed:
		if l.consumePromoted(e.RegistrationID) {
			return nil
		}
		return l.withRegistration(ctx, e.RegistrationID, l.notifications.SendConfirmationEmail)
	case domain.WaitingListPromoted:
		l.markPromoted(e.RegistrationID)
		return l.withRegistration(ctx, e.RegistrationID, l.notifications.SendPromotionEmail)
	case domain.UserUnregistered:
		return l.withRegistration(ctx, e.RegistrationID, l.notifications.SendCancellationEmail)
	case domain.RegistrationRejected:
		return l.withRegistration(ctx, e.RegistrationID, l.notifications.SendRejectionEmail)
	}
	return nil
}

func (l *NotificationListener) onRegistered(ctx context.Context, e domain.UserRegistered) error {
	reg, err := l.load(ctx, e.RegistrationID)
	if err != nil || reg == nil {
		return err
	}

	var userErr error
	switch {
	case e.State == domain.StateWaitingList && e.Position != nil:
		userErr = l.notifications.SendWaitingListEmail(ctx, reg, *e.Position)
	case e.State == domain.StateConfirmed:
		// the confirmation event that follows covers the user
	default:
		userErr = l.notifications.SendRegistrationEmail(ctx, reg)
	}
	adminErr := l.notifications.SendAdminNotification(ctx, reg)
	return errors.Join(userErr, adminErr)
}

func (l *NotificationListener) withRegistration(ctx context.Context, id string, send func(context.Context, *domain.Registration) error) error {
	reg, err := l.load(ctx, id)
	if err != nil || reg == nil {
		return err
	}
	return send(ctx, reg)
}

// load returns nil without error when the registration was deleted in the meantime.
func (l *NotificationListener) load(ctx context.Context, id string) (*domain.Registration, error) {
	reg, err := l.registrationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			l.logger.DebugContext(ctx, "registration gone, skipping email", "registration_id", id)
			return nil, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (l *NotificationListener) markPromoted(id string) {
	l.mu.Lock()
	l.promoted[id] = struct{}{}
	l.mu.Unlock()
}

func (l *NotificationListener) consumePromoted(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.promoted[id]; ok {
		delete(l.promoted, id)
		return true
	}
	return false
}
