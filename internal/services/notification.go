package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventadmission/internal/domain"
)

const (
	templateRegistered   = "registered"
	templateConfirmed    = "confirmed"
	templateWaitingList  = "waiting_list"
	templatePromoted     = "promoted"
	templateCancelled    = "cancelled"
	templateRejected     = "rejected"
	templateAdminNewUser = "admin_new_registration"
)

type notificationService struct {
	mailer     domain.Mailer
	renderer   domain.EmailTemplateRenderer
	userRepo   domain.UserRepository
	eventRepo  domain.EventRepository
	configRepo domain.RegistrationConfigRepository
	settings   domain.NotificationSettings
	logger     *slog.Logger
	now        func() time.Time
}

// NewNotificationService returns a NotificationService that renders the registration templates and
// sends them with mailer. Mails for events that have already ended are skipped.
func NewNotificationService(
	mailer domain.Mailer,
	renderer domain.EmailTemplateRenderer,
	userRepo domain.UserRepository,
	eventRepo domain.EventRepository,
	configRepo domain.RegistrationConfigRepository,
	settings domain.NotificationSettings,
	logger *slog.Logger,
) domain.NotificationService {
	return &notificationService{
		mailer:     mailer,
		renderer:   renderer,
		userRepo:   userRepo,
		eventRepo:  eventRepo,
		configRepo: configRepo,
		settings:   settings,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *notificationService) SendRegistrationEmail(ctx context.Context, reg *domain.Registration) error {
	if !s.settings.SendRegistrationEmail {
		return nil
	}
	return s.sendToUser(ctx, templateRegistered, reg, nil)
}

func (s *notificationService) SendConfirmationEmail(ctx context.Context, reg *domain.Registration) error {
	if !s.settings.SendConfirmationEmail {
		return nil
	}
	return s.sendToUser(ctx, templateConfirmed, reg, nil)
}

func (s *notificationService) SendWaitingListEmail(ctx context.Context, reg *domain.Registration, position int) error {
	if !s.settings.SendWaitingListEmail {
		return nil
	}
	return s.sendToUser(ctx, templateWaitingList, reg, func(d *domain.RegistrationEmailData) {
		d.Position = position
	})
}

func (s *notificationService) SendPromotionEmail(ctx context.Context, reg *domain.Registration) error {
	if !s.settings.SendPromotionEmail {
		return nil
	}
	return s.sendToUser(ctx, templatePromoted, reg, nil)
}

func (s *notificationService) SendCancellationEmail(ctx context.Context, reg *domain.Registration) error {
	if !s.settings.SendCancellationEmail {
		return nil
	}
	return s.sendToUser(ctx, templateCancelled, reg, nil)
}

func (s *notificationService) SendRejectionEmail(ctx context.Context, reg *domain.Registration) error {
	if !s.settings.SendRejectionEmail {
		return nil
	}
	return s.sendToUser(ctx, templateRejected, reg, nil)
}

// SendAdminNotification tells the event's notification address about a new registration.
// Nothing is sent when the config has no notification address.
func (s *notificationService) SendAdminNotification(ctx context.Context, reg *domain.Registration) error {
	cfg, err := s.configRepo.GetByEventIDOrDefault(ctx, reg.EventID)
	if err != nil {
		return fmt.Errorf("get registration config: %w", err)
	}
	if cfg.NotificationEmail == nil || *cfg.NotificationEmail == "" {
		return nil
	}
	data, ok, err := s.buildData(ctx, reg, cfg)
	if err != nil || !ok {
		return err
	}
	data.Email = *cfg.NotificationEmail
	return s.send(ctx, templateAdminNewUser, data)
}

func (s *notificationService) sendToUser(ctx context.Context, templateName string, reg *domain.Registration, customize func(*domain.RegistrationEmailData)) error {
	cfg, err := s.configRepo.GetByEventIDOrDefault(ctx, reg.EventID)
	if err != nil {
		return fmt.Errorf("get registration config: %w", err)
	}
	data, ok, err := s.buildData(ctx, reg, cfg)
	if err != nil || !ok {
		return err
	}
	if customize != nil {
		customize(data)
	}
	return s.send(ctx, templateName, data)
}

// buildData gathers the template data. It reports false when the mail should not be sent.
func (s *notificationService) buildData(ctx context.Context, reg *domain.Registration, cfg *domain.RegistrationConfig) (*domain.RegistrationEmailData, bool, error) {
	user, err := s.userRepo.GetByID(ctx, reg.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.DebugContext(ctx, "user not found, skipping email", "user_id", reg.UserID, "registration_id", reg.ID)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	data := &domain.RegistrationEmailData{
		Email:          user.Email,
		FirstName:      user.Name,
		EventName:      reg.EventID,
		RegistrationID: reg.ID,
		State:          string(reg.State),
		Position:       reg.PositionValue(),
		AttendeeName:   user.FullName(),
		AttendeeEmail:  user.Email,
	}
	if cfg.ConfirmationMessage != nil {
		data.ConfirmationMessage = *cfg.ConfirmationMessage
	}

	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	switch {
	case err == nil:
		if event.HasEnded(s.now()) {
			s.logger.DebugContext(ctx, "event has ended, skipping email", "event_id", reg.EventID, "registration_id", reg.ID)
			return nil, false, nil
		}
		data.EventName = event.Name
		data.EventStart = event.StartDate.Format("Monday, January 2, 2006 15:04")
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, false, fmt.Errorf("get event: %w", err)
	}

	if data.Email == "" {
		return nil, false, nil
	}
	return data, true, nil
}

func (s *notificationService) send(ctx context.Context, templateName string, data *domain.RegistrationEmailData) error {
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("render %s template: %w", templateName, err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send %s email: %w", templateName, err)
	}
	s.logger.InfoContext(ctx, "email sent",
		"template", templateName,
		"registration_id", data.RegistrationID,
		"to", data.Email,
	)
	return nil
}
