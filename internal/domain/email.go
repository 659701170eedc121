package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RegistrationEmailData is the template data of every registration email.
type RegistrationEmailData struct {
	Email               string
	FirstName           string
	EventName           string
	EventStart          string
	RegistrationID      string
	State               string
	Position            int
	ConfirmationMessage string
	// Attendee fields, used by the admin notification only.
	AttendeeName  string
	AttendeeEmail string
}

// NotificationSettings toggles each registration email.
type NotificationSettings struct {
	SendRegistrationEmail bool
	SendConfirmationEmail bool
	SendWaitingListEmail  bool
	SendPromotionEmail    bool
	SendCancellationEmail bool
	SendRejectionEmail    bool
}

// NotificationService sends registration emails. Implementations skip silently when the user, the
// event or the toggle rules it out.
type NotificationService interface {
	SendRegistrationEmail(ctx context.Context, reg *Registration) error
	SendConfirmationEmail(ctx context.Context, reg *Registration) error
	SendWaitingListEmail(ctx context.Context, reg *Registration, position int) error
	SendPromotionEmail(ctx context.Context, reg *Registration) error
	SendCancellationEmail(ctx context.Context, reg *Registration) error
	SendRejectionEmail(ctx context.Context, reg *Registration) error
	SendAdminNotification(ctx context.Context, reg *Registration) error
}
