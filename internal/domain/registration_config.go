package domain

import (
	"context"
	"slices"
	"time"
)

// CustomField describes an extra form field collected on registration. Only Required is interpreted here.
type CustomField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// RegistrationConfig is the registration policy of one event.
// swagger:model RegistrationConfig
type RegistrationConfig struct {
	EventID              string        `json:"event_id"`
	RegistrationEnabled  bool          `json:"registration_enabled"`
	MaxParticipants      *int          `json:"max_participants"`
	WaitingListEnabled   bool          `json:"waiting_list_enabled"`
	MaxWaitingList       *int          `json:"max_waiting_list"`
	OpensAt              *time.Time    `json:"registration_opens_at"`
	ClosesAt             *time.Time    `json:"registration_closes_at"`
	CancellationDeadline *time.Time    `json:"cancellation_deadline"`
	RequiresConfirmation bool          `json:"requires_confirmation"`
	RequiresPayment      bool          `json:"requires_payment"`
	MembersOnly          bool          `json:"members_only"`
	CustomFields         []CustomField `json:"custom_fields"`
	ConfirmationMessage  *string       `json:"confirmation_message"`
	NotificationEmail    *string       `json:"notification_email"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// NewRegistrationConfig returns an open, unlimited config with the waiting list enabled.
func NewRegistrationConfig(eventID string) *RegistrationConfig {
	return &RegistrationConfig{
		EventID:             eventID,
		RegistrationEnabled: true,
		WaitingListEnabled:  true,
		CustomFields:        []CustomField{},
	}
}

// Clone returns a copy that shares no pointers with c.
func (c *RegistrationConfig) Clone() *RegistrationConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.MaxParticipants = cloneIntPtr(c.MaxParticipants)
	out.MaxWaitingList = cloneIntPtr(c.MaxWaitingList)
	out.OpensAt = cloneTimePtr(c.OpensAt)
	out.ClosesAt = cloneTimePtr(c.ClosesAt)
	out.CancellationDeadline = cloneTimePtr(c.CancellationDeadline)
	out.CustomFields = slices.Clone(c.CustomFields)
	if c.ConfirmationMessage != nil {
		m := *c.ConfirmationMessage
		out.ConfirmationMessage = &m
	}
	if c.NotificationEmail != nil {
		e := *c.NotificationEmail
		out.NotificationEmail = &e
	}
	return &out
}

// IsOpen reports whether registration is accepted at now. Both window bounds are inclusive.
func (c *RegistrationConfig) IsOpen(now time.Time) bool {
	_, closed := c.ClosedReason(now)
	return !closed
}

// ClosedReason returns why registration is closed at now, and false when it is open.
func (c *RegistrationConfig) ClosedReason(now time.Time) (ClosedReason, bool) {
	if !c.RegistrationEnabled {
		return ClosedDisabled, true
	}
	if c.OpensAt != nil && now.Before(*c.OpensAt) {
		return ClosedNotYetOpen, true
	}
	if c.ClosesAt != nil && now.After(*c.ClosesAt) {
		return ClosedAlreadyClosed, true
	}
	return "", false
}

// HasParticipantLimit reports whether seats are capped. A non-positive maximum means unlimited.
func (c *RegistrationConfig) HasParticipantLimit() bool {
	return c.MaxParticipants != nil && *c.MaxParticipants > 0
}

// HasWaitingListLimit reports whether the queue is capped. A non-positive maximum means unlimited.
func (c *RegistrationConfig) HasWaitingListLimit() bool {
	return c.MaxWaitingList != nil && *c.MaxWaitingList > 0
}

// CanCancel reports whether cancellation is allowed at now; the deadline itself is still allowed.
func (c *RegistrationConfig) CanCancel(now time.Time) bool {
	return c.CancellationDeadline == nil || !now.After(*c.CancellationDeadline)
}

// HasSpot reports whether another registration can be admitted given the confirmed count.
func (c *RegistrationConfig) HasSpot(confirmed int) bool {
	return !c.HasParticipantLimit() || confirmed < *c.MaxParticipants
}

// WaitingListHasRoom reports whether another registration can be queued given the queued count.
func (c *RegistrationConfig) WaitingListHasRoom(waiting int) bool {
	return !c.HasWaitingListLimit() || waiting < *c.MaxWaitingList
}

// MissingRequiredFields returns the names of required custom fields absent or empty in formData.
func (c *RegistrationConfig) MissingRequiredFields(formData map[string]any) []string {
	var missing []string
	for _, f := range c.CustomFields {
		if !f.Required {
			continue
		}
		v, ok := formData[f.Name]
		if !ok || v == nil {
			missing = append(missing, f.Name)
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// DefaultPolicy holds the process-wide registration defaults used for events without a config.
type DefaultPolicy struct {
	RegistrationEnabled  bool
	WaitingListEnabled   bool
	RequiresConfirmation bool
	MaxParticipants      *int
	MaxWaitingList       *int
}

// ConfigFor builds the default config for eventID.
func (p DefaultPolicy) ConfigFor(eventID string) *RegistrationConfig {
	return &RegistrationConfig{
		EventID:              eventID,
		RegistrationEnabled:  p.RegistrationEnabled,
		WaitingListEnabled:   p.WaitingListEnabled,
		RequiresConfirmation: p.RequiresConfirmation,
		MaxParticipants:      cloneIntPtr(p.MaxParticipants),
		MaxWaitingList:       cloneIntPtr(p.MaxWaitingList),
		CustomFields:         []CustomField{},
	}
}

// DefaultPolicySource provides the process-wide defaults.
type DefaultPolicySource interface {
	DefaultPolicy() DefaultPolicy
}

// RegistrationConfigRepository defines storage operations for registration configs.
// Save is a full replace keyed by event ID.
type RegistrationConfigRepository interface {
	Save(ctx context.Context, cfg *RegistrationConfig) error
	GetByEventID(ctx context.Context, eventID string) (*RegistrationConfig, error)
	// GetByEventIDOrDefault falls back to the default policy when no config is stored.
	GetByEventIDOrDefault(ctx context.Context, eventID string) (*RegistrationConfig, error)
	Delete(ctx context.Context, eventID string) error
	Exists(ctx context.Context, eventID string) (bool, error)
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
