package domain

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Registration is one user's registration for an event.
// swagger:model Registration
type Registration struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	UserID      string            `json:"user_id"`
	State       RegistrationState `json:"state"`
	Position    *int              `json:"position"`
	FormData    map[string]any    `json:"form_data"`
	Notes       *string           `json:"notes"`
	AdminNotes  *string           `json:"admin_notes"`
	ConfirmedAt *time.Time        `json:"confirmed_at"`
	CancelledAt *time.Time        `json:"cancelled_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewRegistrationID returns a fresh registration identifier.
func NewRegistrationID() string {
	return uuid.NewString()
}

// NewRegistration returns a Pending registration with a fresh ID. Timestamps are set by the repository on save.
func NewRegistration(eventID, userID string, formData map[string]any, notes *string) *Registration {
	return &Registration{
		ID:       NewRegistrationID(),
		EventID:  eventID,
		UserID:   userID,
		State:    StatePending,
		FormData: cloneFormData(formData),
		Notes:    notes,
	}
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	c := *r
	c.FormData = cloneFormData(r.FormData)
	if r.Position != nil {
		p := *r.Position
		c.Position = &p
	}
	if r.Notes != nil {
		n := *r.Notes
		c.Notes = &n
	}
	if r.AdminNotes != nil {
		n := *r.AdminNotes
		c.AdminNotes = &n
	}
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

// PositionValue returns the waiting list position or 0 when not queued.
func (r *Registration) PositionValue() int {
	if r.Position == nil {
		return 0
	}
	return *r.Position
}

// Confirm marks the registration confirmed, clearing its queue position and refreshing ConfirmedAt.
// Callers gate it; it does not inspect the current state.
func (r *Registration) Confirm(now time.Time) {
	r.State = StateConfirmed
	r.Position = nil
	r.ConfirmedAt = &now
}

// MoveToWaitingList queues the registration at position.
func (r *Registration) MoveToWaitingList(position int) error {
	if !CanTransition(r.State, StateWaitingList, TriggerQueue) {
		return &InvalidTransitionError{RegistrationID: r.ID, From: r.State, Trigger: TriggerQueue}
	}
	r.State = StateWaitingList
	r.Position = &position
	return nil
}

// Cancel moves the registration to Cancelled. Final registrations cannot be cancelled.
func (r *Registration) Cancel(now time.Time) error {
	switch r.State {
	case StateCancelled:
		return &CannotCancelError{RegistrationID: r.ID, EventID: r.EventID, Reason: CancelAlreadyCancelled}
	case StateRejected:
		return &CannotCancelError{RegistrationID: r.ID, EventID: r.EventID, Reason: CancelRejected}
	}
	r.State = StateCancelled
	r.Position = nil
	r.CancelledAt = &now
	return nil
}

// Reject moves a pending or queued registration to Rejected.
func (r *Registration) Reject() error {
	if _, ok := TransitionFor(r.State, TriggerReject); !ok {
		return &InvalidTransitionError{RegistrationID: r.ID, From: r.State, Trigger: TriggerReject}
	}
	r.State = StateRejected
	r.Position = nil
	return nil
}

// Promote confirms a queued registration. It reports false and does nothing for any other state.
func (r *Registration) Promote(now time.Time) bool {
	if !r.State.CanBePromoted() {
		return false
	}
	r.Confirm(now)
	return true
}

// UpdatePosition renumbers a queued registration.
func (r *Registration) UpdatePosition(position int) {
	r.Position = &position
}

func (r *Registration) UpdateAdminNotes(notes *string) {
	r.AdminNotes = notes
}

// Reactivate reuses a final registration for a fresh attempt. Timestamps and position are cleared and
// the submitted form data and notes replace the previous ones.
func (r *Registration) Reactivate(state RegistrationState, formData map[string]any, notes *string) error {
	if !CanTransition(r.State, state, TriggerReactivate) {
		return &InvalidTransitionError{RegistrationID: r.ID, From: r.State, Trigger: TriggerReactivate}
	}
	r.State = state
	r.FormData = cloneFormData(formData)
	r.Notes = notes
	r.Position = nil
	r.ConfirmedAt = nil
	r.CancelledAt = nil
	return nil
}

func cloneFormData(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return maps.Clone(in)
}

// RegistrationRepository defines storage operations for registrations. Save is an upsert by ID and
// owns CreatedAt/UpdatedAt. Lookups return ErrNotFound for absent rows.
type RegistrationRepository interface {
	Save(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Registration, error)
	Delete(ctx context.Context, id string) error
	// ListByEvent returns registrations ordered by creation, optionally filtered by state, with the unpaged total.
	ListByEvent(ctx context.Context, eventID string, state *RegistrationState, page PaginationParams) ([]*Registration, int, error)
	ListByUser(ctx context.Context, userID string) ([]*Registration, error)
	CountByEventAndState(ctx context.Context, eventID string, state RegistrationState) (int, error)
	// NextWaitingListPosition returns max(position)+1 over the event's queued rows, 1 when none.
	NextWaitingListPosition(ctx context.Context, eventID string) (int, error)
	// FirstInWaitingList returns the queued row with the lowest position.
	FirstInWaitingList(ctx context.Context, eventID string) (*Registration, error)
	// ListWaitingList returns queued rows ordered by position ascending.
	ListWaitingList(ctx context.Context, eventID string) ([]*Registration, error)
}

// RegisterInput is what a user submits to register for an event.
type RegisterInput struct {
	EventID  string
	UserID   string
	FormData map[string]any
	Notes    *string
}

// RegistrationService is the admission engine: user registration and cancellation plus admin overrides.
type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*Registration, error)
	Cancel(ctx context.Context, eventID, userID string) error
	Confirm(ctx context.Context, registrationID string) (*Registration, error)
	Reject(ctx context.Context, registrationID string) (*Registration, error)
	MoveToWaitingList(ctx context.Context, registrationID string) (*Registration, error)
	UpdateAdminNotes(ctx context.Context, registrationID string, notes *string) (*Registration, error)
	Delete(ctx context.Context, registrationID string) error
	UpdateConfig(ctx context.Context, cfg *RegistrationConfig) error
	GetConfig(ctx context.Context, eventID string) (*RegistrationConfig, error)
	DeleteConfig(ctx context.Context, eventID string) error
}

// WaitingListService maintains the dense, 1-based queue of each event.
type WaitingListService interface {
	NextPosition(ctx context.Context, eventID string) (int, error)
	AddToWaitingList(ctx context.Context, in RegisterInput, existing *Registration) (*Registration, error)
	// PromoteNext confirms the head of the queue. It returns nil and no error when the queue is empty.
	PromoteNext(ctx context.Context, eventID string) (*Registration, error)
	RecalculatePositions(ctx context.Context, eventID string) error
	// GetPosition returns the user's queue position, or nil unless the registration is in WaitingList.
	GetPosition(ctx context.Context, eventID, userID string) (*int, error)
	GetWaitingList(ctx context.Context, eventID string) ([]*Registration, error)
}

// EventStatus is the public registration status of an event.
// swagger:model EventStatus
type EventStatus struct {
	Config              *RegistrationConfig `json:"config"`
	CurrentParticipants int                 `json:"current_participants"`
	CurrentWaitingList  int                 `json:"current_waiting_list"`
	// AvailableSpots is -1 when the event has no participant limit.
	AvailableSpots int  `json:"available_spots"`
	IsOpen         bool `json:"is_open"`
	IsFull         bool `json:"is_full"`
}

// RegistrationQueryService provides read-only views over registrations.
type RegistrationQueryService interface {
	GetEventStatus(ctx context.Context, eventID string) (*EventStatus, error)
	GetUserRegistration(ctx context.Context, eventID, userID string) (*Registration, error)
	Find(ctx context.Context, registrationID string) (*Registration, error)
	ListRegistrations(ctx context.Context, eventID string, state *RegistrationState, page PaginationParams) ([]*Registration, int, error)
	GetWaitingList(ctx context.Context, eventID string) ([]*Registration, error)
	ListUserRegistrations(ctx context.Context, userID string) ([]*Registration, error)
	ListUserUpcomingRegistrations(ctx context.Context, userID string) ([]*Registration, error)
}

// EventLocker serializes mutating operations per event. Different events never block each other.
type EventLocker interface {
	Lock(ctx context.Context, eventID string) (unlock func(), err error)
}
