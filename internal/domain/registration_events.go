package domain

import "context"

// EventKind identifies a registration domain event.
type EventKind string

const (
	KindUserRegistered        EventKind = "user_registered"
	KindUserUnregistered      EventKind = "user_unregistered"
	KindRegistrationConfirmed EventKind = "registration_confirmed"
	KindRegistrationRejected  EventKind = "registration_rejected"
	KindWaitingListPromoted   EventKind = "waiting_list_promoted"
)

// DomainEvent is a message emitted after a registration change has been persisted.
type DomainEvent interface {
	Kind() EventKind
	// EventKey is the ID of the event the registration belongs to; delivery is ordered per key.
	EventKey() string
}

// UserRegistered is emitted when a registration is created or reactivated.
type UserRegistered struct {
	RegistrationID string
	EventID        string
	UserID         string
	State          RegistrationState
	Position       *int
}

func (UserRegistered) Kind() EventKind    { return KindUserRegistered }
func (e UserRegistered) EventKey() string { return e.EventID }

// UserUnregistered is emitted on cancellation and carries the state held before it.
type UserUnregistered struct {
	RegistrationID string
	EventID        string
	UserID         string
	PreviousState  RegistrationState
}

func (UserUnregistered) Kind() EventKind    { return KindUserUnregistered }
func (e UserUnregistered) EventKey() string { return e.EventID }

type RegistrationConfirmed struct {
	RegistrationID string
	EventID        string
	UserID         string
}

func (RegistrationConfirmed) Kind() EventKind    { return KindRegistrationConfirmed }
func (e RegistrationConfirmed) EventKey() string { return e.EventID }

type RegistrationRejected struct {
	RegistrationID string
	EventID        string
	UserID         string
}

func (RegistrationRejected) Kind() EventKind    { return KindRegistrationRejected }
func (e RegistrationRejected) EventKey() string { return e.EventID }

// WaitingListPromoted is emitted when the head of the queue is confirmed.
type WaitingListPromoted struct {
	RegistrationID   string
	EventID          string
	UserID           string
	PreviousPosition int
}

func (WaitingListPromoted) Kind() EventKind    { return KindWaitingListPromoted }
func (e WaitingListPromoted) EventKey() string { return e.EventID }

// EventSink receives domain events. Publish is fire-and-forget: it never blocks on or reports
// failures of downstream listeners. It is called with the event lock held, so listeners must not
// run synchronously inside Publish.
type EventSink interface {
	Publish(ctx context.Context, events ...DomainEvent)
}
