package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	ErrAlreadyRegistered    = errors.New("already registered")
	ErrRegistrationClosed   = errors.New("registration closed")
	ErrEventFull            = errors.New("event full")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrCannotCancel         = errors.New("cannot cancel registration")
	ErrInvalidTransition    = errors.New("invalid registration state transition")
)

// AlreadyRegisteredError is returned when the user holds a non-final registration for the event.
type AlreadyRegisteredError struct {
	EventID string
	UserID  string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("user %s is already registered for event %s", e.UserID, e.EventID)
}

func (e *AlreadyRegisteredError) Is(target error) bool { return target == ErrAlreadyRegistered }

// ClosedReason tells why registration is not open.
type ClosedReason string

const (
	ClosedDisabled      ClosedReason = "disabled"
	ClosedNotYetOpen    ClosedReason = "not_yet_open"
	ClosedAlreadyClosed ClosedReason = "already_closed"
)

// RegistrationClosedError is returned when the event's registration window is not open.
type RegistrationClosedError struct {
	EventID string
	Reason  ClosedReason
}

func (e *RegistrationClosedError) Error() string {
	switch e.Reason {
	case ClosedDisabled:
		return fmt.Sprintf("registration for event %s is disabled", e.EventID)
	case ClosedNotYetOpen:
		return fmt.Sprintf("registration for event %s is not yet open", e.EventID)
	default:
		return fmt.Sprintf("registration for event %s has closed", e.EventID)
	}
}

func (e *RegistrationClosedError) Is(target error) bool { return target == ErrRegistrationClosed }

// FullReason tells which capacity was exhausted.
type FullReason string

const (
	FullNoSpots     FullReason = "no_spots"
	FullWaitingList FullReason = "waiting_list_full"
)

// EventFullError is returned when neither a seat nor a waiting list slot is available.
type EventFullError struct {
	EventID string
	Reason  FullReason
}

func (e *EventFullError) Error() string {
	if e.Reason == FullWaitingList {
		return fmt.Sprintf("event %s waiting list is full", e.EventID)
	}
	return fmt.Sprintf("event %s has no spots available", e.EventID)
}

func (e *EventFullError) Is(target error) bool { return target == ErrEventFull }

// RegistrationNotFoundError identifies the missing registration either by ID or by user and event.
type RegistrationNotFoundError struct {
	ID      string
	EventID string
	UserID  string
}

func (e *RegistrationNotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("registration with id %s not found", e.ID)
	}
	return fmt.Sprintf("registration for user %s and event %s not found", e.UserID, e.EventID)
}

func (e *RegistrationNotFoundError) Is(target error) bool {
	return target == ErrRegistrationNotFound || target == ErrNotFound
}

// CancelReason tells why a cancellation was refused.
type CancelReason string

const (
	CancelAlreadyCancelled CancelReason = "already_cancelled"
	CancelRejected         CancelReason = "rejected"
	CancelDeadlinePassed   CancelReason = "deadline_passed"
)

// CannotCancelError is returned when a registration may not be cancelled.
type CannotCancelError struct {
	RegistrationID string
	EventID        string
	Reason         CancelReason
}

func (e *CannotCancelError) Error() string {
	switch e.Reason {
	case CancelAlreadyCancelled:
		return fmt.Sprintf("registration %s is already cancelled", e.RegistrationID)
	case CancelRejected:
		return fmt.Sprintf("registration %s has been rejected and cannot be cancelled", e.RegistrationID)
	default:
		return fmt.Sprintf("cancellation deadline for event %s has passed", e.EventID)
	}
}

func (e *CannotCancelError) Is(target error) bool { return target == ErrCannotCancel }

// InvalidTransitionError is returned by admin overrides that the state machine does not allow.
type InvalidTransitionError struct {
	RegistrationID string
	From           RegistrationState
	Trigger        Trigger
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("registration %s: cannot %s from state %s", e.RegistrationID, e.Trigger, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
