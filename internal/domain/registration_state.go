package domain

import "fmt"

// RegistrationState is the lifecycle state of an event registration.
type RegistrationState string

const (
	StatePending     RegistrationState = "pending"
	StateConfirmed   RegistrationState = "confirmed"
	StateWaitingList RegistrationState = "waiting_list"
	StateCancelled   RegistrationState = "cancelled"
	StateRejected    RegistrationState = "rejected"
)

// RegistrationStates lists every state in display order.
var RegistrationStates = []RegistrationState{
	StatePending,
	StateConfirmed,
	StateWaitingList,
	StateCancelled,
	StateRejected,
}

// ParseRegistrationState converts a stored or submitted value into a RegistrationState.
func ParseRegistrationState(s string) (RegistrationState, error) {
	st := RegistrationState(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown registration state %q", ErrInvalidInput, s)
	}
	return st, nil
}

func (s RegistrationState) String() string { return string(s) }

// Valid reports whether s is one of the known states.
func (s RegistrationState) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateWaitingList, StateCancelled, StateRejected:
		return true
	}
	return false
}

// IsActive reports whether the registration holds a seat.
func (s RegistrationState) IsActive() bool {
	return s == StateConfirmed
}

// IsWaiting reports whether the registration is pending or queued.
func (s RegistrationState) IsWaiting() bool {
	return s == StatePending || s == StateWaitingList
}

// IsFinal reports whether no further user-initiated transition exists.
func (s RegistrationState) IsFinal() bool {
	return s == StateCancelled || s == StateRejected
}

func (s RegistrationState) CanBeCancelled() bool {
	return !s.IsFinal()
}

func (s RegistrationState) CanBePromoted() bool {
	return s == StateWaitingList
}

// Trigger names the action that moves a registration between states.
type Trigger string

const (
	TriggerConfirm    Trigger = "confirm"
	TriggerQueue      Trigger = "queue"
	TriggerCancel     Trigger = "cancel"
	TriggerReject     Trigger = "reject"
	TriggerPromote    Trigger = "promote"
	TriggerReactivate Trigger = "reactivate"
)

// Transition is a single allowed edge in the registration state machine.
type Transition struct {
	From    RegistrationState
	To      RegistrationState
	Trigger Trigger
}

var transitionsTable = []Transition{
	// Admission and admin confirmation
	{From: StatePending, To: StateConfirmed, Trigger: TriggerConfirm},
	{From: StateWaitingList, To: StateConfirmed, Trigger: TriggerConfirm},
	{From: StateConfirmed, To: StateConfirmed, Trigger: TriggerConfirm},

	// Queueing; confirmed -> waiting list is the admin "move to waiting list" override
	{From: StatePending, To: StateWaitingList, Trigger: TriggerQueue},
	{From: StateConfirmed, To: StateWaitingList, Trigger: TriggerQueue},

	// Cancellation by user or admin
	{From: StatePending, To: StateCancelled, Trigger: TriggerCancel},
	{From: StateWaitingList, To: StateCancelled, Trigger: TriggerCancel},
	{From: StateConfirmed, To: StateCancelled, Trigger: TriggerCancel},

	// Rejection (admin only)
	{From: StatePending, To: StateRejected, Trigger: TriggerReject},
	{From: StateWaitingList, To: StateRejected, Trigger: TriggerReject},

	// Promotion from the head of the queue
	{From: StateWaitingList, To: StateConfirmed, Trigger: TriggerPromote},

	// Fresh registration attempt over a final row
	{From: StateCancelled, To: StatePending, Trigger: TriggerReactivate},
	{From: StateCancelled, To: StateWaitingList, Trigger: TriggerReactivate},
	{From: StateRejected, To: StatePending, Trigger: TriggerReactivate},
	{From: StateRejected, To: StateWaitingList, Trigger: TriggerReactivate},
}

// TransitionFor returns the allowed transition for a given state and trigger.
// Triggers with a single target (cancel, reject, promote) resolve unambiguously;
// for queue and reactivate the caller checks the target with CanTransition.
func TransitionFor(from RegistrationState, trigger Trigger) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Trigger == trigger {
			return tr, true
		}
	}
	return Transition{}, false
}

// CanTransition reports whether from -> to is allowed under trigger.
func CanTransition(from, to RegistrationState, trigger Trigger) bool {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.To == to && tr.Trigger == trigger {
			return true
		}
	}
	return false
}
