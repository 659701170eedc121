package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationState_Predicates(t *testing.T) {
	tests := []struct {
		state      RegistrationState
		active     bool
		waiting    bool
		final      bool
		cancelable bool
		promotable bool
	}{
		{state: StatePending, waiting: true, cancelable: true},
		{state: StateConfirmed, active: true, cancelable: true},
		{state: StateWaitingList, waiting: true, cancelable: true, promotable: true},
		{state: StateCancelled, final: true},
		{state: StateRejected, final: true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.True(t, tt.state.Valid())
			assert.Equal(t, tt.active, tt.state.IsActive())
			assert.Equal(t, tt.waiting, tt.state.IsWaiting())
			assert.Equal(t, tt.final, tt.state.IsFinal())
			assert.Equal(t, tt.cancelable, tt.state.CanBeCancelled())
			assert.Equal(t, tt.promotable, tt.state.CanBePromoted())
		})
	}
}

func TestParseRegistrationState(t *testing.T) {
	for _, s := range RegistrationStates {
		got, err := ParseRegistrationState(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseRegistrationState("attending")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = ParseRegistrationState("")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from    RegistrationState
		to      RegistrationState
		trigger Trigger
		allowed bool
	}{
		{StatePending, StateConfirmed, TriggerConfirm, true},
		{StateWaitingList, StateConfirmed, TriggerConfirm, true},
		{StateConfirmed, StateConfirmed, TriggerConfirm, true},
		{StateCancelled, StateConfirmed, TriggerConfirm, false},
		{StateRejected, StateConfirmed, TriggerConfirm, false},

		{StatePending, StateWaitingList, TriggerQueue, true},
		{StateConfirmed, StateWaitingList, TriggerQueue, true},
		{StateWaitingList, StateWaitingList, TriggerQueue, false},
		{StateCancelled, StateWaitingList, TriggerQueue, false},

		{StatePending, StateCancelled, TriggerCancel, true},
		{StateWaitingList, StateCancelled, TriggerCancel, true},
		{StateConfirmed, StateCancelled, TriggerCancel, true},
		{StateCancelled, StateCancelled, TriggerCancel, false},
		{StateRejected, StateCancelled, TriggerCancel, false},

		{StatePending, StateRejected, TriggerReject, true},
		{StateWaitingList, StateRejected, TriggerReject, true},
		{StateConfirmed, StateRejected, TriggerReject, false},

		{StateWaitingList, StateConfirmed, TriggerPromote, true},
		{StatePending, StateConfirmed, TriggerPromote, false},

		{StateCancelled, StatePending, TriggerReactivate, true},
		{StateCancelled, StateWaitingList, TriggerReactivate, true},
		{StateRejected, StatePending, TriggerReactivate, true},
		{StateRejected, StateWaitingList, TriggerReactivate, true},
		{StateCancelled, StateConfirmed, TriggerReactivate, false},
		{StateConfirmed, StatePending, TriggerReactivate, false},
	}

	for _, tt := range tests {
		name := string(tt.from) + "_" + string(tt.trigger) + "_" + string(tt.to)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to, tt.trigger))
		})
	}
}

func TestTransitionFor(t *testing.T) {
	tr, ok := TransitionFor(StateWaitingList, TriggerPromote)
	require.True(t, ok)
	assert.Equal(t, StateConfirmed, tr.To)

	tr, ok = TransitionFor(StatePending, TriggerReject)
	require.True(t, ok)
	assert.Equal(t, StateRejected, tr.To)

	_, ok = TransitionFor(StateConfirmed, TriggerReject)
	assert.False(t, ok)
}
