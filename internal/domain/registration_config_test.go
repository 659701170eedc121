package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestRegistrationConfig_ClosedReason(t *testing.T) {
	tests := []struct {
		name       string
		cfg        RegistrationConfig
		wantReason ClosedReason
		wantClosed bool
	}{
		{name: "open without window", cfg: RegistrationConfig{RegistrationEnabled: true}},
		{name: "disabled", cfg: RegistrationConfig{}, wantReason: ClosedDisabled, wantClosed: true},
		{
			name:       "disabled wins over window",
			cfg:        RegistrationConfig{OpensAt: timePtr(now.Add(time.Hour))},
			wantReason: ClosedDisabled,
			wantClosed: true,
		},
		{
			name:       "before opening",
			cfg:        RegistrationConfig{RegistrationEnabled: true, OpensAt: timePtr(now.Add(time.Second))},
			wantReason: ClosedNotYetOpen,
			wantClosed: true,
		},
		{name: "at opening", cfg: RegistrationConfig{RegistrationEnabled: true, OpensAt: timePtr(now)}},
		{name: "at closing", cfg: RegistrationConfig{RegistrationEnabled: true, ClosesAt: timePtr(now)}},
		{
			name:       "after closing",
			cfg:        RegistrationConfig{RegistrationEnabled: true, ClosesAt: timePtr(now.Add(-time.Second))},
			wantReason: ClosedAlreadyClosed,
			wantClosed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, closed := tt.cfg.ClosedReason(now)
			assert.Equal(t, tt.wantClosed, closed)
			assert.Equal(t, tt.wantReason, reason)
			assert.Equal(t, !tt.wantClosed, tt.cfg.IsOpen(now))
		})
	}
}

func TestRegistrationConfig_Capacity(t *testing.T) {
	tests := []struct {
		name       string
		max        *int
		confirmed  int
		wantLimit  bool
		wantHasSpt bool
	}{
		{name: "nil is unlimited", confirmed: 1000, wantHasSpt: true},
		{name: "zero is unlimited", max: intPtr(0), confirmed: 1000, wantHasSpt: true},
		{name: "negative is unlimited", max: intPtr(-1), confirmed: 5, wantHasSpt: true},
		{name: "room left", max: intPtr(3), confirmed: 2, wantLimit: true, wantHasSpt: true},
		{name: "full", max: intPtr(3), confirmed: 3, wantLimit: true},
		{name: "over capacity", max: intPtr(3), confirmed: 4, wantLimit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RegistrationConfig{MaxParticipants: tt.max, MaxWaitingList: tt.max}
			assert.Equal(t, tt.wantLimit, cfg.HasParticipantLimit())
			assert.Equal(t, tt.wantHasSpt, cfg.HasSpot(tt.confirmed))
			assert.Equal(t, tt.wantLimit, cfg.HasWaitingListLimit())
			assert.Equal(t, tt.wantHasSpt, cfg.WaitingListHasRoom(tt.confirmed))
		})
	}
}

func TestRegistrationConfig_CanCancel(t *testing.T) {
	cfg := RegistrationConfig{}
	assert.True(t, cfg.CanCancel(now))

	cfg.CancellationDeadline = timePtr(now)
	assert.True(t, cfg.CanCancel(now))
	assert.False(t, cfg.CanCancel(now.Add(time.Nanosecond)))
}

func TestRegistrationConfig_MissingRequiredFields(t *testing.T) {
	cfg := RegistrationConfig{CustomFields: []CustomField{
		{Name: "company", Required: true},
		{Name: "size", Required: true},
		{Name: "age", Required: true},
		{Name: "diet"},
	}}

	missing := cfg.MissingRequiredFields(map[string]any{
		"company": "",
		"size":    nil,
		"age":     0,
	})
	assert.Equal(t, []string{"company", "size"}, missing)

	assert.Equal(t, []string{"company", "size", "age"}, cfg.MissingRequiredFields(nil))
	assert.Empty(t, cfg.MissingRequiredFields(map[string]any{"company": "ACME", "size": "M", "age": 30}))
}

func TestRegistrationConfig_Clone(t *testing.T) {
	cfg := NewRegistrationConfig("ev-1")
	cfg.MaxParticipants = intPtr(10)
	cfg.OpensAt = timePtr(now)
	cfg.NotificationEmail = func() *string { s := "a@example.com"; return &s }()
	cfg.CustomFields = []CustomField{{Name: "company"}}

	c := cfg.Clone()
	*c.MaxParticipants = 1
	*c.OpensAt = now.Add(time.Hour)
	*c.NotificationEmail = "b@example.com"
	c.CustomFields[0].Name = "changed"

	assert.Equal(t, 10, *cfg.MaxParticipants)
	assert.Equal(t, now, *cfg.OpensAt)
	assert.Equal(t, "a@example.com", *cfg.NotificationEmail)
	assert.Equal(t, "company", cfg.CustomFields[0].Name)
}

func TestDefaultPolicy_ConfigFor(t *testing.T) {
	policy := DefaultPolicy{
		RegistrationEnabled:  true,
		RequiresConfirmation: true,
		MaxParticipants:      intPtr(15),
	}
	cfg := policy.ConfigFor("ev-9")

	assert.Equal(t, "ev-9", cfg.EventID)
	assert.True(t, cfg.RegistrationEnabled)
	assert.False(t, cfg.WaitingListEnabled)
	assert.True(t, cfg.RequiresConfirmation)
	require.NotNil(t, cfg.MaxParticipants)
	assert.Equal(t, 15, *cfg.MaxParticipants)
	assert.Nil(t, cfg.MaxWaitingList)
	assert.NotNil(t, cfg.CustomFields)

	*cfg.MaxParticipants = 1
	assert.Equal(t, 15, *policy.MaxParticipants)
}
