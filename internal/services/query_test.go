package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventadmission/internal/domain"
)

func newQueryFixture(t *testing.T, cfg *domain.RegistrationConfig) (*fixture, *registrationQueryService) {
	t.Helper()
	f := newFixture(t, cfg)
	q := NewRegistrationQueryService(f.regs, f.configs, time.Second).(*registrationQueryService)
	q.now = func() time.Time { return testNow }
	return f, q
}

func TestGetEventStatus(t *testing.T) {
	tests := []struct {
		name          string
		cfg           func() *domain.RegistrationConfig
		users         int
		lowerTo       *int
		wantAvailable int
		wantWaiting   int
		wantFull      bool
		wantOpen      bool
	}{
		{
			name:          "unlimited",
			cfg:           func() *domain.RegistrationConfig { return domain.NewRegistrationConfig(testEventID) },
			users:         3,
			wantAvailable: -1,
			wantOpen:      true,
		},
		{
			name:          "seats left",
			cfg:           func() *domain.RegistrationConfig { return limitedConfig(5) },
			users:         2,
			wantAvailable: 3,
			wantOpen:      true,
		},
		{
			name:          "full with queue",
			cfg:           func() *domain.RegistrationConfig { return limitedConfig(2) },
			users:         4,
			wantAvailable: 0,
			wantWaiting:   2,
			wantFull:      true,
			wantOpen:      true,
		},
		{
			name:          "over capacity clamps at zero",
			cfg:           func() *domain.RegistrationConfig { return limitedConfig(3) },
			users:         3,
			lowerTo:       ptr(1),
			wantAvailable: 0,
			wantFull:      true,
			wantOpen:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, q := newQueryFixture(t, tt.cfg())
			for i := range tt.users {
				f.register(t, string(rune('a'+i)))
			}
			if tt.lowerTo != nil {
				require.NoError(t, f.configs.Save(context.Background(), limitedConfig(*tt.lowerTo)))
			}

			status, err := q.GetEventStatus(context.Background(), testEventID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAvailable, status.AvailableSpots)
			assert.Equal(t, tt.wantWaiting, status.CurrentWaitingList)
			assert.Equal(t, tt.users-tt.wantWaiting, status.CurrentParticipants)
			assert.Equal(t, tt.wantFull, status.IsFull)
			assert.Equal(t, tt.wantOpen, status.IsOpen)
			require.NotNil(t, status.Config)
		})
	}
}

func TestGetEventStatus_Closed(t *testing.T) {
	cfg := limitedConfig(2)
	cfg.RegistrationEnabled = false
	_, q := newQueryFixture(t, cfg)

	status, err := q.GetEventStatus(context.Background(), testEventID)
	require.NoError(t, err)
	assert.False(t, status.IsOpen)
	assert.False(t, status.IsFull)
	assert.Equal(t, 2, status.AvailableSpots)
}

func TestQuery_Lookups(t *testing.T) {
	ctx := context.Background()
	f, q := newQueryFixture(t, limitedConfig(1))
	seat := f.register(t, "user1")
	f.register(t, "user2")

	reg, err := q.GetUserRegistration(ctx, testEventID, "user1")
	require.NoError(t, err)
	assert.Equal(t, seat.ID, reg.ID)

	_, err = q.GetUserRegistration(ctx, testEventID, "nobody")
	var notFound *domain.RegistrationNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nobody", notFound.UserID)

	found, err := q.Find(ctx, seat.ID)
	require.NoError(t, err)
	assert.Equal(t, "user1", found.UserID)

	_, err = q.Find(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	waiting, err := q.GetWaitingList(ctx, testEventID)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, "user2", waiting[0].UserID)
}

func TestQuery_ListRegistrations(t *testing.T) {
	ctx := context.Background()
	f, q := newQueryFixture(t, limitedConfig(1))
	f.register(t, "user1")
	f.register(t, "user2")
	f.register(t, "user3")

	all, total, err := q.ListRegistrations(ctx, testEventID, nil, domain.PaginationParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 2)

	state := domain.StateWaitingList
	waiting, total, err := q.ListRegistrations(ctx, testEventID, &state, domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, waiting, 2)

	bogus := domain.RegistrationState("bogus")
	_, _, err = q.ListRegistrations(ctx, testEventID, &bogus, domain.PaginationParams{Page: 1, PageSize: 10})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	none, total, err := q.ListRegistrations(ctx, "other-event", nil, domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, none)
}

func TestQuery_UserRegistrations(t *testing.T) {
	ctx := context.Background()
	f, q := newQueryFixture(t, nil)
	other := domain.NewRegistrationConfig("ev-2")
	require.NoError(t, f.configs.Save(ctx, other))

	f.register(t, "user1")
	_, err := f.svc.Register(ctx, domain.RegisterInput{EventID: "ev-2", UserID: "user1"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, "ev-2", "user1"))

	all, err := q.ListUserRegistrations(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	upcoming, err := q.ListUserUpcomingRegistrations(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, testEventID, upcoming[0].EventID)

	none, err := q.ListUserRegistrations(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
