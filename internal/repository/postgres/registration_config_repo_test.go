package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"eventadmission/internal/domain"
)

type staticPolicy domain.DefaultPolicy

func (p staticPolicy) DefaultPolicy() domain.DefaultPolicy { return domain.DefaultPolicy(p) }

var configRowColumns = []string{
	"event_id", "registration_enabled", "max_participants", "waiting_list_enabled", "max_waiting_list",
	"opens_at", "closes_at", "cancellation_deadline", "requires_confirmation", "requires_payment", "members_only",
	"custom_fields", "confirmation_message", "notification_email", "created_at", "updated_at",
}

func TestRegistrationConfigRepository_GetByEventIDOrDefault(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	defaults := staticPolicy{RegistrationEnabled: false, WaitingListEnabled: true, RequiresConfirmation: true, MaxParticipants: ptr(15)}

	tests := []struct {
		name  string
		mock  func(mock sqlmock.Sqlmock)
		check func(t *testing.T, cfg *domain.RegistrationConfig)
	}{
		{
			name: "stored config",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM event_registration_configs WHERE event_id = \$1`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows(configRowColumns).AddRow(
						"ev-1", true, 2, true, nil,
						nil, ts, nil, false, false, false,
						[]byte(`[{"name":"company","label":"Company","type":"text","required":true}]`), "See you there", nil, ts, ts,
					))
			},
			check: func(t *testing.T, cfg *domain.RegistrationConfig) {
				require.True(t, cfg.RegistrationEnabled)
				require.Equal(t, 2, *cfg.MaxParticipants)
				require.Nil(t, cfg.MaxWaitingList)
				require.Equal(t, ts, *cfg.ClosesAt)
				require.Len(t, cfg.CustomFields, 1)
				require.True(t, cfg.CustomFields[0].Required)
				require.Equal(t, "See you there", *cfg.ConfirmationMessage)
				require.Nil(t, cfg.NotificationEmail)
			},
		},
		{
			name: "falls back to defaults",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM event_registration_configs`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrNoRows)
			},
			check: func(t *testing.T, cfg *domain.RegistrationConfig) {
				require.Equal(t, "ev-1", cfg.EventID)
				require.False(t, cfg.RegistrationEnabled)
				require.True(t, cfg.WaitingListEnabled)
				require.True(t, cfg.RequiresConfirmation)
				require.Equal(t, 15, *cfg.MaxParticipants)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationConfigRepository(db, defaults)
			cfg, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
			require.NoError(t, err)
			tt.check(t, cfg)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationConfigRepository_Save(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := domain.NewRegistrationConfig("ev-1")
	cfg.MaxParticipants = ptr(50)
	cfg.RequiresConfirmation = true

	mock.ExpectQuery(`INSERT INTO event_registration_configs .* ON CONFLICT \(event_id\) DO UPDATE`).
		WithArgs("ev-1", true, int64(50), true, nil, nil, nil, nil, true, false, false, []byte(`[]`), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))

	repo := NewRegistrationConfigRepository(db, staticPolicy{})
	require.NoError(t, repo.Save(ctx, cfg))
	require.Equal(t, ts, cfg.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationConfigRepository_DeleteAndExists(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM event_registration_configs WHERE event_id = \$1`).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := NewRegistrationConfigRepository(db, staticPolicy{})
	require.ErrorIs(t, repo.Delete(ctx, "ev-1"), domain.ErrNotFound)

	exists, err := repo.Exists(ctx, "ev-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
