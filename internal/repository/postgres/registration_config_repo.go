package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventadmission/internal/domain"
)

const configColumns = `event_id, registration_enabled, max_participants, waiting_list_enabled, max_waiting_list,
	opens_at, closes_at, cancellation_deadline, requires_confirmation, requires_payment, members_only,
	custom_fields, confirmation_message, notification_email, created_at, updated_at`

type registrationConfigRepository struct {
	DB       *sql.DB
	defaults domain.DefaultPolicySource
}

// NewRegistrationConfigRepository returns a config store that falls back to defaults for events
// without a stored config.
func NewRegistrationConfigRepository(db *sql.DB, defaults domain.DefaultPolicySource) domain.RegistrationConfigRepository {
	return &registrationConfigRepository{DB: db, defaults: defaults}
}

func (r *registrationConfigRepository) Save(ctx context.Context, cfg *domain.RegistrationConfig) error {
	fields := cfg.CustomFields
	if fields == nil {
		fields = []domain.CustomField{}
	}
	customFields, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}
	query := `
		INSERT INTO event_registration_configs (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		ON CONFLICT (event_id) DO UPDATE SET
			registration_enabled = EXCLUDED.registration_enabled,
			max_participants = EXCLUDED.max_participants,
			waiting_list_enabled = EXCLUDED.waiting_list_enabled,
			max_waiting_list = EXCLUDED.max_waiting_list,
			opens_at = EXCLUDED.opens_at,
			closes_at = EXCLUDED.closes_at,
			cancellation_deadline = EXCLUDED.cancellation_deadline,
			requires_confirmation = EXCLUDED.requires_confirmation,
			requires_payment = EXCLUDED.requires_payment,
			members_only = EXCLUDED.members_only,
			custom_fields = EXCLUDED.custom_fields,
			confirmation_message = EXCLUDED.confirmation_message,
			notification_email = EXCLUDED.notification_email,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	return r.DB.QueryRowContext(ctx, query,
		cfg.EventID,
		cfg.RegistrationEnabled,
		nullInt(cfg.MaxParticipants),
		cfg.WaitingListEnabled,
		nullInt(cfg.MaxWaitingList),
		nullTime(cfg.OpensAt),
		nullTime(cfg.ClosesAt),
		nullTime(cfg.CancellationDeadline),
		cfg.RequiresConfirmation,
		cfg.RequiresPayment,
		cfg.MembersOnly,
		customFields,
		nullString(cfg.ConfirmationMessage),
		nullString(cfg.NotificationEmail),
	).Scan(&cfg.CreatedAt, &cfg.UpdatedAt)
}

func (r *registrationConfigRepository) GetByEventID(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	query := `SELECT ` + configColumns + ` FROM event_registration_configs WHERE event_id = $1`
	var (
		cfg                 domain.RegistrationConfig
		maxParticipants     sql.NullInt64
		maxWaitingList      sql.NullInt64
		opensAt, closesAt   sql.NullTime
		deadline            sql.NullTime
		customFields        []byte
		confirmationMessage sql.NullString
		notificationEmail   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(
		&cfg.EventID,
		&cfg.RegistrationEnabled,
		&maxParticipants,
		&cfg.WaitingListEnabled,
		&maxWaitingList,
		&opensAt,
		&closesAt,
		&deadline,
		&cfg.RequiresConfirmation,
		&cfg.RequiresPayment,
		&cfg.MembersOnly,
		&customFields,
		&confirmationMessage,
		&notificationEmail,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	cfg.MaxParticipants = intPtr(maxParticipants)
	cfg.MaxWaitingList = intPtr(maxWaitingList)
	cfg.OpensAt = timePtr(opensAt)
	cfg.ClosesAt = timePtr(closesAt)
	cfg.CancellationDeadline = timePtr(deadline)
	cfg.ConfirmationMessage = stringPtr(confirmationMessage)
	cfg.NotificationEmail = stringPtr(notificationEmail)
	cfg.CustomFields = []domain.CustomField{}
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &cfg.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	return &cfg, nil
}

func (r *registrationConfigRepository) GetByEventIDOrDefault(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	cfg, err := r.GetByEventID(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return r.defaults.DefaultPolicy().ConfigFor(eventID), nil
	}
	return cfg, err
}

func (r *registrationConfigRepository) Delete(ctx context.Context, eventID string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_registration_configs WHERE event_id = $1`, eventID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationConfigRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_registration_configs WHERE event_id = $1)`,
		eventID,
	).Scan(&exists)
	return exists, err
}
