package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventadmission/internal/domain"
)

const eventUserConstraint = "event_registrations_event_user_key"

const registrationColumns = `id, event_id, user_id, state, position, form_data, notes, admin_notes, confirmed_at, cancelled_at, created_at, updated_at`

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func (r *registrationRepository) Save(ctx context.Context, reg *domain.Registration) error {
	formData, err := json.Marshal(formDataOrEmpty(reg.FormData))
	if err != nil {
		return fmt.Errorf("encode form data: %w", err)
	}
	query := `
		INSERT INTO event_registrations (id, event_id, user_id, state, position, form_data, notes, admin_notes, confirmed_at, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			position = EXCLUDED.position,
			form_data = EXCLUDED.form_data,
			notes = EXCLUDED.notes,
			admin_notes = EXCLUDED.admin_notes,
			confirmed_at = EXCLUDED.confirmed_at,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err = r.DB.QueryRowContext(ctx, query,
		reg.ID,
		reg.EventID,
		reg.UserID,
		string(reg.State),
		nullInt(reg.Position),
		formData,
		nullString(reg.Notes),
		nullString(reg.AdminNotes),
		nullTime(reg.ConfirmedAt),
		nullTime(reg.CancelledAt),
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == eventUserConstraint {
			return &domain.AlreadyRegisteredError{EventID: reg.EventID, UserID: reg.UserID}
		}
		return err
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *registrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE event_id = $1 AND user_id = $2`
	return r.getOne(ctx, query, eventID, userID)
}

func (r *registrationRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Registration, error) {
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string, state *domain.RegistrationState, page domain.PaginationParams) ([]*domain.Registration, int, error) {
	where := `WHERE event_id = $1`
	args := []any{eventID}
	if state != nil {
		where += ` AND state = $2`
		args = append(args, string(*state))
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_registrations `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + registrationColumns + ` FROM event_registrations ` + where + ` ORDER BY created_at ASC, id ASC`
	if !page.Unbounded() {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, page.PageSize, page.Offset())
	}
	regs, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *registrationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *registrationRepository) CountByEventAndState(ctx context.Context, eventID string, state domain.RegistrationState) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND state = $2`,
		eventID, string(state),
	).Scan(&n)
	return n, err
}

func (r *registrationRepository) NextWaitingListPosition(ctx context.Context, eventID string) (int, error) {
	var next int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM event_registrations WHERE event_id = $1 AND state = $2`,
		eventID, string(domain.StateWaitingList),
	).Scan(&next)
	return next, err
}

func (r *registrationRepository) FirstInWaitingList(ctx context.Context, eventID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations
		WHERE event_id = $1 AND state = $2
		ORDER BY position ASC
		LIMIT 1`
	return r.getOne(ctx, query, eventID, string(domain.StateWaitingList))
}

func (r *registrationRepository) ListWaitingList(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM event_registrations
		WHERE event_id = $1 AND state = $2
		ORDER BY position ASC`
	return r.list(ctx, query, eventID, string(domain.StateWaitingList))
}

func (r *registrationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Registration, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var (
		reg         domain.Registration
		state       string
		position    sql.NullInt64
		formData    []byte
		notes       sql.NullString
		adminNotes  sql.NullString
		confirmedAt sql.NullTime
		cancelledAt sql.NullTime
	)
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&state,
		&position,
		&formData,
		&notes,
		&adminNotes,
		&confirmedAt,
		&cancelledAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.State = domain.RegistrationState(state)
	if position.Valid {
		p := int(position.Int64)
		reg.Position = &p
	}
	reg.FormData = map[string]any{}
	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &reg.FormData); err != nil {
			return nil, fmt.Errorf("decode form data: %w", err)
		}
	}
	reg.Notes = stringPtr(notes)
	reg.AdminNotes = stringPtr(adminNotes)
	reg.ConfirmedAt = timePtr(confirmedAt)
	reg.CancelledAt = timePtr(cancelledAt)
	return &reg, nil
}

func formDataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
