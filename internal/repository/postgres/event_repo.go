package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventadmission/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, name, start_date, end_date
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	var endNull sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.StartDate, &endNull)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if endNull.Valid {
		e.EndDate = &endNull.Time
	}
	return e, nil
}
