package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	"eventadmission/internal/domain"
)

const unlockTimeout = 5 * time.Second

// postgresLocker takes a session-level advisory lock keyed by the event id. It serializes every
// instance sharing the database. The lock lives on a dedicated connection held until unlock.
type postgresLocker struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresLocker(db *sql.DB, logger *slog.Logger) domain.EventLocker {
	return &postgresLocker{db: db, logger: logger}
}

func (p *postgresLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtext($1))`, eventID); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, eventID); err != nil {
			p.logger.Error("advisory unlock failed", "event_id", eventID, "err", err)
			// discard the session so the server drops the lock with it
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		if err := conn.Close(); err != nil {
			p.logger.Error("close lock connection", "event_id", eventID, "err", err)
		}
	}, nil
}
