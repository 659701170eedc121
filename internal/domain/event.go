package domain

import (
	"context"
	"time"
)

// Event is the host application's event as seen by registrations. It is read-only here.
type Event struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// HasEnded reports whether the event is over at now. Events without an end date end when they start.
func (e *Event) HasEnded(now time.Time) bool {
	end := e.StartDate
	if e.EndDate != nil {
		end = *e.EndDate
	}
	return end.Before(now)
}

// EventRepository defines read access to events.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*Event, error)
}
