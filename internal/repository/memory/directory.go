package memory

import (
	"context"
	"sync"

	"eventadmission/internal/domain"
)

// Directory serves users and events for deployments without the host application's tables.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	events map[string]domain.Event
}

func NewDirectory() *Directory {
	return &Directory{
		users:  make(map[string]domain.User),
		events: make(map[string]domain.Event),
	}
}

func (d *Directory) PutUser(u domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) PutEvent(e domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[e.ID] = e
}

// Users returns the directory as a UserRepository.
func (d *Directory) Users() domain.UserRepository { return userLookup{d} }

// Events returns the directory as an EventRepository.
func (d *Directory) Events() domain.EventRepository { return eventLookup{d} }

type userLookup struct{ d *Directory }

func (l userLookup) GetByID(_ context.Context, id string) (*domain.User, error) {
	l.d.mu.RLock()
	defer l.d.mu.RUnlock()
	u, ok := l.d.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

type eventLookup struct{ d *Directory }

func (l eventLookup) GetByID(_ context.Context, id string) (*domain.Event, error) {
	l.d.mu.RLock()
	defer l.d.mu.RUnlock()
	e, ok := l.d.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}
