package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"eventadmission/internal/domain"
)

type storedRegistration struct {
	reg *domain.Registration
	seq int
}

// RegistrationRepository keeps registrations in memory. Values are cloned on the way in and out.
type RegistrationRepository struct {
	mu   sync.RWMutex
	byID map[string]*storedRegistration
	seq  int
	now  func() time.Time
}

func NewRegistrationRepository() *RegistrationRepository {
	return &RegistrationRepository{
		byID: make(map[string]*storedRegistration),
		now:  time.Now,
	}
}

func (r *RegistrationRepository) Save(_ context.Context, reg *domain.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	stored, ok := r.byID[reg.ID]
	if !ok {
		for _, other := range r.byID {
			if other.reg.EventID == reg.EventID && other.reg.UserID == reg.UserID {
				return &domain.AlreadyRegisteredError{EventID: reg.EventID, UserID: reg.UserID}
			}
		}
		r.seq++
		stored = &storedRegistration{seq: r.seq}
		r.byID[reg.ID] = stored
		reg.CreatedAt = now
	} else {
		reg.CreatedAt = stored.reg.CreatedAt
	}
	reg.UpdatedAt = now
	stored.reg = reg.Clone()
	return nil
}

func (r *RegistrationRepository) GetByID(_ context.Context, id string) (*domain.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return stored.reg.Clone(), nil
}

func (r *RegistrationRepository) GetByEventAndUser(_ context.Context, eventID, userID string) (*domain.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.byID {
		if stored.reg.EventID == eventID && stored.reg.UserID == userID {
			return stored.reg.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *RegistrationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *RegistrationRepository) ListByEvent(_ context.Context, eventID string, state *domain.RegistrationState, page domain.PaginationParams) ([]*domain.Registration, int, error) {
	matches := r.collect(func(reg *domain.Registration) bool {
		return reg.EventID == eventID && (state == nil || reg.State == *state)
	}, byCreation)
	total := len(matches)
	if !page.Unbounded() {
		start := min(page.Offset(), total)
		end := min(start+page.PageSize, total)
		matches = matches[start:end]
	}
	return matches, total, nil
}

func (r *RegistrationRepository) ListByUser(_ context.Context, userID string) ([]*domain.Registration, error) {
	regs := r.collect(func(reg *domain.Registration) bool { return reg.UserID == userID }, byCreation)
	slices.Reverse(regs)
	return regs, nil
}

func (r *RegistrationRepository) CountByEventAndState(_ context.Context, eventID string, state domain.RegistrationState) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, stored := range r.byID {
		if stored.reg.EventID == eventID && stored.reg.State == state {
			n++
		}
	}
	return n, nil
}

func (r *RegistrationRepository) NextWaitingListPosition(_ context.Context, eventID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	highest := 0
	for _, stored := range r.byID {
		if stored.reg.EventID == eventID && stored.reg.State == domain.StateWaitingList {
			highest = max(highest, stored.reg.PositionValue())
		}
	}
	return highest + 1, nil
}

func (r *RegistrationRepository) FirstInWaitingList(ctx context.Context, eventID string) (*domain.Registration, error) {
	queue, _ := r.ListWaitingList(ctx, eventID)
	if len(queue) == 0 {
		return nil, domain.ErrNotFound
	}
	return queue[0], nil
}

func (r *RegistrationRepository) ListWaitingList(_ context.Context, eventID string) ([]*domain.Registration, error) {
	return r.collect(func(reg *domain.Registration) bool {
		return reg.EventID == eventID && reg.State == domain.StateWaitingList
	}, byPosition), nil
}

func (r *RegistrationRepository) collect(keep func(*domain.Registration) bool, order func(a, b *storedRegistration) int) []*domain.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var picked []*storedRegistration
	for _, stored := range r.byID {
		if keep(stored.reg) {
			picked = append(picked, stored)
		}
	}
	slices.SortFunc(picked, order)

	out := make([]*domain.Registration, 0, len(picked))
	for _, stored := range picked {
		out = append(out, stored.reg.Clone())
	}
	return out
}

func byCreation(a, b *storedRegistration) int {
	return a.seq - b.seq
}

func byPosition(a, b *storedRegistration) int {
	if d := a.reg.PositionValue() - b.reg.PositionValue(); d != 0 {
		return d
	}
	return a.seq - b.seq
}
