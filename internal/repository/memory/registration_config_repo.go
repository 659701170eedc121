package memory

import (
	"context"
	"sync"
	"time"

	"eventadmission/internal/domain"
)

// RegistrationConfigRepository keeps configs in memory and falls back to the default policy.
type RegistrationConfigRepository struct {
	mu       sync.RWMutex
	configs  map[string]*domain.RegistrationConfig
	defaults domain.DefaultPolicySource
	now      func() time.Time
}

func NewRegistrationConfigRepository(defaults domain.DefaultPolicySource) *RegistrationConfigRepository {
	return &RegistrationConfigRepository{
		configs:  make(map[string]*domain.RegistrationConfig),
		defaults: defaults,
		now:      time.Now,
	}
}

func (r *RegistrationConfigRepository) Save(_ context.Context, cfg *domain.RegistrationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.configs[cfg.EventID]; ok {
		cfg.CreatedAt = existing.CreatedAt
	} else {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	r.configs[cfg.EventID] = cfg.Clone()
	return nil
}

func (r *RegistrationConfigRepository) GetByEventID(_ context.Context, eventID string) (*domain.RegistrationConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cfg.Clone(), nil
}

func (r *RegistrationConfigRepository) GetByEventIDOrDefault(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	cfg, err := r.GetByEventID(ctx, eventID)
	if err != nil {
		return r.defaults.DefaultPolicy().ConfigFor(eventID), nil
	}
	return cfg, nil
}

func (r *RegistrationConfigRepository) Delete(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[eventID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.configs, eventID)
	return nil
}

func (r *RegistrationConfigRepository) Exists(_ context.Context, eventID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[eventID]
	return ok, nil
}
