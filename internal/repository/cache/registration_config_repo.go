package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"eventadmission/internal/domain"
)

// RegistrationConfigRepository caches GetByEventIDOrDefault results. Writes go through to the
// wrapped store and evict the event's entry. Cached values are cloned on every read.
//
// Every write bumps the event's generation. A load that started before the write sees a different
// generation when it finishes and is not cached.
type RegistrationConfigRepository struct {
	next   domain.RegistrationConfigRepository
	cache  *gocache.Cache
	logger *slog.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

// NewRegistrationConfigRepository wraps next with a read cache holding entries for ttl.
// A non-positive ttl disables caching.
func NewRegistrationConfigRepository(next domain.RegistrationConfigRepository, ttl time.Duration, logger *slog.Logger) *RegistrationConfigRepository {
	r := &RegistrationConfigRepository{
		next:        next,
		logger:      logger,
		generations: make(map[string]uint64),
	}
	if ttl > 0 {
		r.cache = gocache.New(ttl, 2*ttl)
	}
	return r
}

// Direct returns a view that reads from the wrapped store and still evicts on writes. Reads taken
// under the event lock go through it, so admission never decides on a cached config.
func (r *RegistrationConfigRepository) Direct() domain.RegistrationConfigRepository {
	return directRepository{r}
}

func (r *RegistrationConfigRepository) Save(ctx context.Context, cfg *domain.RegistrationConfig) error {
	defer r.invalidate(cfg.EventID)
	return r.next.Save(ctx, cfg)
}

func (r *RegistrationConfigRepository) GetByEventID(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	return r.next.GetByEventID(ctx, eventID)
}

func (r *RegistrationConfigRepository) GetByEventIDOrDefault(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	if r.cache == nil {
		return r.next.GetByEventIDOrDefault(ctx, eventID)
	}

	r.mu.Lock()
	if cached, ok := r.cache.Get(eventID); ok {
		r.mu.Unlock()
		return cached.(*domain.RegistrationConfig).Clone(), nil
	}
	generation := r.generations[eventID]
	r.mu.Unlock()

	cfg, err := r.next.GetByEventIDOrDefault(ctx, eventID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generations[eventID] != generation {
		r.logger.DebugContext(ctx, "registration config changed while loading, not cached", "event_id", eventID)
		return cfg, nil
	}
	r.cache.SetDefault(eventID, cfg.Clone())
	r.logger.DebugContext(ctx, "registration config cached", "event_id", eventID)
	return cfg, nil
}

func (r *RegistrationConfigRepository) Delete(ctx context.Context, eventID string) error {
	defer r.invalidate(eventID)
	return r.next.Delete(ctx, eventID)
}

func (r *RegistrationConfigRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	return r.next.Exists(ctx, eventID)
}

// invalidate evicts eventID and bumps its generation. Generations are never reset.
func (r *RegistrationConfigRepository) invalidate(eventID string) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[eventID]++
	r.cache.Delete(eventID)
}

type directRepository struct {
	*RegistrationConfigRepository
}

func (d directRepository) GetByEventIDOrDefault(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	return d.next.GetByEventIDOrDefault(ctx, eventID)
}
