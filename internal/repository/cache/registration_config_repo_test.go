package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventadmission/internal/domain"
	"eventadmission/internal/repository/memory"
)

type countingStore struct {
	domain.RegistrationConfigRepository
	reads int
}

func (c *countingStore) GetByEventIDOrDefault(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	c.reads++
	return c.RegistrationConfigRepository.GetByEventIDOrDefault(ctx, eventID)
}

type policy domain.DefaultPolicy

func (p policy) DefaultPolicy() domain.DefaultPolicy { return domain.DefaultPolicy(p) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCached(t *testing.T) (*RegistrationConfigRepository, *countingStore) {
	t.Helper()
	store := &countingStore{RegistrationConfigRepository: memory.NewRegistrationConfigRepository(policy{WaitingListEnabled: true})}
	repo := NewRegistrationConfigRepository(store, time.Minute, discardLogger())
	return repo, store
}

func TestRegistrationConfigRepository_CachesReads(t *testing.T) {
	ctx := context.Background()
	repo, store := newCached(t)

	first, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	second, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)

	require.Equal(t, 1, store.reads)
	require.Equal(t, first, second)
}

func TestRegistrationConfigRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, _ := newCached(t)

	cfg, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	cfg.RegistrationEnabled = true

	again, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	require.False(t, again.RegistrationEnabled)
}

func TestRegistrationConfigRepository_WritesEvict(t *testing.T) {
	ctx := context.Background()
	repo, store := newCached(t)

	_, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)

	cfg := domain.NewRegistrationConfig("ev-1")
	cfg.MaxParticipants = new(int)
	*cfg.MaxParticipants = 3
	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	require.Equal(t, 3, *got.MaxParticipants)
	require.Equal(t, 2, store.reads)

	require.NoError(t, repo.Delete(ctx, "ev-1"))
	got, err = repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	require.Nil(t, got.MaxParticipants)
	require.Equal(t, 3, store.reads)
}

func TestNewRegistrationConfigRepository_ZeroTTLDisablesCache(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{RegistrationConfigRepository: memory.NewRegistrationConfigRepository(policy{})}
	repo := NewRegistrationConfigRepository(store, 0, discardLogger())

	for range 2 {
		_, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
		require.NoError(t, err)
	}
	require.Equal(t, 2, store.reads)
	require.NoError(t, repo.Save(ctx, domain.NewRegistrationConfig("ev-1")))
}

// stallingStore holds its first GetByEventIDOrDefault after reading from the wrapped store until
// resume is closed.
type stallingStore struct {
	domain.RegistrationConfigRepository
	loaded chan struct{}
	resume chan struct{}
	once   sync.Once
}

func (s *stallingStore) GetByEventIDOrDefault(ctx context.Context, eventID string) (*domain.RegistrationConfig, error) {
	cfg, err := s.RegistrationConfigRepository.GetByEventIDOrDefault(ctx, eventID)
	s.once.Do(func() {
		close(s.loaded)
		<-s.resume
	})
	return cfg, err
}

func TestRegistrationConfigRepository_LoadRacingWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewRegistrationConfigRepository(policy{})
	enabled := domain.NewRegistrationConfig("ev-1")
	enabled.RegistrationEnabled = true
	require.NoError(t, inner.Save(ctx, enabled))

	store := &stallingStore{RegistrationConfigRepository: inner, loaded: make(chan struct{}), resume: make(chan struct{})}
	repo := NewRegistrationConfigRepository(store, time.Minute, discardLogger())

	done := make(chan *domain.RegistrationConfig)
	go func() {
		cfg, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
		assert.NoError(t, err)
		done <- cfg
	}()
	<-store.loaded

	disabled := domain.NewRegistrationConfig("ev-1")
	disabled.RegistrationEnabled = false
	require.NoError(t, repo.Save(ctx, disabled))
	close(store.resume)

	stale := <-done
	require.NotNil(t, stale)
	assert.True(t, stale.RegistrationEnabled)

	got, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, got.RegistrationEnabled)
}

func TestRegistrationConfigRepository_Direct(t *testing.T) {
	ctx := context.Background()
	repo, store := newCached(t)
	direct := repo.Direct()

	_, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)

	// A write that bypasses this process, as another instance would make it.
	changed := domain.NewRegistrationConfig("ev-1")
	changed.RegistrationEnabled = true
	require.NoError(t, store.Save(ctx, changed))

	cached, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, cached.RegistrationEnabled)

	fresh, err := direct.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, fresh.RegistrationEnabled)

	// Writes through the direct view still evict.
	changed.RegistrationEnabled = false
	limit := 4
	changed.MaxParticipants = &limit
	require.NoError(t, direct.Save(ctx, changed))
	got, err := repo.GetByEventIDOrDefault(ctx, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, got.MaxParticipants)
	assert.Equal(t, 4, *got.MaxParticipants)
}
