package services

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/stretchr/testify/require"

	"eventadmission/internal/adapters/lock"
	"eventadmission/internal/domain"
	"eventadmission/internal/repository/memory"
)

const testEventID = "ev-1"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testingT interface {
	require.TestingT
	Helper()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openPolicy admits everyone: open, unlimited, auto-confirmed, waiting list enabled.
type openPolicy struct{}

func (openPolicy) DefaultPolicy() domain.DefaultPolicy {
	return domain.DefaultPolicy{RegistrationEnabled: true, WaitingListEnabled: true}
}

// recordingSink records published events and queues them for its handlers. deliver hands the
// queue to the handlers in publish order; the fixture calls it whenever an event lock is released,
// the way the bus delivers after the publisher moves on. Handlers may publish again.
type recordingSink struct {
	mu         sync.Mutex
	events     []domain.DomainEvent
	pending    []pendingEvent
	delivering bool
	handlers   []func(context.Context, domain.DomainEvent) error
	errs       []error
}

type pendingEvent struct {
	ctx context.Context
	ev  domain.DomainEvent
}

func (s *recordingSink) Publish(ctx context.Context, evs ...domain.DomainEvent) {
	detached := context.WithoutCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evs...)
	for _, ev := range evs {
		s.pending = append(s.pending, pendingEvent{ctx: detached, ev: ev})
	}
}

// deliver runs the handlers for every queued event. A nested call returns at once and leaves the
// newly queued events to the outer loop.
func (s *recordingSink) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		handlers := slices.Clone(s.handlers)
		s.mu.Unlock()

		for _, h := range handlers {
			if err := h(next.ctx, next.ev); err != nil {
				s.mu.Lock()
				s.errs = append(s.errs, err)
				s.mu.Unlock()
			}
		}
		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}

// deliveringLocker releases the wrapped lock and then delivers whatever the sink queued.
type deliveringLocker struct {
	domain.EventLocker
	sink *recordingSink
}

func (l deliveringLocker) Lock(ctx context.Context, eventID string) (func(), error) {
	unlock, err := l.EventLocker.Lock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return func() {
		unlock()
		l.sink.deliver()
	}, nil
}

func (s *recordingSink) kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind())
	}
	return out
}

func (s *recordingSink) all() []domain.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.pending = nil
	s.errs = nil
}

func (s *recordingSink) count(kind domain.EventKind) int {
	n := 0
	for _, k := range s.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// fixture wires the admission engine, the waiting list manager and the cancellation reactor over
// the in-memory stores, with the reactor subscribed to the sink.
type fixture struct {
	regs    *memory.RegistrationRepository
	configs *memory.RegistrationConfigRepository
	sink    *recordingSink
	svc     *registrationService
	wl      *waitingListService
	reactor *CancellationReactor
}

func newFixture(t testingT, cfg *domain.RegistrationConfig) *fixture {
	t.Helper()
	regs := memory.NewRegistrationRepository()
	configs := memory.NewRegistrationConfigRepository(openPolicy{})
	sink := &recordingSink{}
	locker := deliveringLocker{EventLocker: lock.NewMemoryLocker(), sink: sink}
	logger := discardLogger()
	clock := func() time.Time { return testNow }

	svc := newRegistrationService(regs, configs, locker, sink, logger, time.Second)
	svc.now = clock
	svc.waitingList.now = clock

	reactor := NewCancellationReactor(regs, configs, locker, sink, logger, time.Second)
	reactor.waitingList.now = clock
	sink.handlers = append(sink.handlers, reactor.Handle)

	if cfg != nil {
		require.NoError(t, configs.Save(context.Background(), cfg))
	}
	return &fixture{
		regs:    regs,
		configs: configs,
		sink:    sink,
		svc:     svc,
		wl:      svc.waitingList,
		reactor: reactor,
	}
}

func limitedConfig(maxParticipants int) *domain.RegistrationConfig {
	cfg := domain.NewRegistrationConfig(testEventID)
	cfg.MaxParticipants = &maxParticipants
	return cfg
}

func (f *fixture) register(t testingT, userID string) *domain.Registration {
	t.Helper()
	reg, err := f.svc.Register(context.Background(), domain.RegisterInput{EventID: testEventID, UserID: userID})
	require.NoError(t, err)
	return reg
}

func (f *fixture) cancel(t testingT, userID string) {
	t.Helper()
	require.NoError(t, f.svc.Cancel(context.Background(), testEventID, userID))
}

func (f *fixture) get(t testingT, userID string) *domain.Registration {
	t.Helper()
	reg, err := f.regs.GetByEventAndUser(context.Background(), testEventID, userID)
	require.NoError(t, err)
	return reg
}

// queue returns the user IDs on the waiting list in position order, with their positions.
func (f *fixture) queue(t testingT) ([]string, []int) {
	t.Helper()
	regs, err := f.regs.ListWaitingList(context.Background(), testEventID)
	require.NoError(t, err)
	users := make([]string, 0, len(regs))
	positions := make([]int, 0, len(regs))
	for _, r := range regs {
		users = append(users, r.UserID)
		positions = append(positions, r.PositionValue())
	}
	return users, positions
}

func (f *fixture) countState(t testingT, state domain.RegistrationState) int {
	t.Helper()
	n, err := f.regs.CountByEventAndState(context.Background(), testEventID, state)
	require.NoError(t, err)
	return n
}

func dense(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
