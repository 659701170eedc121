package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eventadmission/config"
	"eventadmission/internal/adapters/auth"
	"eventadmission/internal/adapters/email"
	"eventadmission/internal/adapters/lock"
	deliveryhttp "eventadmission/internal/delivery/http"
	"eventadmission/internal/delivery/http/controllers"
	"eventadmission/internal/delivery/http/middleware"
	"eventadmission/internal/domain"
	"eventadmission/internal/events"
	"eventadmission/internal/repository/cache"
	"eventadmission/internal/repository/memory"
	"eventadmission/internal/repository/postgres"
	"eventadmission/internal/services"
)

const shutdownTimeout = 10 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

type stores struct {
	registrations domain.RegistrationRepository
	configs       domain.RegistrationConfigRepository
	users         domain.UserRepository
	events        domain.EventRepository
	locker        domain.EventLocker
	db            *sql.DB
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.StoreBackend == config.BackendMemory {
		dir := memory.NewDirectory()
		return &stores{
			registrations: memory.NewRegistrationRepository(),
			configs:       memory.NewRegistrationConfigRepository(cfg),
			users:         dir.Users(),
			events:        dir.Events(),
			locker:        lock.NewMemoryLocker(),
		}, nil
	}

	db, err := openDB(cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	if migrateOnStart {
		if err := postgres.MigrateUp(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	s := &stores{
		registrations: postgres.NewRegistrationRepository(db),
		configs:       postgres.NewRegistrationConfigRepository(db, cfg),
		users:         postgres.NewUserRepository(db),
		events:        postgres.NewEventRepository(db),
		locker:        lock.NewMemoryLocker(),
		db:            db,
	}
	if cfg.LockBackend == config.BackendPostgres {
		s.locker = lock.NewPostgresLocker(db, logger)
	}
	return s, nil
}

func serve(ctx context.Context) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}
	configs := cache.NewRegistrationConfigRepository(st.configs, cfg.CacheTTL, logger)

	mailer, err := email.NewMailer(cfg.Mailer, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	notifications := services.NewNotificationService(
		mailer, email.NewTemplateRenderer(), st.users, st.events, configs, cfg.Notifications, logger,
	)

	bus := events.NewBus(logger)
	defer bus.Close()

	registrations := services.NewRegistrationService(st.registrations, configs.Direct(), st.locker, bus, logger, cfg.RequestTimeout)
	waitingList := services.NewWaitingListService(st.registrations, st.locker, bus, logger, cfg.RequestTimeout)
	queries := services.NewRegistrationQueryService(st.registrations, configs, cfg.RequestTimeout)

	reactor := services.NewCancellationReactor(st.registrations, configs.Direct(), st.locker, bus, logger, cfg.RequestTimeout)
	listener := services.NewNotificationListener(notifications, st.registrations, logger)
	bus.Subscribe(domain.KindUserUnregistered, reactor.Handle)
	bus.SubscribeKinds(listener.Handle,
		domain.KindUserRegistered,
		domain.KindUserUnregistered,
		domain.KindRegistrationConfirmed,
		domain.KindRegistrationRejected,
		domain.KindWaitingListPromoted,
	)

	requireAuth := middleware.RequireAuth(auth.NewJWTVerifier(cfg.JWTSecret), logger)
	router := deliveryhttp.NewRouter(
		controllers.NewRegistrationController(logger, registrations, queries),
		controllers.NewAdminRegistrationController(logger, registrations, queries, waitingList),
		requireAuth,
	)
	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSOrigins, router))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "store", cfg.StoreBackend, "lock", cfg.LockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	// Deferred bus.Close drains pending notifications and promotions before the store closes.
	logger.Info("server stopped", "pending_events", bus.Pending())
	return nil
}
