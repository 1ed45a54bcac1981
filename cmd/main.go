package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"medimind/internal/config"
	"medimind/internal/dispatch"
	"medimind/internal/handlers"
	"medimind/internal/notify"
	"medimind/internal/scheduler"
	"medimind/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Str("timezone", cfg.Timezone).Err(err).Msg("unknown timezone")
	}

	var store storage.Storage
	switch cfg.Storage {
	case "memory":
		log.Info().Msg("using memory storage")
		store = storage.NewMemoryStorage()
	case "sqlite":
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite storage")
		store, err = storage.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open sqlite storage")
		}
	case "mongo":
		log.Info().Str("database", cfg.MongoDBName).Msg("using mongodb storage")
		store, err = storage.NewMongoStorage(cfg.MongoURL, cfg.MongoDBName)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mongodb")
		}
	default:
		log.Fatal().Str("storage", cfg.Storage).Msg("invalid storage type, valid options are: memory, sqlite, mongo")
	}

	var notifier notify.Notifier
	if cfg.EmailEnabled && cfg.ResendAPIKey != "" {
		log.Info().Str("from", cfg.EmailFrom).Msg("email delivery enabled")
		notifier = notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EmailReplyTo, log)
	} else {
		log.Warn().Msg("email delivery disabled, reminders will only be logged")
		notifier = notify.NewLogNotifier(log)
	}

	dispatcher := dispatch.New(store, store, notifier, log,
		dispatch.WithWorkers(cfg.DispatchWorkers),
		dispatch.WithSendTimeout(cfg.SendTimeout),
	)

	sched := scheduler.New(dispatcher, loc, log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	r := mux.NewRouter()
	api := handlers.New(store, sched, log)
	api.Routes(r)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: corsMiddleware(r),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("storage close failed")
	}
}

// corsMiddleware allows the web frontend, served from a different
// origin, to call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
