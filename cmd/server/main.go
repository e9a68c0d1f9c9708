package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/demeet/internal/adapters/http"
	"github.com/dkeye/demeet/internal/adapters/oauth"
	"github.com/dkeye/demeet/internal/adapters/store/memory"
	"github.com/dkeye/demeet/internal/adapters/store/postgres"
	"github.com/dkeye/demeet/internal/app"
	"github.com/dkeye/demeet/internal/app/account"
	"github.com/dkeye/demeet/internal/app/permission"
	"github.com/dkeye/demeet/internal/app/token"
	"github.com/dkeye/demeet/internal/config"
	"github.com/dkeye/demeet/internal/core"
	"github.com/dkeye/demeet/internal/obs"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	obs.Init()

	identities, meetings, closeDB, err := openStores(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open store")
	}
	defer closeDB()

	tokens, err := token.NewService(identities, token.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token service")
	}

	var admission app.Admission
	if cfg.Relay.RequireAuth {
		admission = permission.MeetingAdmission{Meetings: meetings}
	}
	orch := app.NewOrchestrator(app.NewRoomManager(), app.SimplePolicy{}, admission)

	deps := router.Deps{
		Config:   cfg,
		Tokens:   tokens,
		Accounts: account.NewService(identities, tokens),
		Meetings: meetings,
		Orch:     orch,
	}
	if cfg.Google.Enabled() {
		g, err := oauth.NewGoogle(ctx, oauth.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		if err != nil {
			log.Error().Err(err).Msg("google login disabled")
		} else {
			deps.Google = g
		}
	}

	r := router.SetupRouter(ctx, deps)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("demeet server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (core.IdentityStore, core.MeetingStore, func(), error) {
	if cfg.Driver != "postgres" {
		return memory.NewIdentityStore(), memory.NewMeetingStore(), func() {}, nil
	}
	db, err := postgres.Open(cfg.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
	if err := migrate(ctx, db); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	return postgres.NewIdentityStore(db), postgres.NewMeetingStore(db), closeDB, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return postgres.Migrate(ctx, db)
}
