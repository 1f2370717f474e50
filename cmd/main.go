package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"letter-log-system/internal/config"
	"letter-log-system/internal/database"
	"letter-log-system/internal/logger"
	"letter-log-system/internal/router"
	"letter-log-system/internal/service"
	"letter-log-system/internal/util"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", os.Getenv("LETTERLOG_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info", "console", os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("jwt.secret is the development default; set LETTERLOG_JWT_SECRET before exposing the server")
	}
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.EnsureAdmin(db, cfg.Admin, log); err != nil {
		return err
	}

	revoker, closeRevoker, err := service.NewRevoker(ctx, cfg.Redis, db)
	if err != nil {
		return err
	}
	defer closeRevoker()

	signer := util.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	audit := service.NewAuditService(db, log)

	var mirror service.LetterMirror
	sheetSync, err := service.NewSheetSyncService(ctx, cfg.Sheets, log)
	if err != nil {
		return err
	}
	if sheetSync != nil {
		mirror = sheetSync
	}

	letters := service.NewLetterService(db, audit, mirror, log)
	if mirror != nil {
		go func() {
			if err := letters.MirrorAll(ctx); err != nil {
				log.Warn().Err(err).Msg("initial sheet sync")
			}
		}()
	}

	app := router.New(router.Deps{
		DB:             db,
		Auth:           service.NewAuthService(db, signer, revoker, log),
		Users:          service.NewUserService(db, audit, log),
		Letters:        letters,
		Audit:          audit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", cfg.Server.Address).
			Str("database", cfg.Database.Driver).
			Bool("redis", cfg.Redis.Addr != "").
			Bool("sheets", cfg.Sheets.Enabled).
			Msg("server starting")
		errCh <- app.Listen(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
