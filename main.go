package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"identity-sync-service/config"
	"identity-sync-service/database"
	"identity-sync-service/handlers"
	"identity-sync-service/logger"
	"identity-sync-service/services"
	"identity-sync-service/utils"
	"identity-sync-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.LogLevel)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := services.NewTokenVerifier(services.VerifierConfig{
		PublicKey: cfg.PrivyPublicKey,
		Issuer:    cfg.Issuer,
		Audience:  cfg.PrivyAppID,
		Leeway:    cfg.TokenLeeway,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token verifier")
	}

	var archiver services.SnapshotArchiver = services.NoopArchiver{}
	if cfg.Archive.Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.Archive)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize R2 client")
		}
		archiver = services.NewObjectStoreArchiver(r2)
		log.Info().Str("bucket", r2.Bucket()).Msg("✅ Identity snapshots archived to object storage")
	}

	identityService := services.NewIdentityService(db, archiver)

	statsWorker := workers.NewMirrorStatsWorker(identityService.Wallets, cfg.MirrorStatsInterval)
	if err := statsWorker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start mirror stats worker")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(logger.RequestLogger())
	app.Use(recover.New())

	if len(cfg.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.CORSOrigins, ","),
			AllowMethods:     "GET,POST,OPTIONS",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, privy-id-token",
			AllowCredentials: true,
			MaxAge:           86400,
		}))
		log.Info().Strs("origins", cfg.CORSOrigins).Msg("✅ CORS configured")
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.SetupIdentityRoutes(app, verifier, identityService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	log.Info().Msgf("✅ Server running on http://localhost:%s", cfg.Port)

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := statsWorker.Stop(); err != nil {
		log.Error().Err(err).Msg("mirror stats worker shutdown failed")
	}
	if err := database.Close(db); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}
