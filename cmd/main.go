package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "diagnostic_assistant/docs"
	"diagnostic_assistant/internal/catalog"
	"diagnostic_assistant/internal/config"
	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/handlers"
	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/repository"
	"diagnostic_assistant/internal/repository/db"
	"diagnostic_assistant/internal/server"
	"diagnostic_assistant/internal/service"
	"diagnostic_assistant/internal/simulator"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

// @title                       Diagnostic Assistant API
// @version                     1.0
// @description                 Vehicle diagnostic session: link, DTC scans, ECU registry and live sensor data.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.AddFlags(flags)
	_ = flags.Parse(os.Args[1:])

	// .env is optional; real environment variables win.
	dotEnvErr := godotenv.Load()

	cfg, err := config.Load(flags)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(cfg.Log.Level)
	if dotEnvErr != nil && !errors.Is(dotEnvErr, fs.ErrNotExist) {
		log.Warnw("failed to load .env", "err", dotEnvErr)
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatalw("failed to load ecu catalog", "err", err, "path", cfg.Catalog.Path)
	}

	transport := simulator.New(cat, simulatorConfig(cfg.Simulator), log)
	coord := engine.NewCoordinator(transport, cat, log, engine.Options{
		ConnectTimeout:    cfg.Engine.ConnectTimeout,
		DisconnectTimeout: cfg.Engine.DisconnectTimeout,
		IdentityTimeout:   cfg.Engine.IdentityTimeout,
		ECUQueryTimeout:   cfg.Engine.ECUQueryTimeout,
		MaxInFlight:       cfg.Engine.MaxInFlight,
		StreamInterval:    cfg.Engine.StreamInterval,
	})

	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, coord, service.AuthConfig{
		SigningKey: signingKey(cfg.Auth.SigningKey, log),
		TokenTTL:   cfg.Auth.TokenTTL,
	}, log)
	apiHandler := handlers.NewHandler(services, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lastRun, err := service.ResumeRunNumbers(ctx, repos.RunRepo, coord)
	if err != nil {
		log.Fatalw("failed to read run history", "err", err)
	}
	log.Infow("run numbering resumed", "last_run", lastRun)
	recorderDone := services.Recorder.Start(ctx)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)
	log.Infow("diagnostic assistant started", "port", cfg.Port, "ecus", len(cat.ECUIDs()))

	waitForShutdown(srv, coord, recorderDone, log)
}

func simulatorConfig(c config.SimulatorConfig) simulator.Config {
	return simulator.Config{
		Latency:        c.Latency,
		ConfirmedVIN:   c.ConfirmedVIN,
		ConfirmedModel: c.ConfirmedModel,
		TimeoutECUs:    c.TimeoutECUs,
		FailingECUs:    c.FailingECUs,
		Faults:         c.Faults,
		SensorRate:     c.SensorRate,
	}
}

// signingKey returns the configured key or a random one valid for this process only.
func signingKey(configured string, log *logger.Logger) string {
	if configured != "" {
		return configured
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalw("failed to generate signing key", "err", err)
	}
	log.Warnw("auth.signing_key not set; tokens will not survive a restart")
	return hex.EncodeToString(buf)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM, then stops the server, closes
// the diagnostic session and waits for the recorder to flush.
func waitForShutdown(srv *server.Server, coord *engine.Coordinator, recorderDone <-chan struct{}, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	if err := coord.Close(ctx); err != nil {
		log.Errorw("session close failed", "err", err)
	}

	select {
	case <-recorderDone:
	case <-ctx.Done():
		log.Warnw("recorder did not finish before shutdown deadline")
	}
}
