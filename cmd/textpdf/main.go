package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"textpdf/internal/config"
	"textpdf/internal/http/handlers"
	"textpdf/internal/http/server"
	"textpdf/internal/infra/logging"
	"textpdf/internal/infra/postgres"
	"textpdf/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("textpdf", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to the YAML config file (default $CONFIG_PATH or config.yaml)")
	provisionOnly := flags.Bool("provision", false, "resolve or install the browser binary, then exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var cfg config.Config
	if *configPath != "" {
		cfg = config.LoadFrom(*configPath)
	} else {
		cfg = config.Load()
	}

	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
	)
	logging.SetLogLevel(cfg.Logger.Level)

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {
		logging.Debug(fmt.Sprintf(format, a...))
	}))
	defer undo()
	if err != nil {
		logging.Warn("Failed to set GOMAXPROCS", "error", err)
	}

	stack, err := pipeline.NewStack(cfg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if *provisionOnly {
		return provision(stack, cfg)
	}

	var rdb *redis.Client
	if cfg.Cache.PDFCacheEnabled {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.PDFCacheDB,
		})
		defer rdb.Close()
	}

	var documents handlers.DocumentStore
	if cfg.Store.PostgresDSN != "" {
		db := postgres.NewDB()
		defer db.Close()
		repo := postgres.NewDocumentRepository(db, cfg.Store.PostgresDSN)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := repo.EnsureSchema(ctx); err != nil {
			logging.Error("Failed to ensure documents schema", "error", err)
		}
		cancel()
		documents = repo
	}

	if cfg.Browser.Prewarm {
		go prewarm(stack)
	}

	app := server.New(server.Deps{
		Config:    cfg,
		Redis:     rdb,
		Stack:     stack,
		Documents: documents,
	})

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
	return nil
}

// provision resolves the browser once, for image builds and init containers.
func provision(stack *pipeline.Stack, cfg config.Config) error {
	timeout := cfg.Browser.InstallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout+30*time.Second)
	defer cancel()

	ep, err := stack.Provisioner.Ensure(ctx)
	if err != nil {
		return fmt.Errorf("provision browser: %w", err)
	}
	logging.Info("Browser ready", "path", ep.ExecutablePath, "state", string(stack.Provisioner.State()))
	return nil
}

func prewarm(stack *pipeline.Stack) {
	if _, err := stack.Fonts.Resolve(); err != nil {
		logging.Warn("Font pre-warm failed", "error", err)
	}
	if _, err := stack.Provisioner.Ensure(context.Background()); err != nil {
		logging.Warn("Browser pre-warm failed, will retry on first request", "error", err)
	}
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
