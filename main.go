package main

import (
	"context"
	"fmt"
	"os"

	"github.com/example/civic-platform/config"
	"github.com/example/civic-platform/logging"
	"github.com/example/civic-platform/modules/api"
	"github.com/example/civic-platform/modules/audit"
	"github.com/example/civic-platform/modules/auth"
	"github.com/example/civic-platform/modules/cache"
	"github.com/example/civic-platform/modules/servicelog"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting civic platform",
		zap.String("env", cfg.Env),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.DB.Driver),
		zap.Bool("cache_enabled", cfg.Cache.Enabled()))

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		logger.Fatal("failed to create application", zap.Error(err))
	}

	userCache := cache.NewModule(cfg.Cache, logger)

	// Middleware first so it observes every later registration.
	modules := []mono.Module{
		servicelog.New(logger, servicelog.DefaultSlowThreshold),
		userCache,
		auth.NewModule(cfg, logger, userCache),
		audit.NewModule(audit.DefaultCapacity, logger),
		api.NewModule(cfg, logger),
	}
	for _, m := range modules {
		if err := app.Register(m); err != nil {
			logger.Fatal("failed to register module", zap.String("module", m.Name()), zap.Error(err))
		}
	}

	if err := app.Start(context.Background()); err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}

	logger.Info("application started",
		zap.Strings("endpoints", []string{
			"POST /api/auth/register",
			"POST /api/auth/login",
			"POST /api/auth/logout",
			"GET  /api/auth/user",
			"GET  /api/auth/admin",
			"POST /api/auth/users/:id/promote",
			"GET  /health",
		}))

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("application exited", zap.Int("exit_code", exitCode))
	logger.Sync()
	os.Exit(exitCode)
}
