package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/config"
	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/server"
)

func main() {
	port := flag.String("port", "", "listen port (overrides PORT)")
	advisorURL := flag.String("advisor", "", "advisor backend URL (overrides ADVISOR_URL)")
	stateDir := flag.String("state", "", "state directory (overrides STATE_DIR)")
	mock := flag.Bool("mock", false, "use a canned advisor instead of the backend")
	dev := flag.Bool("dev", false, "development mode (colored debug logs)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *advisorURL != "" {
		cfg.Advisor.URL = *advisorURL
	}
	if *stateDir != "" {
		cfg.Store.Dir = *stateDir
	}
	if *mock {
		cfg.Advisor.Mock = true
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	var log *logging.Logger
	if cfg.Logging.Development {
		log = logging.NewDevelopment()
	} else {
		var err error
		log, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			log = logging.NewDefault()
		}
	}
	defer log.Sync()

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting DroidSweep assistant backend",
		zap.String("port", cfg.Server.Port),
		zap.String("state_dir", cfg.Store.EffectiveDir()),
		zap.Bool("mock_advisor", cfg.Advisor.Mock),
	)

	if err := srv.Run(ctx); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}
