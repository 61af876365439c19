// Command sweeper deactivates expired links once and exits. It is meant to
// be run by an external scheduler when the server's own sweeper is disabled.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/config"
	"github.com/Monthlyaway/shortlink-redirect/internal/app"
	"github.com/Monthlyaway/shortlink-redirect/internal/logging"
	"github.com/Monthlyaway/shortlink-redirect/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	timeout := flag.Duration("timeout", time.Minute, "maximum time for one sweep")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize logger")
	}

	if err := run(cfg, log, *timeout); err != nil {
		log.WithError(err).Fatal("sweep failed")
	}
}

func run(cfg *config.Config, log *logrus.Logger, timeout time.Duration) error {
	store, err := app.OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := service.NewSweeper(store, nil, log).Sweep(ctx)
	if err != nil {
		return err
	}
	log.WithField("deactivated", n).Info("sweep finished")
	return nil
}
