// Command shelved runs the shelve daemon: folder watches, the classification
// engine, bulk processing, and the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"shelve/internal/config"
	"shelve/internal/daemon"
	"shelve/internal/logging"
	"shelve/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, found, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if found {
		logger.Info("loaded config", logging.String("path", resolvedPath))
	} else {
		logger.Info("no config file found, using defaults", logging.String("searched", resolvedPath))
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("prepare directories", logging.Error(err))
		os.Exit(1)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		os.Exit(1)
	}

	d, err := daemon.New(cfg, st, logger)
	if err != nil {
		_ = st.Close()
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}

	if err := d.Start(ctx); err != nil {
		_ = d.Close()
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shelved shutting down")
	if err := d.Close(); err != nil {
		logger.Warn("close daemon", logging.Error(err))
	}
}
