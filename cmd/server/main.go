// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the geladeira pantry server.
// It loads configuration, opens the ingredient store, wires the session manager,
// the prompt proxy and the HTTP API, and shuts everything down gracefully.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/minhageladeira/geladeira/internal/api"
	"github.com/minhageladeira/geladeira/internal/config"
	"github.com/minhageladeira/geladeira/internal/identity"
	"github.com/minhageladeira/geladeira/internal/llm"
	"github.com/minhageladeira/geladeira/internal/logging"
	"github.com/minhageladeira/geladeira/internal/metrics"
	"github.com/minhageladeira/geladeira/internal/pantry"
	"github.com/minhageladeira/geladeira/internal/store"
	"github.com/minhageladeira/geladeira/internal/util"
	"github.com/minhageladeira/geladeira/internal/voice"
	"github.com/minhageladeira/geladeira/internal/watcher"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultConfigPath is used when -config is not given.
	DefaultConfigPath = "config.yaml"

	reapInterval    = time.Minute
	shutdownTimeout = 15 * time.Second
)

func init() {
	logging.SetupBaseLogger()
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.Parse()

	err := run(configPath)
	if err != nil {
		log.Errorf("geladeira: %v", err)
	}
	logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		return err
	}
	config.ApplyEnvOverrides(cfg, config.LookupEnv)

	sb, err := util.NewStateBox()
	if err != nil {
		return fmt.Errorf("state directory: %w", err)
	}
	if err = logging.ConfigureLogOutput(logging.Options{
		Dir:            sb.LogsDir(),
		ToFile:         cfg.LoggingToFile,
		MaxTotalSizeMB: cfg.LogsMaxTotalSizeMB,
	}); err != nil {
		return err
	}
	util.SetLogLevel(cfg.Debug)
	if sb.IsReadOnly() {
		log.Warn("state directory is read-only; the file store will refuse writes")
	}

	httpClient, err := util.NewProxyAwareHTTPClient(cfg.LLM.ProxyURL, cfg.LLM.Timeout())
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, sb, httpClient)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Type, err)
	}
	defer func() {
		if errClose := st.Close(); errClose != nil {
			log.Warnf("close store: %v", errClose)
		}
	}()
	log.Infof("ingredient store: %s", st.Name())

	met := metrics.New()

	llmClient, err := llm.NewClient(llm.SettingsFromConfig(cfg.LLM))
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Warn("llm.api-key is empty; upstream calls will likely be rejected")
	}

	manager := pantry.NewManager(st, nil, pantry.ManagerOptions{
		Sync:        syncOptions(cfg),
		IdleTimeout: cfg.Sync.IdleTimeout(),
		NewVoice:    voiceFactory(cfg, httpClient),
	}, met)

	server := api.NewServer(cfg, manager,
		api.WithStateBox(sb),
		api.WithStore(st),
		api.WithLLM(llmClient),
		api.WithResolver(resolver(cfg, httpClient)),
		api.WithMetrics(met),
		api.WithVoiceAvailable(cfg.Voice.Enabled),
	)

	if _, errStat := os.Stat(configPath); errStat == nil {
		w, errWatch := watcher.New(configPath, nil, func(next *config.Config) {
			server.UpdateConfig(next)
			if errUpdate := llmClient.Update(llm.SettingsFromConfig(next.LLM)); errUpdate != nil {
				log.Errorf("apply llm settings: %v", errUpdate)
			}
			manager.SetSyncOptions(syncOptions(next), next.Sync.IdleTimeout())
		})
		if errWatch == nil {
			errWatch = w.Start()
		}
		if errWatch != nil {
			log.Warnf("config hot reload disabled: %v", errWatch)
		} else {
			defer w.Stop()
		}
	}

	go manager.Run(ctx, reapInterval)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err = <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errStop := server.Stop(shutdownCtx); errStop != nil {
		log.Warn(errStop)
	}
	if errClose := manager.Close(shutdownCtx); errClose != nil {
		log.Warnf("flush pending ingredient lists: %v", errClose)
	}
	log.Info("geladeira stopped")
	return nil
}

func syncOptions(cfg *config.Config) pantry.SyncOptions {
	return pantry.SyncOptions{
		Debounce:     cfg.Sync.Debounce(),
		WriteTimeout: cfg.Sync.WriteTimeout(),
		FlushOnClose: cfg.Sync.FlushOnClose,
	}
}

func voiceFactory(cfg *config.Config, client *http.Client) func() *voice.Capture {
	if !cfg.Voice.Enabled {
		return nil
	}
	rec := voice.NewWhisperRecognizer(cfg.Voice.BaseURL, cfg.VoiceAPIKey(), cfg.Voice.Model, cfg.Voice.Language, client)
	return func() *voice.Capture { return voice.NewCapture(rec) }
}

func resolver(cfg *config.Config, client *http.Client) identity.Resolver {
	chain := identity.Chain{identity.NewTokenResolver(cfg.Auth.Users)}
	if cfg.Auth.RemoteURL != "" {
		chain = append(chain, identity.NewRemoteResolver(cfg.Auth.RemoteURL, cfg.Auth.RemoteAPIKey, client))
	}
	return chain
}
