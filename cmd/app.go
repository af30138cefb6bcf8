package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hasiraza/LLM-Ethicallogix/internal/chat"
	"github.com/hasiraza/LLM-Ethicallogix/internal/config"
	"github.com/hasiraza/LLM-Ethicallogix/internal/provider"
	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
	"github.com/hasiraza/LLM-Ethicallogix/internal/store"
	"github.com/hasiraza/LLM-Ethicallogix/internal/video"
)

// app bundles the wired components every command works with.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    session.Store
	registry *session.Registry
	svc      *chat.Service
	provider provider.Provider
}

// openStore opens the configured store and loads the registry from it.
// Commands that only read conversations stop here and never need a provider.
func openStore(ctx context.Context) (*app, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}
	logger := buildLogger(cfg.Log)

	opts := store.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		Logger:  logger,
	}
	if b := cfg.Storage.Backup; b != nil {
		opts.Backup = &store.Options{Backend: b.Backend, Path: b.Path}
	}
	st, err := store.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}

	reg, err := session.Open(ctx, st, session.Options{
		StrictLoad: !cfg.Storage.ResetOnCorrupt,
		Logger:     logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: st, registry: reg}, nil
}

// openApp opens the store and builds the conversation service with the
// configured provider and video searcher.
func openApp(ctx context.Context) (*app, error) {
	a, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	p, err := provider.Build(a.cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = p

	opts := chat.Options{
		AssistantName:   a.cfg.AssistantName,
		SystemPrompt:    a.cfg.SystemPrompt,
		ContextMessages: a.cfg.Context.MaxMessages,
		MaxVideos:       a.cfg.Video.MaxResults,
		Logger:          a.logger,
	}
	if a.cfg.Video.Enabled {
		opts.Videos = video.NewSearcher(video.Options{
			Timeout: time.Duration(a.cfg.Video.TimeoutSec) * time.Second,
			Logger:  a.logger,
		})
	}
	a.svc = chat.New(a.registry, p, opts)

	a.logger.Debug("conversation service ready",
		"provider", p.Name(),
		"model", p.DefaultModel(),
		"store", a.cfg.Storage.Backend,
		"sessions", len(a.registry.List()))
	return a, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close conversation store", "err", err)
	}
}
