// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomasbasham/cli-runtime/iooption"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/internal/audit"
	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/imaging"
	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/config"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/reader"
)

// Environment holds the services subcommands run against.
type Environment struct {
	Dispatcher *admin.Dispatcher
	Catalog    *library.Catalog
	Resolver   *reader.Resolver
	Logger     *slog.Logger
}

// EnvironmentFunc builds an [Environment].
type EnvironmentFunc func(streams iooption.IOStreams) (*Environment, error)

// Service returns the admin service behind the dispatcher.
func (env *Environment) Service() *admin.Service {
	return env.Dispatcher.Service()
}

// LoadEnvironment wires the services from the store and mirror settings. The
// manifest falls back to a file cache in the user cache directory.
func LoadEnvironment(streams iooption.IOStreams) (*Environment, error) {
	cfg, err := config.LoadStore()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(streams.ErrOut, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))

	client := contentstore.NewClient(cfg.Store, contentstore.WithLogger(logger))

	sources := []library.Source{library.StoreSource{Store: client, Path: cfg.Store.ManifestPath}}
	for _, url := range cfg.Mirror.LibraryURLs {
		sources = append(sources, library.HTTPSource{URL: url})
	}
	catalog := library.NewCatalog(library.NewFetcher(sources, library.NewFileCache(library.DefaultFileCachePath()), logger))

	service := admin.NewService(client, imaging.NewTransformer(imaging.WebPEncoder{}), admin.NewState(), cfg.Store, admin.WithLogger(logger))
	resolver := reader.NewResolver(reader.NewHTTPProber(nil, logger), reader.NewLayout(cfg.Mirror, cfg.Store.ContentRoot), logger)

	return &Environment{
		Dispatcher: admin.NewDispatcher(service, audit.NewLogRecorder(logger), catalog, logger, admin.WithPageCache(resolver)),
		Catalog:    catalog,
		Resolver:   resolver,
		Logger:     logger,
	}, nil
}

// cliActor attributes CLI mutations to the local user.
func cliActor() admin.Actor {
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return admin.Actor{ID: "cli:" + user, IP: "local"}
}

// interruptible cancels on SIGINT or SIGTERM.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
