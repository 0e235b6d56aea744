// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package main

import (
	"context"
	"fmt"

	"qlink/internal/config"
	"qlink/internal/handler"
	"qlink/internal/logger"
	"qlink/internal/quantum"
	"qlink/internal/server"
	"qlink/internal/service"
	"qlink/internal/store"
	"qlink/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("qlink-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewConnectPostgres(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	if err = db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}

	storages := store.NewStorages(db, log)

	provider := quantum.NewHTTPProvider(quantum.ClientConfig{
		BaseURL:     cfg.Provider.BaseURL,
		Timeout:     cfg.Provider.Timeout,
		MaxRetries:  cfg.Provider.MaxRetries,
		BackoffBase: cfg.Provider.BackoffBase,
	}, log)

	services := service.NewServices(storages, provider, *cfg, log)

	handlers, err := handler.NewHandlers(services, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	background := workers.NewWorkers(storages.Relationships, provider, cfg.Workers, log)
	go background.Run(ctx)

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
