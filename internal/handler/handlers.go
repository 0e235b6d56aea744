// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

// Package handler aggregates the transport handlers of the application.
package handler

import (
	"qlink/internal/config"
	"qlink/internal/handler/http"
	"qlink/internal/logger"
	"qlink/internal/service"
)

type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, cfg config.Server, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	handlers := &Handlers{}

	if cfg.HTTPAddress != "" {
		handlers.HTTP = http.NewHandler(services, logger)
	}

	if handlers.HTTP == nil {
		return nil, errNoHandlersAreCreated
	}

	return handlers, nil
}
