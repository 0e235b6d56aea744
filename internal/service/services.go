// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"qlink/internal/config"
	"qlink/internal/logger"
	"qlink/internal/quantum"
	"qlink/internal/store"
)

type Services struct {
	Auth          AuthService
	Relationships RelationshipService
	Visibility    VisibilityService
	Audit         AuditService
}

func NewServices(storages *store.Storages, provider quantum.Provider, cfg config.StructuredConfig, logger *logger.Logger) *Services {
	audit := NewAuditService(storages.Users, provider, logger)

	return &Services{
		Auth:          NewAuthService(storages.Users, provider, audit, cfg.App, logger),
		Relationships: NewRelationshipService(storages.Users, storages.Relationships, provider, logger),
		Visibility:    NewVisibilityService(storages.Users, storages.Relationships, logger),
		Audit:         audit,
	}
}
