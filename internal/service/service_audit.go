// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"qlink/internal/logger"
	"qlink/internal/quantum"
	"qlink/internal/store"
	"qlink/models"
)

// auditService is the concrete implementation of AuditService.
//
// Raw signatures never leave the provider; only references are stored, so a
// database leak exposes no cryptographic material.
type auditService struct {
	users    store.UserRepository
	provider quantum.Provider
	logger   *logger.Logger
}

// NewAuditService constructs an AuditService over the given repository and
// provider.
func NewAuditService(users store.UserRepository, provider quantum.Provider, logger *logger.Logger) AuditService {
	return &auditService{
		users:    users,
		provider: provider,
		logger:   logger,
	}
}

// RecordLogin appends one login record; the storage layer evicts the oldest
// entries beyond the retention cap in the same transaction.
func (a *auditService) RecordLogin(ctx context.Context, userID int64, record models.LoginRecord) error {
	if err := a.users.AppendLoginRecord(ctx, userID, record); err != nil {
		return fmt.Errorf("appending login record failed: %w", err)
	}

	return nil
}

// RecordSensitiveEvent has the provider sign the event and stores the
// returned reference. The signature comes first: when the provider cannot
// sign, the error propagates and the calling action must not proceed.
func (a *auditService) RecordSensitiveEvent(ctx context.Context, userID int64, eventType string, metadata []byte) (models.SignatureRef, error) {
	log := logger.FromContext(ctx)

	payload := append([]byte(eventType+":"+strconv.FormatInt(userID, 10)+":"), metadata...)
	signature, err := a.provider.SignEvent(ctx, userID, payload)
	if err != nil {
		log.Err(err).Int64("userID", userID).Str("eventType", eventType).Msg("signing event failed")
		return models.SignatureRef{}, fmt.Errorf("signing %s event failed: %w", eventType, err)
	}

	err = a.users.AppendSignedEvent(ctx, userID, models.SignedEventRef{
		Ref:           signature.ID,
		EventType:     eventType,
		SecurityLevel: signature.SecurityLevel,
		RecordedAt:    time.Now(),
	})
	if err != nil {
		log.Err(err).Str("ref", signature.ID).Msg("storing signed event ref failed")
		return models.SignatureRef{}, fmt.Errorf("storing signed event ref failed: %w", err)
	}

	return signature, nil
}

// LoginHistory returns the retained login records, oldest first.
func (a *auditService) LoginHistory(ctx context.Context, userID int64) ([]models.LoginRecord, error) {
	records, err := a.users.ListLoginHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing login history failed: %w", err)
	}

	return records, nil
}
