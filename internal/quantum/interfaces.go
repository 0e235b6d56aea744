// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

// Package quantum implements the client for the external quantum handshake
// provider: the collaborator that creates, validates, signs and retires
// secure sessions and channels on top of its key-distribution hardware.
//
// The provider is the only component allowed to mint session, channel and
// signature references; qlink stores references and never any key material.
// All calls are request/response with a caller-supplied timeout and are
// idempotent or safely retryable: state-creating calls carry an
// Idempotency-Key that is reused across retries of the same logical
// operation, and the provider deduplicates channels by the ordered user pair.
package quantum

import (
	"context"

	"qlink/models"
)

// Provider is the interface to the quantum handshake provider.
//
// Implementations must treat every method as a bounded operation: the
// supplied context carries the deadline and cancellation of the calling
// request, and no method may block past it.
type Provider interface {
	// CreateSession establishes a new secure session for the user and
	// returns its reference, expiry and security level. Safe to retry; the
	// provider deduplicates by idempotency key.
	CreateSession(ctx context.Context, userID int64) (models.SessionInfo, error)

	// ValidateSession reports whether the referenced session is still
	// valid. Read-only and freely retryable.
	ValidateSession(ctx context.Context, sessionID string) (models.SessionStatus, error)

	// EstablishChannel creates (or returns the existing) secure channel
	// between the two users. The provider deduplicates by the ordered
	// (userA, userB) pair, so concurrent or repeated establishment for the
	// same pair yields a single channel.
	EstablishChannel(ctx context.Context, userA, userB int64) (models.ChannelRef, error)

	// RetireChannel destroys the referenced channel. Retiring an already
	// retired channel is not an error.
	RetireChannel(ctx context.Context, ref models.ChannelRef) error

	// SignEvent obtains a signature reference over the payload on behalf of
	// the user. The raw signature stays with the provider.
	SignEvent(ctx context.Context, userID int64, payload []byte) (models.SignatureRef, error)

	// DestroySession retires the referenced session. Destroying an already
	// destroyed session is not an error.
	DestroySession(ctx context.Context, sessionID string) error
}
