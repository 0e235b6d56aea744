// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"context"

	"qlink/models"
)

// AuthService manages account registration, credential verification, the
// secure-session lifecycle and JWT token issuance.
type AuthService interface {
	// Register creates a new account. A provider session is established as
	// part of registration; if the provider refuses, the account is removed
	// again and registration fails. No account ever exists without a live
	// secure-session reference.
	Register(ctx context.Context, user models.User, password string) (models.User, error)

	// Login authenticates by handle or email. An absent, expired or invalid
	// secure session is rotated before the access token is issued; the token
	// carries the session reference. Every credential failure is reported as
	// [ErrInvalidCredentials] without detail.
	Login(ctx context.Context, identifier, password string, meta models.LoginRecord) (models.User, models.Token, models.SessionInfo, error)

	// UpdateProfile replaces the mutable profile fields (display name, bio,
	// avatar, privacy tier) of the account. Unknown privacy tiers are
	// rejected at write time.
	UpdateProfile(ctx context.Context, userID int64, profile models.User) (models.User, error)

	// ChangePassword verifies the old password and replaces the hash. The
	// change is signed by the provider before the new hash is committed.
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error

	// Deactivate signs the deactivation, destroys the provider session,
	// clears the session reference and marks the account inactive.
	Deactivate(ctx context.Context, userID int64) error

	// CreateToken issues a signed JWT bound to the user's current session.
	CreateToken(ctx context.Context, user models.User) (models.Token, error)

	// ParseToken validates a raw JWT string and extracts its claims.
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// RelationshipService manages the friendship graph: requests, mirrored
// relationship entries, blocks and the secure channels backing them.
type RelationshipService interface {
	// SendRequest records a pending friend request. When the counterparty
	// already has a pending request in the opposite direction, the two
	// requests are collapsed into an accepted relationship.
	SendRequest(ctx context.Context, fromID, toID int64, message string) error

	// AcceptRequest turns a pending request into a mirrored relationship
	// with a freshly established secure channel.
	AcceptRequest(ctx context.Context, toID, fromID int64) (models.ChannelRef, error)

	// DeclineRequest removes a pending request without side effects.
	DeclineRequest(ctx context.Context, toID, fromID int64) error

	// AddFriend is the channel-establishment step behind an accepted
	// request, subject to the same guards as SendRequest. It is not exposed
	// over the API on its own. Concurrent calls for the same pair, in
	// either order, converge to a single relationship and channel.
	AddFriend(ctx context.Context, userA, userB int64) (models.ChannelRef, error)

	// RemoveFriend deletes both halves of the relationship and retires the
	// shared channel. A failed retirement is queued for the background
	// worker; the local removal is never blocked by the provider.
	RemoveFriend(ctx context.Context, userA, userB int64) error

	// Block records a block, removing any relationship and pending requests
	// between the pair and retiring their channel. Blocking twice is a no-op.
	Block(ctx context.Context, ownerID, targetID int64, reason string) error

	// Unblock removes the owner's block of the target.
	Unblock(ctx context.Context, ownerID, targetID int64) error

	Friends(ctx context.Context, userID int64) ([]models.RelationshipEntry, error)
	IncomingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error)
	OutgoingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error)
	Blocks(ctx context.Context, userID int64) ([]models.BlockEntry, error)
}

// VisibilityService answers profile visibility questions. All methods are
// pure reads with no side effects.
type VisibilityService interface {
	// CanView reports whether the viewer may see the target's profile.
	// Unknown privacy tiers deny access.
	CanView(ctx context.Context, viewerID, targetID int64) (bool, error)

	// VisibleProfile returns the target's public profile view, or
	// [ErrNotFound] when the viewer may not see it. Denial and absence are
	// indistinguishable to the caller.
	VisibleProfile(ctx context.Context, viewerID, targetID int64) (models.ProfileView, error)

	// SearchUsers finds active users by handle or display name substring.
	SearchUsers(ctx context.Context, query string, limit uint64) ([]models.ProfileView, error)
}

// AuditService records login history and provider-signed sensitive events.
type AuditService interface {
	// RecordLogin appends a login record, evicting the oldest beyond the cap.
	RecordLogin(ctx context.Context, userID int64, record models.LoginRecord) error

	// RecordSensitiveEvent obtains a provider signature over the event and
	// stores the returned reference. A provider failure aborts the calling
	// action; no sensitive event goes unsigned.
	RecordSensitiveEvent(ctx context.Context, userID int64, eventType string, metadata []byte) (models.SignatureRef, error)

	// LoginHistory returns the retained login records, oldest first.
	LoginHistory(ctx context.Context, userID int64) ([]models.LoginRecord, error)
}
