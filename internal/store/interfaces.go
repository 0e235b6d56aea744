// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

import (
	"context"

	"qlink/models"
)

// UserRepository owns persistence of the user aggregate: identity,
// credentials, profile, privacy settings, the secure-session reference and
// the bounded audit trails.
type UserRepository interface {
	// CreateUser persists a new account and returns it with server-assigned
	// fields populated. Duplicate handle or email yields
	// ErrHandleAlreadyExists / ErrEmailAlreadyExists.
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// DeleteUser removes an account. Used as the compensating step when
	// registration fails after the row was created.
	DeleteUser(ctx context.Context, userID int64) error

	// FindUserByID loads a user by internal ID.
	FindUserByID(ctx context.Context, userID int64) (models.User, error)

	// FindUserByIdentifier loads a user by handle or email. Email matching
	// is case-insensitive.
	FindUserByIdentifier(ctx context.Context, identifier string) (models.User, error)

	// SearchUsers finds active users whose handle or display name matches
	// the query. Deactivated users are never returned.
	SearchUsers(ctx context.Context, query string, limit uint64) ([]models.User, error)

	// UpdateProfile persists mutable profile fields (display name, bio,
	// avatar, privacy tier) of the user.
	UpdateProfile(ctx context.Context, user models.User) (models.User, error)

	// UpdatePassword replaces the stored credential hash.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	// SetActive flips the account's active flag.
	SetActive(ctx context.Context, userID int64, active bool) error

	// SwapSessionRef atomically replaces the secure-session reference, but
	// only if the stored value still equals oldRef (compare-and-swap).
	// Returns ErrSessionRefConflict when the stored value differs.
	SwapSessionRef(ctx context.Context, userID int64, oldRef, newRef string) error

	// AppendLoginRecord appends one login record and trims the history to
	// models.LoginHistoryCap entries, oldest evicted first, in the same
	// transaction.
	AppendLoginRecord(ctx context.Context, userID int64, record models.LoginRecord) error

	// ListLoginHistory returns the retained login records, oldest first.
	ListLoginHistory(ctx context.Context, userID int64) ([]models.LoginRecord, error)

	// AppendSignedEvent stores a provider-issued signature reference for a
	// sensitive action.
	AppendSignedEvent(ctx context.Context, userID int64, ref models.SignedEventRef) error
}

// RelationshipRepository owns the relationship graph: friend requests,
// mirrored relationship entries, blocks and the channel-retirement queue.
//
// Every operation touching both sides of a pair executes as a single
// transaction; a one-sided write is a bug, not a valid outcome. All pair
// operations normalize lock acquisition by canonical (lower ID first)
// ordering so that concurrent mirror operations cannot deadlock.
type RelationshipRepository interface {
	// CreateRequest stores a pending friend request. A duplicate (from, to)
	// pair yields ErrRequestAlreadyExists.
	CreateRequest(ctx context.Context, request models.PendingRequest) error

	// FindRequest loads the pending request from fromID to toID.
	FindRequest(ctx context.Context, fromID, toID int64) (models.PendingRequest, error)

	// DeleteRequest removes the pending request from fromID to toID.
	DeleteRequest(ctx context.Context, fromID, toID int64) error

	// ListIncomingRequests returns requests addressed to the user, newest
	// first.
	ListIncomingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error)

	// ListOutgoingRequests returns requests sent by the user, newest first.
	ListOutgoingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error)

	// CreateMirroredRelationship writes both halves of an accepted
	// relationship sharing channelRef and removes any pending requests
	// between the pair, all in one transaction. An existing relationship
	// yields ErrAlreadyRelated.
	CreateMirroredRelationship(ctx context.Context, userA, userB int64, channelRef models.ChannelRef) error

	// DeleteMirroredRelationship removes both halves in one transaction and
	// returns the shared channel reference for retirement.
	DeleteMirroredRelationship(ctx context.Context, userA, userB int64) (models.ChannelRef, error)

	// FindRelationship loads the user's relationship entry for the
	// counterparty.
	FindRelationship(ctx context.Context, userID, counterpartyID int64) (models.RelationshipEntry, error)

	// ListRelationships returns the user's relationship entries.
	ListRelationships(ctx context.Context, userID int64) ([]models.RelationshipEntry, error)

	// CreateBlock stores a block entry and cascades in the same
	// transaction: both relationship halves and all pending requests
	// between the pair are removed. Blocking an already-blocked user is a
	// no-op. Returns the channel reference of the removed relationship,
	// zero when none existed.
	CreateBlock(ctx context.Context, block models.BlockEntry) (models.ChannelRef, error)

	// DeleteBlock removes the owner's block of the user.
	DeleteBlock(ctx context.Context, ownerID, userID int64) error

	// FindBlock loads the owner's block entry for the user.
	FindBlock(ctx context.Context, ownerID, userID int64) (models.BlockEntry, error)

	// ListBlocks returns the owner's block entries, newest first.
	ListBlocks(ctx context.Context, ownerID int64) ([]models.BlockEntry, error)

	// EnqueueRetirement records a channel whose provider-side retirement
	// has not been confirmed yet.
	EnqueueRetirement(ctx context.Context, ref models.ChannelRef) error

	// DequeueRetirements returns up to limit queued channel retirements,
	// oldest first.
	DequeueRetirements(ctx context.Context, limit uint64) ([]models.ChannelRef, error)

	// CompleteRetirement removes a confirmed retirement from the queue.
	CompleteRetirement(ctx context.Context, ref models.ChannelRef) error

	// FindOneSidedMirrors returns accepted entries whose mirrored
	// counterpart is missing. Used by the reconciliation worker.
	FindOneSidedMirrors(ctx context.Context, limit uint64) ([]models.RelationshipEntry, error)

	// DeleteOneSidedEntry removes a single relationship entry detected as a
	// one-sided mirror.
	DeleteOneSidedEntry(ctx context.Context, entry models.RelationshipEntry) error
}

// Storages aggregates all repositories of the identity store.
type Storages struct {
	Users         UserRepository
	Relationships RelationshipRepository
}
