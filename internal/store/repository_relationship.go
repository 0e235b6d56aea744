// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"

	"qlink/internal/logger"
	"qlink/models"
)

// relationshipRepository is the PostgreSQL-backed implementation of
// [RelationshipRepository]. It owns the relationships, friend_requests,
// blocks and channel_retirements tables.
//
// Every pair mutation runs in a single transaction so a crash or concurrent
// writer can never leave one user showing a friend the other does not have.
// Writes inside a pair transaction always touch the row of the lower user ID
// first; the fixed ordering keeps concurrent mirror operations deadlock-free.
type relationshipRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewRelationshipRepository constructs a [RelationshipRepository] backed by
// the provided database connection and logger.
func NewRelationshipRepository(db *DB, logger *logger.Logger) RelationshipRepository {
	logger.Debug().Msg("creating relationship repository")
	return &relationshipRepository{
		db:     db,
		logger: logger,
	}
}

// orderPair returns the two IDs in canonical (ascending) order.
func orderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// CreateRequest stores a pending friend request.
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrRequestAlreadyExists].
//   - Any other driver-level error → wrapped as "unexpected DB error".
func (r *relationshipRepository) CreateRequest(ctx context.Context, request models.PendingRequest) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, createRequest,
		request.FromID, request.ToID, request.Message, request.SentAt); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CreateRequest").Msg("error: inserting friend request failed")

		if postgresError(err) == pgerrcode.UniqueViolation {
			return ErrRequestAlreadyExists
		}
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// FindRequest loads the pending request from fromID to toID.
// Returns [ErrRequestNotFound] when no row matches.
func (r *relationshipRepository) FindRequest(ctx context.Context, fromID, toID int64) (models.PendingRequest, error) {
	var request models.PendingRequest

	row := r.db.QueryRowContext(ctx, findRequest, fromID, toID)
	if err := row.Scan(&request.FromID, &request.ToID, &request.Message, &request.SentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PendingRequest{}, ErrRequestNotFound
		}
		return models.PendingRequest{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return request, nil
}

// DeleteRequest removes the pending request from fromID to toID.
// Returns [ErrRequestNotFound] when nothing was deleted.
func (r *relationshipRepository) DeleteRequest(ctx context.Context, fromID, toID int64) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteRequest, fromID, toID)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.DeleteRequest").Msg("error: deleting friend request failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrRequestNotFound
	}

	return nil
}

// ListIncomingRequests returns requests addressed to the user, newest first.
func (r *relationshipRepository) ListIncomingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error) {
	return r.listRequests(ctx, listIncomingRequests, userID)
}

// ListOutgoingRequests returns requests sent by the user, newest first.
func (r *relationshipRepository) ListOutgoingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error) {
	return r.listRequests(ctx, listOutgoingRequests, userID)
}

func (r *relationshipRepository) listRequests(ctx context.Context, query string, userID int64) ([]models.PendingRequest, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.listRequests").Msg("error: querying friend requests failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var requests []models.PendingRequest
	for rows.Next() {
		var request models.PendingRequest
		if err = rows.Scan(&request.FromID, &request.ToID, &request.Message, &request.SentAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		requests = append(requests, request)
	}

	return requests, rows.Err()
}

// CreateMirroredRelationship writes both halves of an accepted relationship
// and removes any pending requests between the pair in one transaction.
//
// The two INSERTs share one established_at timestamp and one channel
// reference, satisfying the mirror invariant at the moment of creation.
//
// Error handling:
//   - PostgreSQL unique_violation (23505) on either half → [ErrAlreadyRelated].
func (r *relationshipRepository) CreateMirroredRelationship(ctx context.Context, userA, userB int64, channelRef models.ChannelRef) error {
	log := logger.FromContext(ctx)

	low, high := orderPair(userA, userB)
	now := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CreateMirroredRelationship").Msg("error: beginning transaction failed")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, pair := range [][2]int64{{low, high}, {high, low}} {
		if _, err = tx.ExecContext(ctx, createRelationshipEntry,
			pair[0], pair[1], models.RelationshipAccepted, now, channelRef.ID); err != nil {
			if postgresError(err) == pgerrcode.UniqueViolation {
				return ErrAlreadyRelated
			}
			log.Err(err).Str("func", "*relationshipRepository.CreateMirroredRelationship").Msg("error: inserting relationship entry failed")
			return fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, deleteRequestsBetween, low, high); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CreateMirroredRelationship").Msg("error: removing pending requests failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommittingTransaction, err)
	}

	return nil
}

// DeleteMirroredRelationship removes both halves of the relationship in one
// transaction and returns the shared channel reference so the caller can
// retire it.
//
// Returns [ErrRelationshipNotFound] when no entry exists for the pair.
func (r *relationshipRepository) DeleteMirroredRelationship(ctx context.Context, userA, userB int64) (models.ChannelRef, error) {
	log := logger.FromContext(ctx)

	low, high := orderPair(userA, userB)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.DeleteMirroredRelationship").Msg("error: beginning transaction failed")
		return models.ChannelRef{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var channelID string
	if err = tx.QueryRowContext(ctx, selectPairChannel, low, high).Scan(&channelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ChannelRef{}, ErrRelationshipNotFound
		}
		log.Err(err).Str("func", "*relationshipRepository.DeleteMirroredRelationship").Msg("error: reading channel ref failed")
		return models.ChannelRef{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if _, err = tx.ExecContext(ctx, deleteRelationshipPair, low, high); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.DeleteMirroredRelationship").Msg("error: deleting relationship pair failed")
		return models.ChannelRef{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.ChannelRef{}, fmt.Errorf("%w: %w", ErrCommittingTransaction, err)
	}

	return models.ChannelRef{ID: channelID}, nil
}

// FindRelationship loads the user's relationship entry for the counterparty.
// Returns [ErrRelationshipNotFound] when no row matches.
func (r *relationshipRepository) FindRelationship(ctx context.Context, userID, counterpartyID int64) (models.RelationshipEntry, error) {
	var entry models.RelationshipEntry

	row := r.db.QueryRowContext(ctx, findRelationship, userID, counterpartyID)
	if err := row.Scan(&entry.UserID, &entry.CounterpartyID, &entry.Status, &entry.EstablishedAt, &entry.ChannelRef); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RelationshipEntry{}, ErrRelationshipNotFound
		}
		return models.RelationshipEntry{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return entry, nil
}

// ListRelationships returns the user's relationship entries, oldest first.
func (r *relationshipRepository) ListRelationships(ctx context.Context, userID int64) ([]models.RelationshipEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listRelationships, userID)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.ListRelationships").Msg("error: querying relationships failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entries []models.RelationshipEntry
	for rows.Next() {
		var entry models.RelationshipEntry
		if err = rows.Scan(&entry.UserID, &entry.CounterpartyID, &entry.Status, &entry.EstablishedAt, &entry.ChannelRef); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// CreateBlock stores a block entry with its cascade in one transaction: the
// relationship pair and all pending requests between the two users are
// removed together with the insert. The insert uses ON CONFLICT DO NOTHING,
// making a repeated block a no-op.
//
// Returns the channel reference of the removed relationship so the caller
// can retire it; zero when no relationship existed.
func (r *relationshipRepository) CreateBlock(ctx context.Context, block models.BlockEntry) (models.ChannelRef, error) {
	log := logger.FromContext(ctx)

	low, high := orderPair(block.OwnerID, block.UserID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CreateBlock").Msg("error: beginning transaction failed")
		return models.ChannelRef{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var channelID string
	if err = tx.QueryRowContext(ctx, selectPairChannel, low, high).Scan(&channelID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Err(err).Str("func", "*relationshipRepository.CreateBlock").Msg("error: reading channel ref failed")
		return models.ChannelRef{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if _, err = tx.ExecContext(ctx, deleteRelationshipPair, low, high); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CreateBlock").Msg("error: deleting relationship pair failed")
		return models.ChannelRef{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if _, err = tx.ExecContext(ctx, deleteRequestsBetween, low, high); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CreateBlock").Msg("error: removing pending requests failed")
		return models.ChannelRef{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if _, err = tx.ExecContext(ctx, createBlock,
		block.OwnerID, block.UserID, block.BlockedAt, block.Reason); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CreateBlock").Msg("error: inserting block entry failed")
		return models.ChannelRef{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.ChannelRef{}, fmt.Errorf("%w: %w", ErrCommittingTransaction, err)
	}

	return models.ChannelRef{ID: channelID}, nil
}

// DeleteBlock removes the owner's block of the user.
// Returns [ErrBlockNotFound] when nothing was deleted.
func (r *relationshipRepository) DeleteBlock(ctx context.Context, ownerID, userID int64) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteBlock, ownerID, userID)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.DeleteBlock").Msg("error: deleting block failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrBlockNotFound
	}

	return nil
}

// FindBlock loads the owner's block entry for the user.
// Returns [ErrBlockNotFound] when no row matches.
func (r *relationshipRepository) FindBlock(ctx context.Context, ownerID, userID int64) (models.BlockEntry, error) {
	var block models.BlockEntry

	row := r.db.QueryRowContext(ctx, findBlock, ownerID, userID)
	if err := row.Scan(&block.OwnerID, &block.UserID, &block.BlockedAt, &block.Reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BlockEntry{}, ErrBlockNotFound
		}
		return models.BlockEntry{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return block, nil
}

// ListBlocks returns the owner's block entries, newest first.
func (r *relationshipRepository) ListBlocks(ctx context.Context, ownerID int64) ([]models.BlockEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listBlocks, ownerID)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.ListBlocks").Msg("error: querying blocks failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var blocks []models.BlockEntry
	for rows.Next() {
		var block models.BlockEntry
		if err = rows.Scan(&block.OwnerID, &block.UserID, &block.BlockedAt, &block.Reason); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		blocks = append(blocks, block)
	}

	return blocks, rows.Err()
}

// EnqueueRetirement records a channel pending provider-side retirement.
// Re-enqueueing the same channel is a no-op.
func (r *relationshipRepository) EnqueueRetirement(ctx context.Context, ref models.ChannelRef) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, enqueueRetirement, ref.ID); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.EnqueueRetirement").Msg("error: enqueueing retirement failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// DequeueRetirements returns up to limit queued retirements, oldest first.
func (r *relationshipRepository) DequeueRetirements(ctx context.Context, limit uint64) ([]models.ChannelRef, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, dequeueRetirements, limit)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.DequeueRetirements").Msg("error: querying retirements failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var refs []models.ChannelRef
	for rows.Next() {
		var ref models.ChannelRef
		if err = rows.Scan(&ref.ID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

// CompleteRetirement removes a confirmed retirement from the queue.
func (r *relationshipRepository) CompleteRetirement(ctx context.Context, ref models.ChannelRef) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, completeRetirement, ref.ID); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.CompleteRetirement").Msg("error: completing retirement failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// FindOneSidedMirrors returns accepted entries whose mirrored counterpart is
// missing.
func (r *relationshipRepository) FindOneSidedMirrors(ctx context.Context, limit uint64) ([]models.RelationshipEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, findOneSidedMirrors, limit)
	if err != nil {
		log.Err(err).Str("func", "*relationshipRepository.FindOneSidedMirrors").Msg("error: querying one-sided mirrors failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entries []models.RelationshipEntry
	for rows.Next() {
		var entry models.RelationshipEntry
		if err = rows.Scan(&entry.UserID, &entry.CounterpartyID, &entry.Status, &entry.EstablishedAt, &entry.ChannelRef); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteOneSidedEntry removes a single relationship entry detected as a
// one-sided mirror.
func (r *relationshipRepository) DeleteOneSidedEntry(ctx context.Context, entry models.RelationshipEntry) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, deleteOneSidedEntry, entry.UserID, entry.CounterpartyID); err != nil {
		log.Err(err).Str("func", "*relationshipRepository.DeleteOneSidedEntry").Msg("error: deleting one-sided entry failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}
