// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qlink/internal/logger"
	"qlink/internal/quantum"
	"qlink/internal/store"
	"qlink/models"
)

// relationshipService is the concrete implementation of RelationshipService.
//
// Every relationship is backed by a provider channel shared by both entries;
// all two-user mutations go through single-transaction repository calls, so
// a crash can never leave one user showing a friend the other does not have.
// Channel retirement is best effort at call time: a provider failure parks
// the channel in the retirement queue for the background worker.
type relationshipService struct {
	users         store.UserRepository
	relationships store.RelationshipRepository
	provider      quantum.Provider
	logger        *logger.Logger
}

// NewRelationshipService constructs a RelationshipService wired to the given
// repositories and provider.
func NewRelationshipService(users store.UserRepository, relationships store.RelationshipRepository, provider quantum.Provider, logger *logger.Logger) RelationshipService {
	return &relationshipService{
		users:         users,
		relationships: relationships,
		provider:      provider,
		logger:        logger,
	}
}

// SendRequest records a pending friend request after running the pair
// guards. A pending request in the opposite direction is treated as mutual
// consent and collapsed into an accepted relationship immediately.
//
// Returns:
//   - ErrSelfReference when fromID == toID.
//   - ErrNotFound when the target is missing or deactivated.
//   - ErrBlocked when either side blocks the other.
//   - ErrAlreadyRelated when a relationship already exists.
//   - ErrDuplicateRequest when the same request is already pending.
func (s *relationshipService) SendRequest(ctx context.Context, fromID, toID int64, message string) error {
	if err := s.guardPair(ctx, fromID, toID); err != nil {
		return err
	}

	// a reverse pending request means both sides want the link
	if _, err := s.relationships.FindRequest(ctx, toID, fromID); err == nil {
		_, err = s.establish(ctx, fromID, toID)
		return err
	} else if !errors.Is(err, store.ErrRequestNotFound) {
		return fmt.Errorf("reverse request lookup failed: %w", err)
	}

	err := s.relationships.CreateRequest(ctx, models.PendingRequest{
		FromID:  fromID,
		ToID:    toID,
		Message: message,
		SentAt:  time.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrRequestAlreadyExists) {
			return ErrDuplicateRequest
		}
		return fmt.Errorf("creating friend request failed: %w", err)
	}

	return nil
}

// AcceptRequest converts the pending request from fromID into a mirrored
// relationship backed by a fresh secure channel. The request must exist;
// accepting removes it in the same transaction that writes the entries.
func (s *relationshipService) AcceptRequest(ctx context.Context, toID, fromID int64) (models.ChannelRef, error) {
	if _, err := s.relationships.FindRequest(ctx, fromID, toID); err != nil {
		if errors.Is(err, store.ErrRequestNotFound) {
			return models.ChannelRef{}, ErrNotFound
		}
		return models.ChannelRef{}, fmt.Errorf("request lookup failed: %w", err)
	}

	return s.establish(ctx, toID, fromID)
}

// DeclineRequest removes the pending request from fromID without any other
// side effects.
func (s *relationshipService) DeclineRequest(ctx context.Context, toID, fromID int64) error {
	if err := s.relationships.DeleteRequest(ctx, fromID, toID); err != nil {
		if errors.Is(err, store.ErrRequestNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting friend request failed: %w", err)
	}

	return nil
}

// AddFriend establishes a relationship directly, subject to the same guards
// as SendRequest. The provider deduplicates channels by the user pair, so
// concurrent AddFriend calls in either order converge to one relationship
// with one channel.
func (s *relationshipService) AddFriend(ctx context.Context, userA, userB int64) (models.ChannelRef, error) {
	if err := s.guardPair(ctx, userA, userB); err != nil {
		return models.ChannelRef{}, err
	}

	return s.establish(ctx, userA, userB)
}

// establish creates the secure channel and writes both relationship entries
// in one transaction. A channel established for a transaction that then
// fails is enqueued for retirement, except when the failure is a concurrent
// establishment of the same pair: the provider returned the pair's one
// shared channel, which the winner is using.
func (s *relationshipService) establish(ctx context.Context, userA, userB int64) (models.ChannelRef, error) {
	log := logger.FromContext(ctx)

	channel, err := s.provider.EstablishChannel(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, quantum.ErrEavesdropSuspected) {
			return models.ChannelRef{}, fmt.Errorf("channel establishment rejected: %w", err)
		}
		return models.ChannelRef{}, fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
	}

	if err = s.relationships.CreateMirroredRelationship(ctx, userA, userB, channel); err != nil {
		if errors.Is(err, store.ErrAlreadyRelated) {
			return channel, nil
		}
		log.Err(err).Int64("userA", userA).Int64("userB", userB).Msg("writing relationship failed, parking channel for retirement")
		if enqueueErr := s.relationships.EnqueueRetirement(ctx, channel); enqueueErr != nil {
			log.Err(enqueueErr).Str("channel", channel.ID).Msg("enqueueing retirement failed")
		}
		return models.ChannelRef{}, fmt.Errorf("writing relationship failed: %w", err)
	}

	return channel, nil
}

// RemoveFriend deletes both halves of the relationship in one transaction
// and retires the shared channel. Retirement failures never block the local
// removal; the channel is queued for the background worker instead.
func (s *relationshipService) RemoveFriend(ctx context.Context, userA, userB int64) error {
	if userA == userB {
		return ErrSelfReference
	}

	channel, err := s.relationships.DeleteMirroredRelationship(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, store.ErrRelationshipNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting relationship failed: %w", err)
	}

	s.retireChannel(ctx, channel)
	return nil
}

// Block records the block and cascades in one transaction: the relationship
// entries and pending requests between the pair disappear together with the
// insert. Repeating a block is a no-op. The removed relationship's channel
// is retired.
func (s *relationshipService) Block(ctx context.Context, ownerID, targetID int64, reason string) error {
	if ownerID == targetID {
		return ErrSelfReference
	}

	if _, err := s.users.FindUserByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return ErrNotFound
		}
		return fmt.Errorf("target lookup failed: %w", err)
	}

	channel, err := s.relationships.CreateBlock(ctx, models.BlockEntry{
		OwnerID:   ownerID,
		UserID:    targetID,
		BlockedAt: time.Now(),
		Reason:    reason,
	})
	if err != nil {
		return fmt.Errorf("creating block failed: %w", err)
	}

	if !channel.IsZero() {
		s.retireChannel(ctx, channel)
	}
	return nil
}

// Unblock removes the owner's block of the target.
func (s *relationshipService) Unblock(ctx context.Context, ownerID, targetID int64) error {
	if err := s.relationships.DeleteBlock(ctx, ownerID, targetID); err != nil {
		if errors.Is(err, store.ErrBlockNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting block failed: %w", err)
	}

	return nil
}

// Friends returns the user's relationship entries, oldest first.
func (s *relationshipService) Friends(ctx context.Context, userID int64) ([]models.RelationshipEntry, error) {
	return s.relationships.ListRelationships(ctx, userID)
}

// IncomingRequests returns requests addressed to the user, newest first.
func (s *relationshipService) IncomingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error) {
	return s.relationships.ListIncomingRequests(ctx, userID)
}

// OutgoingRequests returns requests sent by the user, newest first.
func (s *relationshipService) OutgoingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error) {
	return s.relationships.ListOutgoingRequests(ctx, userID)
}

// Blocks returns the user's block entries, newest first.
func (s *relationshipService) Blocks(ctx context.Context, userID int64) ([]models.BlockEntry, error) {
	return s.relationships.ListBlocks(ctx, userID)
}

// guardPair runs the shared preconditions of every relationship-creating
// operation: no self reference, live target, no block in either direction,
// no existing relationship.
func (s *relationshipService) guardPair(ctx context.Context, userA, userB int64) error {
	if userA == userB {
		return ErrSelfReference
	}

	target, err := s.users.FindUserByID(ctx, userB)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return ErrNotFound
		}
		return fmt.Errorf("target lookup failed: %w", err)
	}
	if !target.IsActive {
		return ErrNotFound
	}

	for _, pair := range [][2]int64{{userA, userB}, {userB, userA}} {
		if _, err = s.relationships.FindBlock(ctx, pair[0], pair[1]); err == nil {
			return ErrBlocked
		} else if !errors.Is(err, store.ErrBlockNotFound) {
			return fmt.Errorf("block lookup failed: %w", err)
		}
	}

	if _, err = s.relationships.FindRelationship(ctx, userA, userB); err == nil {
		return ErrAlreadyRelated
	} else if !errors.Is(err, store.ErrRelationshipNotFound) {
		return fmt.Errorf("relationship lookup failed: %w", err)
	}

	return nil
}

// retireChannel retires the channel at the provider, falling back to the
// retirement queue when the provider cannot be reached.
func (s *relationshipService) retireChannel(ctx context.Context, channel models.ChannelRef) {
	log := logger.FromContext(ctx)

	if err := s.provider.RetireChannel(ctx, channel); err != nil {
		log.Err(err).Str("channel", channel.ID).Msg("retiring channel failed, enqueueing for worker")
		if enqueueErr := s.relationships.EnqueueRetirement(ctx, channel); enqueueErr != nil {
			log.Err(enqueueErr).Str("channel", channel.ID).Msg("enqueueing retirement failed")
		}
	}
}
