// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"context"
	"errors"
	"fmt"

	"qlink/internal/logger"
	"qlink/internal/store"
	"qlink/models"
)

// visibilityService is the concrete implementation of VisibilityService.
// It never mutates state; both repositories are used read-only.
type visibilityService struct {
	users         store.UserRepository
	relationships store.RelationshipRepository
	logger        *logger.Logger
}

// NewVisibilityService constructs a VisibilityService over the given
// repositories.
func NewVisibilityService(users store.UserRepository, relationships store.RelationshipRepository, logger *logger.Logger) VisibilityService {
	return &visibilityService{
		users:         users,
		relationships: relationships,
		logger:        logger,
	}
}

// CanView reports whether viewerID may see targetID's profile.
//
// Rules, in order: users always see themselves; missing or deactivated
// targets are invisible; the public tier admits everyone; the private tier
// admits nobody else; the friends tier requires an accepted relationship.
// A privacy tier the resolver does not recognize denies access.
func (v *visibilityService) CanView(ctx context.Context, viewerID, targetID int64) (bool, error) {
	if viewerID == targetID {
		return true, nil
	}

	target, err := v.users.FindUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return false, nil
		}
		return false, fmt.Errorf("target lookup failed: %w", err)
	}
	if !target.IsActive {
		return false, nil
	}

	switch target.PrivacyTier {
	case models.PrivacyPublic:
		return true, nil
	case models.PrivacyPrivate:
		return false, nil
	case models.PrivacyFriends:
		entry, err := v.relationships.FindRelationship(ctx, viewerID, targetID)
		if err != nil {
			if errors.Is(err, store.ErrRelationshipNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("relationship lookup failed: %w", err)
		}
		return entry.Status == models.RelationshipAccepted, nil
	default:
		// an unrecognized tier hides the profile rather than exposing it
		logger.FromContext(ctx).Warn().
			Int64("targetID", targetID).
			Str("tier", string(target.PrivacyTier)).
			Msg("unknown privacy tier, denying access")
		return false, nil
	}
}

// VisibleProfile returns the target's profile view when the viewer is
// allowed to see it. Denied and missing profiles both come back as
// [ErrNotFound], so callers cannot probe for existence.
func (v *visibilityService) VisibleProfile(ctx context.Context, viewerID, targetID int64) (models.ProfileView, error) {
	allowed, err := v.CanView(ctx, viewerID, targetID)
	if err != nil {
		return models.ProfileView{}, err
	}
	if !allowed {
		return models.ProfileView{}, ErrNotFound
	}

	target, err := v.users.FindUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return models.ProfileView{}, ErrNotFound
		}
		return models.ProfileView{}, fmt.Errorf("target lookup failed: %w", err)
	}

	return models.ProfileViewOf(target), nil
}

// SearchUsers finds active users by handle or display name substring and
// returns their public views. Deactivated accounts never appear.
func (v *visibilityService) SearchUsers(ctx context.Context, query string, limit uint64) ([]models.ProfileView, error) {
	if query == "" {
		return nil, ErrInvalidDataProvided
	}

	found, err := v.users.SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("user search failed: %w", err)
	}

	views := make([]models.ProfileView, 0, len(found))
	for _, u := range found {
		views = append(views, models.ProfileViewOf(u))
	}

	return views, nil
}
