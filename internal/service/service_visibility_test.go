// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlink/internal/logger"
	"qlink/internal/store"
	"qlink/models"
)

func newVisibilityFixture(t *testing.T) (VisibilityService, *store.Memory) {
	t.Helper()
	storages, mem := store.NewMemoryStorages()
	svc := NewVisibilityService(storages.Users, storages.Relationships, logger.Nop())
	return svc, mem
}

func seedUserWithTier(t *testing.T, mem *store.Memory, handle string, tier models.PrivacyTier) models.User {
	t.Helper()
	user, err := mem.CreateUser(context.Background(), models.User{
		Handle:      handle,
		Email:       handle + "@example.com",
		DisplayName: handle,
		IsActive:    true,
		PrivacyTier: tier,
	})
	require.NoError(t, err)
	return user
}

func befriend(t *testing.T, mem *store.Memory, a, b int64) {
	t.Helper()
	require.NoError(t, mem.CreateMirroredRelationship(context.Background(), a, b, models.ChannelRef{ID: "chan-test"}))
}

func TestCanView_Table(t *testing.T) {
	svc, mem := newVisibilityFixture(t)
	ctx := context.Background()

	publicUser := seedUserWithTier(t, mem, "pub", models.PrivacyPublic)
	friendsUser := seedUserWithTier(t, mem, "fri", models.PrivacyFriends)
	privateUser := seedUserWithTier(t, mem, "prv", models.PrivacyPrivate)
	oddTierUser := seedUserWithTier(t, mem, "odd", models.PrivacyTier("vip"))
	inactiveUser := seedUserWithTier(t, mem, "off", models.PrivacyPublic)
	require.NoError(t, mem.SetActive(ctx, inactiveUser.UserID, false))
	viewer := seedUserWithTier(t, mem, "viewer", models.PrivacyPublic)

	befriend(t, mem, viewer.UserID, friendsUser.UserID)
	befriend(t, mem, viewer.UserID, privateUser.UserID)

	tests := []struct {
		name     string
		viewerID int64
		targetID int64
		want     bool
	}{
		{"self always visible", privateUser.UserID, privateUser.UserID, true},
		{"missing target", viewer.UserID, 9999, false},
		{"inactive target", viewer.UserID, inactiveUser.UserID, false},
		{"public tier", viewer.UserID, publicUser.UserID, true},
		{"friends tier with relationship", viewer.UserID, friendsUser.UserID, true},
		{"friends tier without relationship", publicUser.UserID, friendsUser.UserID, false},
		{"private tier even for friends", viewer.UserID, privateUser.UserID, false},
		{"unknown tier denies", viewer.UserID, oddTierUser.UserID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanView(ctx, tt.viewerID, tt.targetID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanView_IsPure(t *testing.T) {
	svc, mem := newVisibilityFixture(t)
	ctx := context.Background()

	target := seedUserWithTier(t, mem, "target", models.PrivacyFriends)
	viewer := seedUserWithTier(t, mem, "viewer", models.PrivacyPublic)

	before, err := mem.FindUserByID(ctx, target.UserID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.CanView(ctx, viewer.UserID, target.UserID)
		require.NoError(t, err)
	}

	after, err := mem.FindUserByID(ctx, target.UserID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "visibility checks must not mutate state")
}

func TestVisibleProfile_DenialLooksLikeAbsence(t *testing.T) {
	svc, mem := newVisibilityFixture(t)
	ctx := context.Background()

	privateUser := seedUserWithTier(t, mem, "prv", models.PrivacyPrivate)
	viewer := seedUserWithTier(t, mem, "viewer", models.PrivacyPublic)

	_, deniedErr := svc.VisibleProfile(ctx, viewer.UserID, privateUser.UserID)
	_, missingErr := svc.VisibleProfile(ctx, viewer.UserID, 9999)

	assert.ErrorIs(t, deniedErr, ErrNotFound)
	assert.ErrorIs(t, missingErr, ErrNotFound)
	assert.Equal(t, deniedErr, missingErr, "denial must be indistinguishable from absence")
}

func TestVisibleProfile_StripsPrivateFields(t *testing.T) {
	svc, mem := newVisibilityFixture(t)
	ctx := context.Background()

	target := seedUserWithTier(t, mem, "pub", models.PrivacyPublic)
	require.NoError(t, mem.SwapSessionRef(ctx, target.UserID, "", "sess-secret"))
	viewer := seedUserWithTier(t, mem, "viewer", models.PrivacyPublic)

	view, err := svc.VisibleProfile(ctx, viewer.UserID, target.UserID)
	require.NoError(t, err)

	assert.Equal(t, target.Handle, view.Handle)
	assert.Equal(t, target.UserID, view.UserID)
}

func TestSearchUsers_ExcludesInactive(t *testing.T) {
	svc, mem := newVisibilityFixture(t)
	ctx := context.Background()

	seedUserWithTier(t, mem, "alice", models.PrivacyPublic)
	gone := seedUserWithTier(t, mem, "alicia", models.PrivacyPublic)
	require.NoError(t, mem.SetActive(ctx, gone.UserID, false))

	views, err := svc.SearchUsers(ctx, "ali", 20)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "alice", views[0].Handle)
}

func TestSearchUsers_EmptyQuery(t *testing.T) {
	svc, _ := newVisibilityFixture(t)

	_, err := svc.SearchUsers(context.Background(), "", 20)
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}
