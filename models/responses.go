// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package models

// ProfileView is the externally visible projection of a user profile,
// produced after the visibility policy has been applied. It never carries
// credentials, session references or relationship lists.
type ProfileView struct {
	UserID      int64       `json:"user_id"`
	Handle      string      `json:"handle"`
	DisplayName string      `json:"display_name"`
	Bio         string      `json:"bio"`
	AvatarURL   string      `json:"avatar_url"`
	IsVerified  bool        `json:"is_verified"`
	PrivacyTier PrivacyTier `json:"privacy_tier"`
}

// ProfileViewOf builds the public projection of a user.
func ProfileViewOf(u User) ProfileView {
	return ProfileView{
		UserID:      u.UserID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		IsVerified:  u.IsVerified,
		PrivacyTier: u.PrivacyTier,
	}
}
