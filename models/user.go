// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package models

import "time"

// PrivacyTier controls who may view a user's profile.
// The resolver treats any value outside the three known tiers as private
// (fail closed).
type PrivacyTier string

const (
	// PrivacyPublic makes the profile visible to every active user.
	PrivacyPublic PrivacyTier = "public"

	// PrivacyFriends restricts the profile to counterparties holding an
	// accepted relationship with the owner.
	PrivacyFriends PrivacyTier = "friends"

	// PrivacyPrivate hides the profile from everyone but the owner,
	// including accepted friends.
	PrivacyPrivate PrivacyTier = "private"
)

// LoginHistoryCap is the hard upper bound on retained login records per
// user. When the cap is reached the oldest record is evicted first.
const LoginHistoryCap = 50

// User represents an account entity used for authentication, discovery and
// relationship management. Sensitive fields must never be exposed outside
// trusted boundaries.
type User struct {
	// UserID is the internal unique identifier of the user.
	// It is not exposed via JSON and is used only at the persistence layer.
	UserID int64 `json:"-"`

	// Handle is the globally unique public identifier of the user.
	// Used during authentication and discovery.
	Handle string `json:"handle"`

	// Email is the globally unique contact address. Lookups are
	// case-insensitive; the persistence layer stores it lowercased.
	Email string `json:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This value MUST be a derived value, never plaintext.
	PasswordHash string `json:"-"`

	// DisplayName is the non-sensitive name shown on the profile.
	DisplayName string `json:"display_name"`

	// Bio is an optional free-form profile field.
	Bio string `json:"bio"`

	// AvatarURL points at the user's avatar image.
	AvatarURL string `json:"avatar_url"`

	// IsActive marks whether the account is live. Deactivated users are
	// excluded from search, discovery and new relationship creation.
	IsActive bool `json:"is_active"`

	// IsVerified marks whether the account passed identity verification.
	IsVerified bool `json:"is_verified"`

	// PrivacyTier selects the profile visibility policy.
	PrivacyTier PrivacyTier `json:"privacy_tier"`

	// SecureSessionRef references the quantum handshake session issued by
	// the provider for this user. Empty means no session is held. The
	// session itself is owned by the provider; only the reference is stored.
	SecureSessionRef string `json:"-"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last profile mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships holds the user's side of every mirrored relationship.
	// Populated only when the full aggregate is loaded.
	Relationships []RelationshipEntry `json:"-"`

	// LoginHistory holds at most LoginHistoryCap records, newest last.
	// Populated only when the full aggregate is loaded.
	LoginHistory []LoginRecord `json:"-"`

	// SignedEventRefs references provider-issued signatures for sensitive
	// actions performed by this account.
	SignedEventRefs []SignedEventRef `json:"-"`
}

// TableName returns the name of the database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}

// RelationshipStatus enumerates the states a relationship entry can be in.
type RelationshipStatus string

const (
	// RelationshipAccepted marks a live mutual friendship. An accepted
	// entry on one side must be mirrored by an accepted entry on the
	// counterparty's side carrying the identical channel reference.
	RelationshipAccepted RelationshipStatus = "accepted"

	// RelationshipPending marks a one-sided entry awaiting acceptance.
	RelationshipPending RelationshipStatus = "pending"

	// RelationshipBlocked marks an entry frozen by a block.
	RelationshipBlocked RelationshipStatus = "blocked"
)

// RelationshipEntry is one user's half of a mirrored relationship.
//
// The ChannelRef is shared between the two counterpart entries: neither user
// owns the channel, and it is retired only when both mirrored entries are
// removed. Only the relationship service may create or retire it.
type RelationshipEntry struct {
	// UserID is the owner of this entry.
	UserID int64 `json:"-"`

	// CounterpartyID identifies the other user in the relationship.
	CounterpartyID int64 `json:"counterparty_id"`

	// Status is the current relationship state.
	Status RelationshipStatus `json:"status"`

	// EstablishedAt records when the relationship reached its current state.
	EstablishedAt time.Time `json:"established_at"`

	// ChannelRef references the provider-issued secure channel shared by
	// both mirrored entries.
	ChannelRef string `json:"channel_ref"`
}

// TableName returns the name of the database table
// associated with the RelationshipEntry model.
func (r RelationshipEntry) TableName() string {
	return "relationships"
}

// PendingRequest is a friend request awaiting a decision. It is created by
// the sender and removed on accept (converting into a mirrored relationship
// pair) or decline. It is never mutated otherwise.
type PendingRequest struct {
	// FromID is the sender of the request.
	FromID int64 `json:"from_id"`

	// ToID is the recipient of the request.
	ToID int64 `json:"to_id"`

	// Message is an optional greeting attached by the sender.
	Message string `json:"message"`

	// SentAt records when the request was created.
	SentAt time.Time `json:"sent_at"`
}

// TableName returns the name of the database table
// associated with the PendingRequest model.
func (p PendingRequest) TableName() string {
	return "friend_requests"
}

// BlockEntry records that the owner has blocked another user. Creating a
// block atomically removes any relationship and pending requests between the
// two parties; creating it again is a no-op.
type BlockEntry struct {
	// OwnerID is the user who placed the block.
	OwnerID int64 `json:"-"`

	// UserID is the blocked user.
	UserID int64 `json:"user_id"`

	// BlockedAt records when the block was placed.
	BlockedAt time.Time `json:"blocked_at"`

	// Reason is an optional free-form note, visible only to the owner.
	Reason string `json:"reason"`
}

// TableName returns the name of the database table
// associated with the BlockEntry model.
func (b BlockEntry) TableName() string {
	return "blocks"
}

// LoginRecord is a single entry of the bounded login history.
type LoginRecord struct {
	// IP is the remote address the login came from.
	IP string `json:"ip"`

	// UserAgent is the client identification string.
	UserAgent string `json:"user_agent"`

	// Location is a coarse geographic hint derived from the address.
	Location string `json:"location"`

	// LoginAt records when the login happened.
	LoginAt time.Time `json:"login_at"`

	// SessionVerified marks whether the handshake provider confirmed the
	// secure session as valid during this login.
	SessionVerified bool `json:"session_verified"`
}

// TableName returns the name of the database table
// associated with the LoginRecord model.
func (l LoginRecord) TableName() string {
	return "login_history"
}

// SignedEventRef references a provider-issued signature over a sensitive
// account action. Only the reference is stored; raw signing material never
// touches the user record.
type SignedEventRef struct {
	// Ref is the provider-side signature identifier.
	Ref string `json:"ref"`

	// EventType names the signed action, e.g. "password_change".
	EventType string `json:"event_type"`

	// SecurityLevel is the provider-reported security scalar of the
	// signature, in the range [0, 1].
	SecurityLevel float64 `json:"security_level"`

	// RecordedAt records when the signature reference was stored.
	RecordedAt time.Time `json:"recorded_at"`
}

// TableName returns the name of the database table
// associated with the SignedEventRef model.
func (s SignedEventRef) TableName() string {
	return "signed_events"
}
