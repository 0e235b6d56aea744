// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package models

import "time"

// SessionInfo describes a secure session issued by the quantum handshake
// provider. The session itself lives on the provider side; user records hold
// only the ID as a reference.
type SessionInfo struct {
	// ID is the provider-side session identifier.
	ID string `json:"id"`

	// ExpiresAt is the instant after which the session must not be treated
	// as valid.
	ExpiresAt time.Time `json:"expires_at"`

	// SecurityLevel is the provider-reported security scalar of the
	// underlying key exchange, in the range [0, 1].
	SecurityLevel float64 `json:"security_level"`
}

// Expired reports whether the session is past its expiry at the given
// instant.
func (s SessionInfo) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SessionStatus is the provider's answer to a session validation call.
type SessionStatus struct {
	// Valid reports whether the provider still considers the session
	// usable. A session past ExpiresAt is never valid.
	Valid bool `json:"valid"`

	// ExpiresAt echoes the session expiry known to the provider.
	ExpiresAt time.Time `json:"expires_at"`
}

// ChannelRef references a provider-issued secure channel between two
// specific users. The provider deduplicates channels by the ordered user
// pair, so repeated establishment calls for the same pair return the same
// reference.
type ChannelRef struct {
	// ID is the provider-side channel identifier.
	ID string `json:"id"`

	// SecurityLevel is the provider-reported security scalar of the
	// channel's key material, in the range [0, 1].
	SecurityLevel float64 `json:"security_level"`
}

// IsZero reports whether the reference is empty.
func (c ChannelRef) IsZero() bool {
	return c.ID == ""
}

// SignatureRef references a provider-issued signature over an event
// payload. Raw signing material never leaves the provider.
type SignatureRef struct {
	// ID is the provider-side signature identifier.
	ID string `json:"id"`

	// SecurityLevel is the provider-reported security scalar of the
	// signature, in the range [0, 1].
	SecurityLevel float64 `json:"security_level"`
}
