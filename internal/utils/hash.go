// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a bcrypt hash from a plaintext password using the
// given cost. A cost below bcrypt.MinCost falls back to
// bcrypt.DefaultCost so that a zero-valued config never produces weak
// hashes.
//
// Returns the encoded hash string ready for storage, or an error if the
// password exceeds bcrypt's length limit.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// bcrypt hash. Any bcrypt error (mismatch, malformed hash) yields false;
// callers must not distinguish the cases to avoid oracle behaviour.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
