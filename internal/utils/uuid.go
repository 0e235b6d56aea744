// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package utils

import "github.com/google/uuid"

// UUIDGenerator produces time-ordered identifiers for idempotency keys and
// trace IDs.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a UUIDv7 string, falling back to a random v4 if the
// monotonic source fails.
func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
