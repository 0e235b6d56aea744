// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}

func TestHashPassword_ZeroCostFallsBack(t *testing.T) {
	hash, err := HashPassword("pw", 0)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "pw"))
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	assert.False(t, CheckPassword("not-a-bcrypt-hash", "pw"))
}
