// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDCtxKey, int64(42))
	id, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	_, ok := GetUserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestGetUserIDFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDCtxKey, "42")
	_, ok := GetUserIDFromContext(ctx)
	assert.False(t, ok)
}

func TestGetSessionRefFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), SessionRefCtxKey, "qs-1")
	ref, ok := GetSessionRefFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "qs-1", ref)

	_, ok = GetSessionRefFromContext(context.Background())
	assert.False(t, ok)
}
