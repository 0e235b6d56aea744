// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	// ErrInvalidCredentials covers every credential failure: unknown
	// identifier and wrong password are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrDuplicateIdentity  = errors.New("handle or email already taken")

	// ErrSessionProviderUnavailable means the quantum handshake provider
	// could not complete a required call; the calling action fails closed.
	ErrSessionProviderUnavailable = errors.New("secure session provider unavailable")

	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")

	ErrSelfReference    = errors.New("operation cannot target its own initiator")
	ErrNotFound         = errors.New("not found")
	ErrBlocked          = errors.New("interaction is blocked")
	ErrAlreadyRelated   = errors.New("users are already related")
	ErrDuplicateRequest = errors.New("request is already pending")
)
