// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package quantum

import "errors"

// Sentinel errors returned by Provider implementations. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrProviderUnavailable is returned when the provider cannot be
	// reached, times out, or answers with a server-side failure after the
	// bounded retry budget is exhausted. Callers must fail closed: an
	// operation that requires the provider never proceeds without it.
	ErrProviderUnavailable = errors.New("handshake provider unavailable")

	// ErrSessionNotFound is returned when the provider does not know the
	// referenced session. A login seeing this error treats the session as
	// expired and rotates it.
	ErrSessionNotFound = errors.New("secure session not found")

	// ErrChannelNotFound is returned when the provider does not know the
	// referenced channel. Retirement treats this as already-retired.
	ErrChannelNotFound = errors.New("secure channel not found")

	// ErrEavesdropSuspected is returned when the provider aborts a
	// handshake because its error-rate analysis indicates interception.
	// The operation must not be retried automatically.
	ErrEavesdropSuspected = errors.New("eavesdropping suspected during handshake")
)
