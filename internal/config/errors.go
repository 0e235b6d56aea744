// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAppConfigs indicates invalid application-level settings
	// (for example, missing token sign key or non-positive token duration).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidServerConfigs indicates invalid HTTP server settings
	// (for example, missing listen address or zero request timeout).
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidProviderConfigs indicates invalid quantum provider settings
	// (for example, missing base URL or zero call timeout).
	ErrInvalidProviderConfigs = errors.New("invalid provider configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, zero reconciliation interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
)
