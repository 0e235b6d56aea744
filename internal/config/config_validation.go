// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package config

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" || cfg.App.TokenDuration <= 0 {
		return ErrInvalidAppConfigs
	}

	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Server.HTTPAddress == "" || cfg.Server.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.Provider.BaseURL == "" || cfg.Provider.Timeout <= 0 {
		return ErrInvalidProviderConfigs
	}

	if cfg.Workers.ReconcileInterval <= 0 || cfg.Workers.RetirementInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
