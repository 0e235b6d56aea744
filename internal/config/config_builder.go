// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// configBuilder accumulates partial configs in priority order. mergo.Merge
// never overwrites a non-zero destination field, so a source appended
// earlier always wins over a later one.
type configBuilder struct {
	sources []*StructuredConfig
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{}
}

func (b *configBuilder) withEnv() *configBuilder {
	fromEnv := new(StructuredConfig)
	if err := parseEnv(fromEnv); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	return b.add(fromEnv)
}

func (b *configBuilder) withFlags() *configBuilder {
	return b.add(ParseFlags())
}

// withJSON loads the optional JSON file. Its path comes out of the sources
// already collected (the CONFIG env variable or the -c/-config flag), so
// this step must run after withEnv and withFlags.
func (b *configBuilder) withJSON() *configBuilder {
	path := b.jsonPath()
	if path == "" {
		return b
	}

	fromJSON, err := parseJSON(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	return b.add(fromJSON)
}

func (b *configBuilder) add(cfg *StructuredConfig) *configBuilder {
	b.sources = append(b.sources, cfg)
	return b
}

func (b *configBuilder) jsonPath() string {
	for _, src := range b.sources {
		if src.JSONFilePath != "" {
			return src.JSONFilePath
		}
	}

	return ""
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	merged := new(StructuredConfig)
	for _, src := range b.sources {
		if err := mergo.Merge(merged, src); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return merged, merged.validate()
}
