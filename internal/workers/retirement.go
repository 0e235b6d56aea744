// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package workers

import (
	"context"
	"time"

	"qlink/internal/config"
	"qlink/internal/logger"
	"qlink/internal/quantum"
	"qlink/internal/store"
)

// defaultRetirementInterval applies when no interval is configured.
const defaultRetirementInterval = 30 * time.Second

// RetirementWorker drains the channel-retirement queue. Channels land in the
// queue when a foreground retirement could not reach the provider; the
// worker replays them until the provider confirms. Retiring an already
// retired channel is not an error, so replays are safe.
type RetirementWorker struct {
	relationships store.RelationshipRepository
	provider      quantum.Provider
	interval      time.Duration
	batch         uint64
	logger        *logger.Logger
}

// NewRetirementWorker constructs the drainer from the worker config.
func NewRetirementWorker(relationships store.RelationshipRepository, provider quantum.Provider, cfg config.Workers, logger *logger.Logger) *RetirementWorker {
	interval := cfg.RetirementInterval
	if interval <= 0 {
		interval = defaultRetirementInterval
	}
	batch := cfg.RetirementBatch
	if batch == 0 {
		batch = defaultScanBatch
	}

	logger.Debug().Dur("interval", interval).Msg("creating retirement worker")
	return &RetirementWorker{
		relationships: relationships,
		provider:      provider,
		interval:      interval,
		batch:         batch,
		logger:        logger,
	}
}

// Run drains on a fixed ticker until ctx is cancelled.
func (w *RetirementWorker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.drain(ctx)
		}
	}
}

// drain performs one queue pass. Channels the provider still refuses stay
// queued for the next pass.
func (w *RetirementWorker) drain(ctx context.Context) {
	refs, err := w.relationships.DequeueRetirements(ctx, w.batch)
	if err != nil {
		w.logger.Err(err).Str("func", "*RetirementWorker.drain").Msg("error: reading retirement queue failed")
		return
	}

	for _, ref := range refs {
		if err = w.provider.RetireChannel(ctx, ref); err != nil {
			w.logger.Err(err).Str("channel", ref.ID).Msg("error: retiring queued channel failed, keeping it queued")
			continue
		}

		if err = w.relationships.CompleteRetirement(ctx, ref); err != nil {
			w.logger.Err(err).Str("channel", ref.ID).Msg("error: completing retirement failed")
		}
	}
}
