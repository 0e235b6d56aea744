// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package workers

import (
	"context"
	"time"

	"qlink/internal/config"
	"qlink/internal/logger"
	"qlink/internal/store"
	"qlink/models"
)

// defaultReconcileInterval applies when no interval is configured.
const defaultReconcileInterval = time.Minute

// defaultScanBatch bounds how many one-sided entries one pass repairs.
const defaultScanBatch = 100

// MirrorReconciler periodically scans for relationship entries whose
// mirrored counterpart is missing and repairs them deterministically: the
// surviving half is deleted and its channel is parked in the retirement
// queue. Under the single-transaction pair writes such entries should never
// appear; every repair is therefore logged as a consistency event.
type MirrorReconciler struct {
	relationships store.RelationshipRepository
	interval      time.Duration
	batch         uint64
	logger        *logger.Logger
}

// NewMirrorReconciler constructs the reconciler from the worker config.
func NewMirrorReconciler(relationships store.RelationshipRepository, cfg config.Workers, logger *logger.Logger) *MirrorReconciler {
	interval := cfg.ReconcileInterval
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	batch := cfg.RetirementBatch
	if batch == 0 {
		batch = defaultScanBatch
	}

	logger.Debug().Dur("interval", interval).Msg("creating mirror reconciler")
	return &MirrorReconciler{
		relationships: relationships,
		interval:      interval,
		batch:         batch,
		logger:        logger,
	}
}

// Run scans on a fixed ticker until ctx is cancelled.
func (w *MirrorReconciler) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.reconcile(ctx)
		}
	}
}

// reconcile performs one repair pass.
func (w *MirrorReconciler) reconcile(ctx context.Context) {
	entries, err := w.relationships.FindOneSidedMirrors(ctx, w.batch)
	if err != nil {
		w.logger.Err(err).Str("func", "*MirrorReconciler.reconcile").Msg("error: scanning for one-sided mirrors failed")
		return
	}

	for _, entry := range entries {
		w.logger.Warn().
			Int64("userID", entry.UserID).
			Int64("counterpartyID", entry.CounterpartyID).
			Str("channel", entry.ChannelRef).
			Msg("consistency: repairing one-sided relationship entry")

		if err = w.relationships.DeleteOneSidedEntry(ctx, entry); err != nil {
			w.logger.Err(err).Str("func", "*MirrorReconciler.reconcile").Msg("error: deleting one-sided entry failed")
			continue
		}

		if entry.ChannelRef != "" {
			if err = w.relationships.EnqueueRetirement(ctx, models.ChannelRef{ID: entry.ChannelRef}); err != nil {
				w.logger.Err(err).Str("channel", entry.ChannelRef).Msg("error: enqueueing orphaned channel failed")
			}
		}
	}
}
