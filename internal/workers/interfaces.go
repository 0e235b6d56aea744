// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

// Package workers provides the background reconciliation loops of the
// service: the mirror reconciler that repairs one-sided relationship
// entries, and the retirement worker that drains the channel-retirement
// queue against the quantum handshake provider.
package workers

import "context"

// Worker is the interface implemented by every background worker.
//
// Run blocks, periodically performing the worker's job, until ctx is
// cancelled.
type Worker interface {
	Run(ctx context.Context)
}
