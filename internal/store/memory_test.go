// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"qlink/models"
)

func TestMemoryCreateUser_DuplicateHandleAndEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.CreateUser(ctx, models.User{Handle: "alice", Email: "Alice@Example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = m.CreateUser(ctx, models.User{Handle: "alice", Email: "other@example.com"})
	if !errors.Is(err, ErrHandleAlreadyExists) {
		t.Fatalf("expected ErrHandleAlreadyExists, got %v", err)
	}

	_, err = m.CreateUser(ctx, models.User{Handle: "alice2", Email: "ALICE@example.com"})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected case-insensitive ErrEmailAlreadyExists, got %v", err)
	}
}

func TestMemorySwapSessionRef_CompareAndSwap(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	user, err := m.CreateUser(ctx, models.User{Handle: "alice", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err = m.SwapSessionRef(ctx, user.UserID, "", "ref-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = m.SwapSessionRef(ctx, user.UserID, "", "ref-2"); !errors.Is(err, ErrSessionRefConflict) {
		t.Fatalf("expected ErrSessionRefConflict on stale old ref, got %v", err)
	}
	if err = m.SwapSessionRef(ctx, user.UserID, "ref-1", "ref-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryLoginHistory_CapEvictsOldest(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < models.LoginHistoryCap+10; i++ {
		record := models.LoginRecord{IP: fmt.Sprintf("10.0.0.%d", i), LoginAt: base.Add(time.Duration(i) * time.Minute)}
		if err := m.AppendLoginRecord(ctx, 1, record); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := m.ListLoginHistory(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != models.LoginHistoryCap {
		t.Fatalf("expected history capped at %d, got %d", models.LoginHistoryCap, len(history))
	}
	if history[0].IP != "10.0.0.10" {
		t.Errorf("expected oldest surviving record 10.0.0.10, got %s", history[0].IP)
	}
}

func TestMemoryMirroredRelationship_BothSidesAgree(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.CreateMirroredRelationship(ctx, 7, 3, models.ChannelRef{ID: "chan-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	forward, err := m.FindRelationship(ctx, 3, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backward, err := m.FindRelationship(ctx, 7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forward.ChannelRef != backward.ChannelRef || !forward.EstablishedAt.Equal(backward.EstablishedAt) {
		t.Errorf("mirror halves disagree: %+v vs %+v", forward, backward)
	}

	if err = m.CreateMirroredRelationship(ctx, 3, 7, models.ChannelRef{ID: "chan-2"}); !errors.Is(err, ErrAlreadyRelated) {
		t.Fatalf("expected ErrAlreadyRelated, got %v", err)
	}
}

func TestMemoryConcurrentMirrorWrites_NeverOneSided(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// hammer create and delete of the same pair from both directions
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.CreateMirroredRelationship(ctx, 1, 2, models.ChannelRef{ID: "chan-a"})
			_, _ = m.DeleteMirroredRelationship(ctx, 1, 2)
		}()
		go func() {
			defer wg.Done()
			_ = m.CreateMirroredRelationship(ctx, 2, 1, models.ChannelRef{ID: "chan-b"})
			_, _ = m.DeleteMirroredRelationship(ctx, 2, 1)
		}()
	}
	wg.Wait()

	orphans, err := m.FindOneSidedMirrors(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orphans) != 0 {
		t.Fatalf("expected no one-sided entries after concurrent churn, got %+v", orphans)
	}
}

func TestMemoryCreateBlock_CascadeAndIdempotency(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.CreateRequest(ctx, models.PendingRequest{FromID: 3, ToID: 7, SentAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.CreateMirroredRelationship(ctx, 3, 7, models.ChannelRef{ID: "chan-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	block := models.BlockEntry{OwnerID: 7, UserID: 3, BlockedAt: time.Now()}
	channel, err := m.CreateBlock(ctx, block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channel.ID != "chan-1" {
		t.Errorf("expected removed channel chan-1, got %s", channel.ID)
	}

	if _, err = m.FindRelationship(ctx, 3, 7); !errors.Is(err, ErrRelationshipNotFound) {
		t.Fatalf("expected relationship removed, got %v", err)
	}
	if _, err = m.FindRequest(ctx, 3, 7); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected request removed, got %v", err)
	}

	// repeat block is a no-op returning no channel
	channel, err = m.CreateBlock(ctx, block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !channel.IsZero() {
		t.Errorf("expected zero channel on repeated block, got %s", channel.ID)
	}

	blocks, err := m.ListBlocks(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected a single block entry, got %d", len(blocks))
	}
}

func TestMemoryRetirementQueue_DedupAndOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"chan-1", "chan-2", "chan-1"} {
		if err := m.EnqueueRetirement(ctx, models.ChannelRef{ID: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	refs, err := m.DequeueRetirements(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 distinct queued channels, got %d", len(refs))
	}

	if err = m.CompleteRetirement(ctx, refs[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs, err = m.DequeueRetirements(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 remaining channel, got %d", len(refs))
	}
}
