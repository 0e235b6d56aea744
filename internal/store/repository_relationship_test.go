// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"

	"qlink/internal/logger"
	"qlink/models"
)

func newTestRelationshipRepo(t *testing.T) (*relationshipRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &relationshipRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestOrderPair(t *testing.T) {
	if low, high := orderPair(7, 3); low != 3 || high != 7 {
		t.Errorf("orderPair(7, 3) = (%d, %d), want (3, 7)", low, high)
	}
	if low, high := orderPair(3, 7); low != 3 || high != 7 {
		t.Errorf("orderPair(3, 7) = (%d, %d), want (3, 7)", low, high)
	}
}

func TestCreateRequest_Duplicate(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO friend_requests").
		WillReturnError(pgError(pgerrcode.UniqueViolation))

	err := repo.CreateRequest(context.Background(), models.PendingRequest{FromID: 1, ToID: 2, SentAt: time.Now()})
	if !errors.Is(err, ErrRequestAlreadyExists) {
		t.Fatalf("expected ErrRequestAlreadyExists, got %v", err)
	}
}

func TestDeleteRequest_NotFound(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM friend_requests").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteRequest(context.Background(), 1, 2)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestCreateMirroredRelationship_WritesBothHalves(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	channel := models.ChannelRef{ID: "chan-1"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO relationships").
		WithArgs(int64(3), int64(7), models.RelationshipAccepted, sqlmock.AnyArg(), channel.ID).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO relationships").
		WithArgs(int64(7), int64(3), models.RelationshipAccepted, sqlmock.AnyArg(), channel.ID).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("DELETE FROM friend_requests").
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// caller passes the pair in the reverse order; the lower ID goes first
	if err := repo.CreateMirroredRelationship(context.Background(), 7, 3, channel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateMirroredRelationship_AlreadyRelated(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO relationships").
		WillReturnError(pgError(pgerrcode.UniqueViolation))
	mock.ExpectRollback()

	err := repo.CreateMirroredRelationship(context.Background(), 3, 7, models.ChannelRef{ID: "chan-1"})
	if !errors.Is(err, ErrAlreadyRelated) {
		t.Fatalf("expected ErrAlreadyRelated, got %v", err)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateMirroredRelationship_RollsBackOnSecondHalfFailure(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO relationships").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO relationships").
		WillReturnError(pgError(pgerrcode.ConnectionException))
	mock.ExpectRollback()

	err := repo.CreateMirroredRelationship(context.Background(), 3, 7, models.ChannelRef{ID: "chan-1"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteMirroredRelationship_ReturnsChannel(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT channel_ref").
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"channel_ref"}).AddRow("chan-1"))
	mock.ExpectExec("DELETE FROM relationships").
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	channel, err := repo.DeleteMirroredRelationship(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channel.ID != "chan-1" {
		t.Errorf("expected channel chan-1, got %s", channel.ID)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteMirroredRelationship_NotFound(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT channel_ref").
		WithArgs(int64(3), int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.DeleteMirroredRelationship(context.Background(), 3, 7)
	if !errors.Is(err, ErrRelationshipNotFound) {
		t.Fatalf("expected ErrRelationshipNotFound, got %v", err)
	}
}

func TestCreateBlock_CascadesInOneTransaction(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	block := models.BlockEntry{OwnerID: 7, UserID: 3, BlockedAt: time.Now(), Reason: "spam"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT channel_ref").
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"channel_ref"}).AddRow("chan-1"))
	mock.ExpectExec("DELETE FROM relationships").
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM friend_requests").
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO blocks").
		WithArgs(block.OwnerID, block.UserID, block.BlockedAt, block.Reason).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	channel, err := repo.CreateBlock(context.Background(), block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channel.ID != "chan-1" {
		t.Errorf("expected channel chan-1, got %s", channel.ID)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateBlock_NoRelationship(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	block := models.BlockEntry{OwnerID: 7, UserID: 3, BlockedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT channel_ref").
		WithArgs(int64(3), int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("DELETE FROM relationships").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM friend_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO blocks").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	channel, err := repo.CreateBlock(context.Background(), block)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !channel.IsZero() {
		t.Errorf("expected zero channel, got %s", channel.ID)
	}
}

func TestDeleteBlock_NotFound(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM blocks").
		WithArgs(int64(7), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteBlock(context.Background(), 7, 3)
	if !errors.Is(err, ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
}

func TestFindRelationship_NotFound(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT user_id").
		WithArgs(int64(1), int64(2)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindRelationship(context.Background(), 1, 2)
	if !errors.Is(err, ErrRelationshipNotFound) {
		t.Fatalf("expected ErrRelationshipNotFound, got %v", err)
	}
}

func TestListRelationships_Success(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "counterparty_id", "status", "established_at", "channel_ref"}).
		AddRow(int64(1), int64(2), models.RelationshipAccepted, now.Add(-time.Hour), "chan-1").
		AddRow(int64(1), int64(3), models.RelationshipAccepted, now, "chan-2")

	mock.ExpectQuery("SELECT user_id").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	entries, err := repo.ListRelationships(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ChannelRef != "chan-1" || entries[1].ChannelRef != "chan-2" {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestRetirementQueue_RoundTrip(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO channel_retirements").
		WithArgs("chan-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT channel_ref").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"channel_ref"}).AddRow("chan-1"))
	mock.ExpectExec("DELETE FROM channel_retirements").
		WithArgs("chan-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := repo.EnqueueRetirement(ctx, models.ChannelRef{ID: "chan-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refs, err := repo.DequeueRetirements(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "chan-1" {
		t.Fatalf("expected queued chan-1, got %+v", refs)
	}

	if err = repo.CompleteRetirement(ctx, refs[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindOneSidedMirrors_Success(t *testing.T) {
	repo, mock, db := newTestRelationshipRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "counterparty_id", "status", "established_at", "channel_ref"}).
		AddRow(int64(5), int64(9), models.RelationshipAccepted, now, "chan-9")

	mock.ExpectQuery("SELECT r1.user_id").
		WithArgs(uint64(100)).
		WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM relationships").
		WithArgs(int64(5), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	entries, err := repo.FindOneSidedMirrors(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].CounterpartyID != 9 {
		t.Fatalf("expected one orphaned entry, got %+v", entries)
	}

	if err = repo.DeleteOneSidedEntry(ctx, entries[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
