// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"

	"qlink/internal/logger"
	"qlink/models"
)

// userRepository is the PostgreSQL-backed implementation of [UserRepository].
// It handles the users table plus the bounded audit tables hanging off it
// (login_history, signed_events).
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// scanUser reads one full user row from a scannable source.
func scanUser(row interface{ Scan(dest ...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.UserID, &u.Handle, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Bio, &u.AvatarURL,
		&u.IsActive, &u.IsVerified, &u.PrivacyTier, &u.SecureSessionRef, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUser persists a new user record and returns the fully populated
// [models.User] with server-assigned fields (UserID, CreatedAt, UpdatedAt).
//
// Error handling:
//   - PostgreSQL unique_violation (23505) on the handle index →
//     [ErrHandleAlreadyExists]; on the email index → [ErrEmailAlreadyExists].
//   - Any other driver-level error → wrapped as "unexpected DB error".
func (r *userRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	if user.PrivacyTier == "" {
		user.PrivacyTier = models.PrivacyPublic
	}

	row := r.db.QueryRowContext(ctx, createUser,
		user.Handle, user.Email, user.PasswordHash, user.DisplayName, user.Bio, user.AvatarURL, user.PrivacyTier)

	created, err := scanUser(row)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: creating user failed")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			if strings.Contains(constraintName(err), "email") {
				return models.User{}, ErrEmailAlreadyExists
			}
			return models.User{}, ErrHandleAlreadyExists
		case "":
			return models.User{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
		default:
			return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	return created, nil
}

// DeleteUser removes a user row. Deleting a missing user is not an error:
// the method exists as the compensating step of a failed registration and
// must be idempotent.
func (r *userRepository) DeleteUser(ctx context.Context, userID int64) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, deleteUser, userID); err != nil {
		log.Err(err).Str("func", "*userRepository.DeleteUser").Msg("error: deleting user failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// FindUserByID retrieves a user record by internal ID.
//
// Returns [ErrNoUserWasFound] when no row matches.
func (r *userRepository) FindUserByID(ctx context.Context, userID int64) (models.User, error) {
	log := logger.FromContext(ctx)

	found, err := scanUser(r.db.QueryRowContext(ctx, findUserByID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).Str("func", "*userRepository.FindUserByID").Msg("error: scanning user failed")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return found, nil
}

// FindUserByIdentifier retrieves a user record whose handle or email matches
// the identifier. Email comparison is case-insensitive; the column stores
// the lowercased address.
//
// Returns [ErrNoUserWasFound] when no row matches.
func (r *userRepository) FindUserByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	log := logger.FromContext(ctx)

	found, err := scanUser(r.db.QueryRowContext(ctx, findUserByIdentifier, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).Str("func", "*userRepository.FindUserByIdentifier").Msg("error: scanning user failed")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return found, nil
}

// SearchUsers finds active users whose handle or display name contains the
// query, case-insensitively. The dynamic WHERE clause is built with
// squirrel. Deactivated accounts are excluded per the discovery invariant.
func (r *userRepository) SearchUsers(ctx context.Context, query string, limit uint64) ([]models.User, error) {
	log := logger.FromContext(ctx)

	pattern := "%" + query + "%"
	sqlQuery, args, err := sq.
		Select("user_id", "handle", "email", "password_hash", "display_name", "bio", "avatar_url",
			"is_active", "is_verified", "privacy_tier", "secure_session_ref", "created_at", "updated_at").
		From("users").
		Where(sq.And{
			sq.Eq{"is_active": true},
			sq.Or{
				sq.ILike{"handle": pattern},
				sq.ILike{"display_name": pattern},
			},
		}).
		OrderBy("handle ASC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*userRepository.SearchUsers").Msg("error: building search query failed")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.SearchUsers").Msg("error: executing search query failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// UpdateProfile persists the mutable profile fields and returns the
// refreshed record.
func (r *userRepository) UpdateProfile(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	row := r.db.QueryRowContext(ctx, updateProfile,
		user.UserID, user.DisplayName, user.Bio, user.AvatarURL, user.PrivacyTier)

	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).Str("func", "*userRepository.UpdateProfile").Msg("error: updating profile failed")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return updated, nil
}

// UpdatePassword replaces the credential hash of the user.
func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return r.execOnUser(ctx, "*userRepository.UpdatePassword", updatePassword, userID, passwordHash)
}

// SetActive flips the account's active flag.
func (r *userRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	return r.execOnUser(ctx, "*userRepository.SetActive", setActive, userID, active)
}

// SwapSessionRef performs the compare-and-swap of the secure-session
// reference. A zero-row update means the stored reference no longer matches
// oldRef and the caller lost the race: [ErrSessionRefConflict].
func (r *userRepository) SwapSessionRef(ctx context.Context, userID int64, oldRef, newRef string) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, swapSessionRef, userID, oldRef, newRef)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.SwapSessionRef").Msg("error: swapping session ref failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrSessionRefConflict
	}

	return nil
}

// AppendLoginRecord appends one login record and trims the user's history to
// [models.LoginHistoryCap] entries in the same transaction, evicting the
// oldest first.
func (r *userRepository) AppendLoginRecord(ctx context.Context, userID int64, record models.LoginRecord) error {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.AppendLoginRecord").Msg("error: beginning transaction failed")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err = tx.ExecContext(ctx, appendLoginRecord,
		userID, record.IP, record.UserAgent, record.Location, record.LoginAt, record.SessionVerified); err != nil {
		log.Err(err).Str("func", "*userRepository.AppendLoginRecord").Msg("error: inserting login record failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	if _, err = tx.ExecContext(ctx, trimLoginHistory, userID, models.LoginHistoryCap); err != nil {
		log.Err(err).Str("func", "*userRepository.AppendLoginRecord").Msg("error: trimming login history failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommittingTransaction, err)
	}

	return nil
}

// ListLoginHistory returns the retained login records, oldest first.
func (r *userRepository) ListLoginHistory(ctx context.Context, userID int64) ([]models.LoginRecord, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listLoginHistory, userID)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.ListLoginHistory").Msg("error: querying login history failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.LoginRecord
	for rows.Next() {
		var rec models.LoginRecord
		if err = rows.Scan(&rec.IP, &rec.UserAgent, &rec.Location, &rec.LoginAt, &rec.SessionVerified); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// AppendSignedEvent stores a provider-issued signature reference.
func (r *userRepository) AppendSignedEvent(ctx context.Context, userID int64, ref models.SignedEventRef) error {
	log := logger.FromContext(ctx)

	if _, err := r.db.ExecContext(ctx, appendSignedEvent,
		userID, ref.Ref, ref.EventType, ref.SecurityLevel, ref.RecordedAt); err != nil {
		log.Err(err).Str("func", "*userRepository.AppendSignedEvent").Msg("error: inserting signed event failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	return nil
}

// execOnUser runs a single-row UPDATE and converts a zero-row result into
// [ErrNoUserWasFound].
func (r *userRepository) execOnUser(ctx context.Context, fn, query string, args ...any) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("error: executing statement failed")
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrNoUserWasFound
	}

	return nil
}
