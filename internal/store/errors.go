// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrHandleAlreadyExists is returned when an attempt to register a new
	// user fails because the handle is already taken.
	ErrHandleAlreadyExists = errors.New("handle already exists")

	// ErrEmailAlreadyExists is returned when an attempt to register a new
	// user fails because the email is already taken.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrNoUserWasFound is returned when a query expected to match at least
	// one user record produces an empty result set.
	ErrNoUserWasFound = errors.New("no user was found")

	// ErrSessionRefConflict is returned when a compare-and-swap of the
	// secure-session reference fails because the stored reference no longer
	// matches the expected value. The caller must re-read the record and
	// decide whether another rotation already won.
	ErrSessionRefConflict = errors.New("secure session reference was changed concurrently")

	// ErrRequestNotFound is returned when the targeted friend request does
	// not exist.
	ErrRequestNotFound = errors.New("friend request was not found")

	// ErrRequestAlreadyExists is returned when a duplicate friend request
	// for the same (from, to) pair is created.
	ErrRequestAlreadyExists = errors.New("friend request already exists")

	// ErrAlreadyRelated is returned when a mirrored relationship for the
	// pair already exists.
	ErrAlreadyRelated = errors.New("users are already related")

	// ErrRelationshipNotFound is returned when no relationship entry exists
	// for the pair.
	ErrRelationshipNotFound = errors.New("relationship was not found")

	// ErrBlockNotFound is returned when the targeted block entry does not
	// exist.
	ErrBlockNotFound = errors.New("block entry was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommittingTransaction is returned when committing an open
	// transaction fails. The transaction is considered rolled back at this
	// point.
	ErrCommittingTransaction = errors.New("failed to commit transaction")

	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a query against the
	// database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrScanningRow is returned when scanning column values from a result
	// row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")
)
