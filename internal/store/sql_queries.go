// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

const userColumns = `user_id, handle, email, password_hash, display_name, bio, avatar_url,
		is_active, is_verified, privacy_tier, secure_session_ref, created_at, updated_at`

const (
	createUser = `INSERT INTO users (handle, email, password_hash, display_name, bio, avatar_url, privacy_tier)
	VALUES ($1, lower($2), $3, $4, $5, $6, $7)
	RETURNING ` + userColumns + `;`

	deleteUser = `DELETE FROM users WHERE user_id = $1;`

	findUserByID = `SELECT ` + userColumns + `
	FROM users
	WHERE user_id = $1;`

	findUserByIdentifier = `SELECT ` + userColumns + `
	FROM users
	WHERE handle = $1 OR email = lower($1);`

	updateProfile = `UPDATE users
	SET display_name = $2, bio = $3, avatar_url = $4, privacy_tier = $5, updated_at = now()
	WHERE user_id = $1
	RETURNING ` + userColumns + `;`

	updatePassword = `UPDATE users
	SET password_hash = $2, updated_at = now()
	WHERE user_id = $1;`

	setActive = `UPDATE users
	SET is_active = $2, updated_at = now()
	WHERE user_id = $1;`

	swapSessionRef = `UPDATE users
	SET secure_session_ref = $3, updated_at = now()
	WHERE user_id = $1 AND secure_session_ref = $2;`

	appendLoginRecord = `INSERT INTO login_history (user_id, ip, user_agent, location, login_at, session_verified)
	VALUES ($1, $2, $3, $4, $5, $6);`

	trimLoginHistory = `DELETE FROM login_history
	WHERE user_id = $1 AND id NOT IN (
		SELECT id FROM login_history
		WHERE user_id = $1
		ORDER BY login_at DESC, id DESC
		LIMIT $2
	);`

	listLoginHistory = `SELECT ip, user_agent, location, login_at, session_verified
	FROM login_history
	WHERE user_id = $1
	ORDER BY login_at ASC, id ASC;`

	appendSignedEvent = `INSERT INTO signed_events (user_id, ref, event_type, security_level, recorded_at)
	VALUES ($1, $2, $3, $4, $5);`
)

const (
	createRequest = `INSERT INTO friend_requests (from_id, to_id, message, sent_at)
	VALUES ($1, $2, $3, $4);`

	findRequest = `SELECT from_id, to_id, message, sent_at
	FROM friend_requests
	WHERE from_id = $1 AND to_id = $2;`

	deleteRequest = `DELETE FROM friend_requests WHERE from_id = $1 AND to_id = $2;`

	deleteRequestsBetween = `DELETE FROM friend_requests
	WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1);`

	listIncomingRequests = `SELECT from_id, to_id, message, sent_at
	FROM friend_requests
	WHERE to_id = $1
	ORDER BY sent_at DESC;`

	listOutgoingRequests = `SELECT from_id, to_id, message, sent_at
	FROM friend_requests
	WHERE from_id = $1
	ORDER BY sent_at DESC;`
)

const (
	createRelationshipEntry = `INSERT INTO relationships (user_id, counterparty_id, status, established_at, channel_ref)
	VALUES ($1, $2, $3, $4, $5);`

	findRelationship = `SELECT user_id, counterparty_id, status, established_at, channel_ref
	FROM relationships
	WHERE user_id = $1 AND counterparty_id = $2;`

	deleteRelationshipPair = `DELETE FROM relationships
	WHERE (user_id = $1 AND counterparty_id = $2) OR (user_id = $2 AND counterparty_id = $1);`

	listRelationships = `SELECT user_id, counterparty_id, status, established_at, channel_ref
	FROM relationships
	WHERE user_id = $1
	ORDER BY established_at ASC;`

	// an accepted entry whose mirrored counterpart row is absent
	findOneSidedMirrors = `SELECT r1.user_id, r1.counterparty_id, r1.status, r1.established_at, r1.channel_ref
	FROM relationships r1
	LEFT JOIN relationships r2
		ON r2.user_id = r1.counterparty_id AND r2.counterparty_id = r1.user_id
	WHERE r1.status = 'accepted' AND r2.user_id IS NULL
	ORDER BY r1.established_at ASC
	LIMIT $1;`

	deleteOneSidedEntry = `DELETE FROM relationships
	WHERE user_id = $1 AND counterparty_id = $2;`
)

const (
	createBlock = `INSERT INTO blocks (owner_id, user_id, blocked_at, reason)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (owner_id, user_id) DO NOTHING;`

	findBlock = `SELECT owner_id, user_id, blocked_at, reason
	FROM blocks
	WHERE owner_id = $1 AND user_id = $2;`

	deleteBlock = `DELETE FROM blocks WHERE owner_id = $1 AND user_id = $2;`

	listBlocks = `SELECT owner_id, user_id, blocked_at, reason
	FROM blocks
	WHERE owner_id = $1
	ORDER BY blocked_at DESC;`

	selectPairChannel = `SELECT channel_ref
	FROM relationships
	WHERE user_id = $1 AND counterparty_id = $2;`
)

const (
	enqueueRetirement = `INSERT INTO channel_retirements (channel_ref, enqueued_at)
	VALUES ($1, now())
	ON CONFLICT (channel_ref) DO NOTHING;`

	dequeueRetirements = `SELECT channel_ref
	FROM channel_retirements
	ORDER BY enqueued_at ASC
	LIMIT $1;`

	completeRetirement = `DELETE FROM channel_retirements WHERE channel_ref = $1;`
)
