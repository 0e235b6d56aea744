// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"qlink/internal/config"
	"qlink/internal/logger"
	"qlink/internal/quantum"
	"qlink/internal/store"
	"qlink/internal/utils"
	"qlink/models"
)

// minPasswordLength is the minimum accepted password length at registration
// and password change.
const minPasswordLength = 8

// authService is the concrete implementation of AuthService.
// It handles registration, credential verification, the secure-session
// lifecycle against the quantum handshake provider, and JWT token issuance,
// using a UserRepository for persistence and bcrypt for password hashing.
type authService struct {
	// users is the data-access layer used to create and look up accounts.
	users store.UserRepository

	// provider is the quantum handshake provider that owns all session state.
	provider quantum.Provider

	// audit records login history and provider-signed sensitive events.
	audit AuditService

	// rotation collapses concurrent session rotations for the same user
	// into a single provider CreateSession call.
	rotation singleflight.Group

	// bcryptCost is the bcrypt cost factor for password hashing.
	bcryptCost int

	// tokenSignKey is the HMAC secret used to sign and verify JWT tokens.
	tokenSignKey string

	// tokenIssuer is the "iss" claim embedded in every issued JWT.
	tokenIssuer string

	// tokenDuration controls how long a newly issued JWT remains valid.
	tokenDuration time.Duration

	// logger is the structured logger used for diagnostic and error output.
	logger *logger.Logger
}

// NewAuthService constructs an AuthService wired to the given repository,
// provider and audit trail, with security parameters from cfg.
//
// The returned service is safe for concurrent use.
func NewAuthService(users store.UserRepository, provider quantum.Provider, audit AuditService, cfg config.App, logger *logger.Logger) AuthService {
	return &authService{
		users:         users,
		provider:      provider,
		audit:         audit,
		bcryptCost:    cfg.BcryptCost,
		tokenSignKey:  cfg.TokenSignKey,
		tokenIssuer:   cfg.TokenIssuer,
		tokenDuration: cfg.TokenDuration,
		logger:        logger,
	}
}

// Register creates a new account together with its provider session.
//
// The sequence is: validate, hash, persist the account, create the provider
// session, bind the session reference, sign the registration. Any failure
// past persistence rolls the earlier steps back, so a provider outage never
// leaves an account without a session reference.
//
// Returns the persisted user or:
//   - ErrInvalidDataProvided for a missing handle/email or a short password.
//   - ErrDuplicateIdentity when the handle or email is already taken.
//   - ErrSessionProviderUnavailable when the provider refuses the session.
func (a *authService) Register(ctx context.Context, user models.User, password string) (models.User, error) {
	log := logger.FromContext(ctx)

	if user.Handle == "" || user.Email == "" || !strings.Contains(user.Email, "@") {
		log.Error().Str("handle", user.Handle).Msg("invalid registration data provided")
		return models.User{}, ErrInvalidDataProvided
	}
	if len(password) < minPasswordLength {
		return models.User{}, ErrInvalidDataProvided
	}

	hash, err := utils.HashPassword(password, a.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("password hashing failed: %w", err)
	}
	user.PasswordHash = hash
	user.IsActive = true

	created, err := a.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrHandleAlreadyExists) || errors.Is(err, store.ErrEmailAlreadyExists) {
			return models.User{}, ErrDuplicateIdentity
		}
		log.Err(err).Str("handle", user.Handle).Msg("user creation ended with error")
		return models.User{}, fmt.Errorf("user creation ended with error: %w", err)
	}

	session, err := a.provider.CreateSession(ctx, created.UserID)
	if err != nil {
		log.Err(err).Int64("userID", created.UserID).Msg("session creation failed, removing fresh account")
		a.compensateRegistration(ctx, created.UserID, "")
		return models.User{}, fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
	}

	if err = a.users.SwapSessionRef(ctx, created.UserID, "", session.ID); err != nil {
		log.Err(err).Int64("userID", created.UserID).Msg("binding session ref failed, removing fresh account")
		a.compensateRegistration(ctx, created.UserID, session.ID)
		return models.User{}, fmt.Errorf("binding session ref failed: %w", err)
	}
	created.SecureSessionRef = session.ID

	if _, err = a.audit.RecordSensitiveEvent(ctx, created.UserID, "registration", []byte(created.Handle)); err != nil {
		log.Err(err).Int64("userID", created.UserID).Msg("signing registration failed, removing fresh account")
		a.compensateRegistration(ctx, created.UserID, session.ID)
		return models.User{}, fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
	}

	return created, nil
}

// compensateRegistration undoes a partially completed registration. Both
// steps are best effort; the user delete is idempotent and a leaked provider
// session expires on its own.
func (a *authService) compensateRegistration(ctx context.Context, userID int64, sessionID string) {
	log := logger.FromContext(ctx)

	if sessionID != "" {
		if err := a.provider.DestroySession(ctx, sessionID); err != nil {
			log.Err(err).Str("sessionID", sessionID).Msg("destroying orphaned session failed")
		}
	}
	if err := a.users.DeleteUser(ctx, userID); err != nil {
		log.Err(err).Int64("userID", userID).Msg("removing partially registered user failed")
	}
}

// Login authenticates an account by handle or case-insensitive email.
//
// When the stored secure session is absent, expired or rejected by the
// provider, exactly one replacement session is created per rotation:
// concurrent logins share the CreateSession call through singleflight, and
// the reference swap is a compare-and-swap so a racing rotation can never
// half-apply. A login that cannot reach the provider fails closed.
//
// Returns the user, an access token carrying the session reference, and the
// session info, or:
//   - ErrInvalidCredentials for any credential failure.
//   - ErrAccountDeactivated for inactive accounts.
//   - ErrSessionProviderUnavailable when session validation or rotation
//     cannot be completed.
func (a *authService) Login(ctx context.Context, identifier, password string, meta models.LoginRecord) (models.User, models.Token, models.SessionInfo, error) {
	log := logger.FromContext(ctx)

	if identifier == "" || password == "" {
		return models.User{}, models.Token{}, models.SessionInfo{}, ErrInvalidCredentials
	}

	found, err := a.users.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return models.User{}, models.Token{}, models.SessionInfo{}, ErrInvalidCredentials
		}
		log.Err(err).Msg("user lookup failed")
		return models.User{}, models.Token{}, models.SessionInfo{}, fmt.Errorf("user lookup failed: %w", err)
	}

	if !utils.CheckPassword(found.PasswordHash, password) {
		log.Warn().Int64("userID", found.UserID).Msg("password mismatch")
		return models.User{}, models.Token{}, models.SessionInfo{}, ErrInvalidCredentials
	}

	if !found.IsActive {
		return models.User{}, models.Token{}, models.SessionInfo{}, ErrAccountDeactivated
	}

	session, verified, err := a.ensureSession(ctx, found)
	if err != nil {
		return models.User{}, models.Token{}, models.SessionInfo{}, err
	}
	found.SecureSessionRef = session.ID

	if meta.LoginAt.IsZero() {
		meta.LoginAt = time.Now()
	}
	meta.SessionVerified = verified
	if err = a.audit.RecordLogin(ctx, found.UserID, meta); err != nil {
		log.Err(err).Int64("userID", found.UserID).Msg("recording login failed")
		return models.User{}, models.Token{}, models.SessionInfo{}, fmt.Errorf("recording login failed: %w", err)
	}

	token, err := a.CreateToken(ctx, found)
	if err != nil {
		return models.User{}, models.Token{}, models.SessionInfo{}, err
	}

	return found, token, session, nil
}

// ensureSession returns a live session for the user, rotating the stored one
// when it is absent, expired or unknown to the provider. The second return
// value reports whether the pre-existing session was verified rather than
// replaced.
func (a *authService) ensureSession(ctx context.Context, user models.User) (models.SessionInfo, bool, error) {
	log := logger.FromContext(ctx)

	if user.SecureSessionRef != "" {
		status, err := a.provider.ValidateSession(ctx, user.SecureSessionRef)
		switch {
		case err == nil && status.Valid && status.ExpiresAt.After(time.Now()):
			return models.SessionInfo{ID: user.SecureSessionRef, ExpiresAt: status.ExpiresAt}, true, nil
		case err != nil && !errors.Is(err, quantum.ErrSessionNotFound):
			log.Err(err).Int64("userID", user.UserID).Msg("session validation failed")
			return models.SessionInfo{}, false, fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
		}
		// invalid, expired or unknown: fall through to rotation
	}

	session, err := a.rotateSession(ctx, user.UserID, user.SecureSessionRef)
	if err != nil {
		return models.SessionInfo{}, false, err
	}

	return session, false, nil
}

// rotateSession creates a replacement session and swaps the stored
// reference. Concurrent rotations for the same user share one provider call;
// a lost reference swap discards the fresh session and adopts the winner's.
func (a *authService) rotateSession(ctx context.Context, userID int64, oldRef string) (models.SessionInfo, error) {
	log := logger.FromContext(ctx)

	result, err, _ := a.rotation.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		session, err := a.provider.CreateSession(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
		}

		if err = a.users.SwapSessionRef(ctx, userID, oldRef, session.ID); err != nil {
			if errors.Is(err, store.ErrSessionRefConflict) {
				// another login rotated first; drop ours and use theirs
				if destroyErr := a.provider.DestroySession(ctx, session.ID); destroyErr != nil {
					log.Err(destroyErr).Str("sessionID", session.ID).Msg("destroying losing session failed")
				}
				current, findErr := a.users.FindUserByID(ctx, userID)
				if findErr != nil {
					return nil, fmt.Errorf("reloading user after lost rotation failed: %w", findErr)
				}
				return models.SessionInfo{ID: current.SecureSessionRef}, nil
			}
			return nil, fmt.Errorf("swapping session ref failed: %w", err)
		}

		return session, nil
	})
	if err != nil {
		return models.SessionInfo{}, err
	}

	return result.(models.SessionInfo), nil
}

// UpdateProfile replaces the mutable profile fields of the account.
//
// The privacy tier must be one of the known tiers; the visibility resolver
// would hide a profile carrying an unknown tier, so such writes are rejected
// outright with ErrInvalidDataProvided.
func (a *authService) UpdateProfile(ctx context.Context, userID int64, profile models.User) (models.User, error) {
	switch profile.PrivacyTier {
	case models.PrivacyPublic, models.PrivacyFriends, models.PrivacyPrivate:
	default:
		return models.User{}, ErrInvalidDataProvided
	}

	profile.UserID = userID
	updated, err := a.users.UpdateProfile(ctx, profile)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("updating profile failed: %w", err)
	}

	return updated, nil
}

// ChangePassword verifies the old password and installs a new hash. The
// provider signs the change before the hash is committed, so an unsigned
// password change can never take effect.
func (a *authService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	log := logger.FromContext(ctx)

	if len(newPassword) < minPasswordLength {
		return ErrInvalidDataProvided
	}

	found, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("user lookup failed: %w", err)
	}
	if !utils.CheckPassword(found.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	if _, err = a.audit.RecordSensitiveEvent(ctx, userID, "password_change", nil); err != nil {
		log.Err(err).Int64("userID", userID).Msg("signing password change failed")
		return fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
	}

	hash, err := utils.HashPassword(newPassword, a.bcryptCost)
	if err != nil {
		return fmt.Errorf("password hashing failed: %w", err)
	}

	if err = a.users.UpdatePassword(ctx, userID, hash); err != nil {
		log.Err(err).Int64("userID", userID).Msg("updating password failed")
		return fmt.Errorf("updating password failed: %w", err)
	}

	return nil
}

// Deactivate retires the account: the deactivation is signed, the provider
// session is destroyed, the stored reference is cleared and the account is
// marked inactive. A deactivated account cannot log in and is invisible to
// discovery.
func (a *authService) Deactivate(ctx context.Context, userID int64) error {
	log := logger.FromContext(ctx)

	found, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return ErrNotFound
		}
		return fmt.Errorf("user lookup failed: %w", err)
	}

	if _, err = a.audit.RecordSensitiveEvent(ctx, userID, "deactivation", nil); err != nil {
		log.Err(err).Int64("userID", userID).Msg("signing deactivation failed")
		return fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
	}

	if found.SecureSessionRef != "" {
		if err = a.provider.DestroySession(ctx, found.SecureSessionRef); err != nil {
			log.Err(err).Int64("userID", userID).Msg("destroying session failed")
			return fmt.Errorf("%w: %w", ErrSessionProviderUnavailable, err)
		}
		if err = a.users.SwapSessionRef(ctx, userID, found.SecureSessionRef, ""); err != nil {
			log.Err(err).Int64("userID", userID).Msg("clearing session ref failed")
			return fmt.Errorf("clearing session ref failed: %w", err)
		}
	}

	if err = a.users.SetActive(ctx, userID, false); err != nil {
		log.Err(err).Int64("userID", userID).Msg("deactivating account failed")
		return fmt.Errorf("deactivating account failed: %w", err)
	}

	return nil
}

// CreateToken issues a signed JWT for the given user.
//
// The token is signed with the configured tokenSignKey, carries the
// configured tokenIssuer as the "iss" claim, embeds the user's
// secure-session reference as the "jti" claim, and expires after
// tokenDuration.
func (a *authService) CreateToken(ctx context.Context, user models.User) (models.Token, error) {
	token, err := utils.GenerateAccessToken(a.tokenIssuer, user.UserID, user.SecureSessionRef, a.tokenDuration, a.tokenSignKey)
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	return token, nil
}

// ParseToken validates and parses a raw JWT string.
//
// It delegates to utils.ValidateAndParseJWTToken, verifying the signature and
// the issuer claim. Any validation failure (expired, wrong issuer, malformed)
// is normalised to ErrTokenIsExpiredOrInvalid so that callers do not need to
// inspect low-level JWT errors.
func (a *authService) ParseToken(ctx context.Context, tokenString string) (models.Token, error) {
	token, err := utils.ValidateAndParseJWTToken(tokenString, a.tokenSignKey, a.tokenIssuer)
	if err != nil {
		return models.Token{}, ErrTokenIsExpiredOrInvalid
	}

	return token, nil
}
