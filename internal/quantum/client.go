// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package quantum

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"qlink/internal/logger"
	"qlink/internal/utils"
	"qlink/models"
)

// ClientConfig carries the settings of the HTTP provider client.
type ClientConfig struct {
	// BaseURL is the root endpoint of the provider API.
	BaseURL string

	// Timeout bounds every single HTTP round-trip.
	Timeout time.Duration

	// MaxRetries bounds how many times a failed call is retried before
	// ErrProviderUnavailable is reported.
	MaxRetries uint64

	// BackoffBase is the initial delay of the fibonacci backoff between
	// retries.
	BackoffBase time.Duration
}

// httpProvider is the resty-backed implementation of [Provider].
//
// Retry discipline per the provider contract: read-only calls are retried
// freely; state-creating calls (CreateSession, EstablishChannel, SignEvent)
// are retried only with the same Idempotency-Key so the provider can
// deduplicate, never blindly.
type httpProvider struct {
	client  *resty.Client
	retries uint64
	backoff time.Duration
	ids     *utils.UUIDGenerator
	logger  *logger.Logger
}

// NewHTTPProvider constructs a [Provider] talking to the handshake provider
// over HTTP.
func NewHTTPProvider(cfg ClientConfig, log *logger.Logger) Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 100 * time.Millisecond
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	log.Debug().Str("base_url", cfg.BaseURL).Msg("creating handshake provider client")

	return &httpProvider{
		client:  cli,
		retries: cfg.MaxRetries,
		backoff: cfg.BackoffBase,
		ids:     utils.NewUUIDGenerator(),
		logger:  log,
	}
}

type createSessionRequest struct {
	UserID int64 `json:"user_id"`
}

type establishChannelRequest struct {
	UserA int64 `json:"user_a"`
	UserB int64 `json:"user_b"`
}

type signEventRequest struct {
	UserID  int64  `json:"user_id"`
	Payload string `json:"payload"`
}

func (p *httpProvider) CreateSession(ctx context.Context, userID int64) (models.SessionInfo, error) {
	var session models.SessionInfo

	key := p.ids.Generate()
	err := p.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return p.client.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", key).
			SetBody(createSessionRequest{UserID: userID}).
			SetResult(&session).
			Post("/api/v1/sessions")
	})
	if err != nil {
		return models.SessionInfo{}, fmt.Errorf("create session for user %d: %w", userID, err)
	}

	return session, nil
}

func (p *httpProvider) ValidateSession(ctx context.Context, sessionID string) (models.SessionStatus, error) {
	var status models.SessionStatus

	err := p.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return p.client.R().
			SetContext(ctx).
			SetResult(&status).
			Get("/api/v1/sessions/" + sessionID)
	})
	if err != nil {
		return models.SessionStatus{}, fmt.Errorf("validate session %s: %w", sessionID, err)
	}

	return status, nil
}

func (p *httpProvider) EstablishChannel(ctx context.Context, userA, userB int64) (models.ChannelRef, error) {
	var channel models.ChannelRef

	// the provider keys channels by the ordered pair; normalizing here
	// makes the dedup key identical regardless of which side calls
	if userA > userB {
		userA, userB = userB, userA
	}

	key := p.ids.Generate()
	err := p.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return p.client.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", key).
			SetBody(establishChannelRequest{UserA: userA, UserB: userB}).
			SetResult(&channel).
			Post("/api/v1/channels")
	})
	if err != nil {
		return models.ChannelRef{}, fmt.Errorf("establish channel for pair (%d, %d): %w", userA, userB, err)
	}

	return channel, nil
}

func (p *httpProvider) RetireChannel(ctx context.Context, ref models.ChannelRef) error {
	key := p.ids.Generate()
	err := p.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return p.client.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", key).
			Post("/api/v1/channels/" + ref.ID + "/retire")
	})
	if err != nil {
		// already retired on the provider side is a success for the caller
		if errors.Is(err, ErrChannelNotFound) {
			return nil
		}
		return fmt.Errorf("retire channel %s: %w", ref.ID, err)
	}

	return nil
}

func (p *httpProvider) SignEvent(ctx context.Context, userID int64, payload []byte) (models.SignatureRef, error) {
	var signature models.SignatureRef

	key := p.ids.Generate()
	err := p.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return p.client.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", key).
			SetBody(signEventRequest{UserID: userID, Payload: base64.StdEncoding.EncodeToString(payload)}).
			SetResult(&signature).
			Post("/api/v1/signatures")
	})
	if err != nil {
		return models.SignatureRef{}, fmt.Errorf("sign event for user %d: %w", userID, err)
	}

	return signature, nil
}

func (p *httpProvider) DestroySession(ctx context.Context, sessionID string) error {
	err := p.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return p.client.R().
			SetContext(ctx).
			Delete("/api/v1/sessions/" + sessionID)
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("destroy session %s: %w", sessionID, err)
	}

	return nil
}

// do executes a single provider call with bounded fibonacci backoff.
//
// Network errors and 5xx answers are retryable; 4xx answers are mapped to
// sentinel errors and returned immediately. Once the retry budget is spent,
// the last failure is wrapped in ErrProviderUnavailable.
func (p *httpProvider) do(ctx context.Context, call func(ctx context.Context) (*resty.Response, error)) error {
	log := logger.FromContext(ctx)

	backoff := retry.WithMaxRetries(p.retries, retry.NewFibonacci(p.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := call(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("handshake provider round-trip failed")
			return retry.RetryableError(fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
		}

		return classifyStatus(resp)
	})
	if err != nil {
		return err
	}

	return nil
}

// classifyStatus maps provider HTTP answers to sentinel errors.
func classifyStatus(resp *resty.Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusNotFound:
		if strings.Contains(resp.Request.URL, "/channels/") {
			return ErrChannelNotFound
		}
		return ErrSessionNotFound
	case resp.StatusCode() == http.StatusConflict:
		return ErrEavesdropSuspected
	case resp.StatusCode() >= http.StatusInternalServerError:
		return retry.RetryableError(fmt.Errorf("%w: provider answered %d", ErrProviderUnavailable, resp.StatusCode()))
	default:
		return fmt.Errorf("%w: provider answered %d", ErrProviderUnavailable, resp.StatusCode())
	}
}
