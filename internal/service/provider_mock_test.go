// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"qlink/models"
)

// fakeProvider is an in-memory stand-in for the quantum handshake provider.
// It mimics the provider's contract: sessions with expiries, channels
// deduplicated by the ordered user pair, and signature references. Error
// injection happens through the fail* fields; call counts allow asserting
// how often the service reached out.
type fakeProvider struct {
	mu sync.Mutex

	sessionSeq   int
	channelSeq   int
	signatureSeq int

	sessions map[string]models.SessionStatus
	channels map[[2]int64]models.ChannelRef
	retired  map[string]bool

	createSessionCalls   int
	establishCalls       int
	validateSessionFunc  func(sessionID string) (models.SessionStatus, error)
	failCreateSession    error
	failEstablishChannel error
	failRetireChannel    error
	failSignEvent        error
	failDestroySession   error

	// createSessionGate, when non-nil, blocks CreateSession until closed.
	createSessionGate chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions: make(map[string]models.SessionStatus),
		channels: make(map[[2]int64]models.ChannelRef),
		retired:  make(map[string]bool),
	}
}

func (p *fakeProvider) CreateSession(_ context.Context, userID int64) (models.SessionInfo, error) {
	p.mu.Lock()
	p.createSessionCalls++
	gate := p.createSessionGate
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failCreateSession != nil {
		return models.SessionInfo{}, p.failCreateSession
	}

	p.sessionSeq++
	info := models.SessionInfo{
		ID:            fmt.Sprintf("sess-%d-%d", userID, p.sessionSeq),
		ExpiresAt:     time.Now().Add(time.Hour),
		SecurityLevel: 0.99,
	}
	p.sessions[info.ID] = models.SessionStatus{Valid: true, ExpiresAt: info.ExpiresAt}

	return info, nil
}

func (p *fakeProvider) ValidateSession(_ context.Context, sessionID string) (models.SessionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.validateSessionFunc != nil {
		return p.validateSessionFunc(sessionID)
	}

	status, ok := p.sessions[sessionID]
	if !ok {
		return models.SessionStatus{}, fmt.Errorf("fake provider: unknown session %s", sessionID)
	}
	return status, nil
}

func (p *fakeProvider) EstablishChannel(_ context.Context, userA, userB int64) (models.ChannelRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.establishCalls++
	if p.failEstablishChannel != nil {
		return models.ChannelRef{}, p.failEstablishChannel
	}

	if userA > userB {
		userA, userB = userB, userA
	}
	key := [2]int64{userA, userB}
	if existing, ok := p.channels[key]; ok {
		return existing, nil
	}

	p.channelSeq++
	channel := models.ChannelRef{ID: fmt.Sprintf("chan-%d", p.channelSeq), SecurityLevel: 0.98}
	p.channels[key] = channel

	return channel, nil
}

func (p *fakeProvider) RetireChannel(_ context.Context, ref models.ChannelRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failRetireChannel != nil {
		return p.failRetireChannel
	}

	p.retired[ref.ID] = true
	for key, channel := range p.channels {
		if channel.ID == ref.ID {
			delete(p.channels, key)
		}
	}

	return nil
}

func (p *fakeProvider) SignEvent(_ context.Context, userID int64, _ []byte) (models.SignatureRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failSignEvent != nil {
		return models.SignatureRef{}, p.failSignEvent
	}

	p.signatureSeq++
	return models.SignatureRef{ID: fmt.Sprintf("sig-%d-%d", userID, p.signatureSeq), SecurityLevel: 0.97}, nil
}

func (p *fakeProvider) DestroySession(_ context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failDestroySession != nil {
		return p.failDestroySession
	}

	delete(p.sessions, sessionID)
	return nil
}

func (p *fakeProvider) sessionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *fakeProvider) channelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

func (p *fakeProvider) isRetired(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retired[id]
}

func (p *fakeProvider) createCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createSessionCalls
}
