// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qlink/models"
)

// Memory is an in-memory implementation of both [UserRepository] and
// [RelationshipRepository]. A single mutex makes every repository operation
// atomic, mirroring the transactional guarantees of the PostgreSQL
// implementation. It backs service and worker tests, including the
// concurrent mirror property test, where driving a real database would make
// interleavings impossible to control.
type Memory struct {
	mu sync.Mutex

	nextID        int64
	users         map[int64]models.User
	requests      map[[2]int64]models.PendingRequest
	relationships map[[2]int64]models.RelationshipEntry
	blocks        map[[2]int64]models.BlockEntry
	loginHistory  map[int64][]models.LoginRecord
	signedEvents  map[int64][]models.SignedEventRef
	retirements   map[string]time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextID:        1,
		users:         make(map[int64]models.User),
		requests:      make(map[[2]int64]models.PendingRequest),
		relationships: make(map[[2]int64]models.RelationshipEntry),
		blocks:        make(map[[2]int64]models.BlockEntry),
		loginHistory:  make(map[int64][]models.LoginRecord),
		signedEvents:  make(map[int64][]models.SignedEventRef),
		retirements:   make(map[string]time.Time),
	}
}

// NewMemoryStorages wires a single Memory instance into a [Storages]
// aggregate.
func NewMemoryStorages() (*Storages, *Memory) {
	m := NewMemory()
	return &Storages{Users: m, Relationships: m}, m
}

func (m *Memory) CreateUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, existing := range m.users {
		if existing.Handle == user.Handle {
			return models.User{}, ErrHandleAlreadyExists
		}
		if existing.Email == user.Email {
			return models.User{}, ErrEmailAlreadyExists
		}
	}

	if user.PrivacyTier == "" {
		user.PrivacyTier = models.PrivacyPublic
	}

	user.UserID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.UserID] = user

	return user, nil
}

func (m *Memory) DeleteUser(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, userID)
	delete(m.loginHistory, userID)
	delete(m.signedEvents, userID)

	return nil
}

func (m *Memory) FindUserByID(_ context.Context, userID int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return models.User{}, ErrNoUserWasFound
	}

	return user, nil
}

func (m *Memory) FindUserByIdentifier(_ context.Context, identifier string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowered := strings.ToLower(identifier)
	for _, user := range m.users {
		if user.Handle == identifier || user.Email == lowered {
			return user, nil
		}
	}

	return models.User{}, ErrNoUserWasFound
}

func (m *Memory) SearchUsers(_ context.Context, query string, limit uint64) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowered := strings.ToLower(query)

	var found []models.User
	for _, user := range m.users {
		if !user.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(user.Handle), lowered) ||
			strings.Contains(strings.ToLower(user.DisplayName), lowered) {
			found = append(found, user)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Handle < found[j].Handle })
	if uint64(len(found)) > limit {
		found = found[:limit]
	}

	return found, nil
}

func (m *Memory) UpdateProfile(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[user.UserID]
	if !ok {
		return models.User{}, ErrNoUserWasFound
	}

	stored.DisplayName = user.DisplayName
	stored.Bio = user.Bio
	stored.AvatarURL = user.AvatarURL
	stored.PrivacyTier = user.PrivacyTier
	stored.UpdatedAt = time.Now()
	m.users[user.UserID] = stored

	return stored, nil
}

func (m *Memory) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrNoUserWasFound
	}

	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	m.users[userID] = user

	return nil
}

func (m *Memory) SetActive(_ context.Context, userID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrNoUserWasFound
	}

	user.IsActive = active
	user.UpdatedAt = time.Now()
	m.users[userID] = user

	return nil
}

func (m *Memory) SwapSessionRef(_ context.Context, userID int64, oldRef, newRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrSessionRefConflict
	}
	if user.SecureSessionRef != oldRef {
		return ErrSessionRefConflict
	}

	user.SecureSessionRef = newRef
	user.UpdatedAt = time.Now()
	m.users[userID] = user

	return nil
}

func (m *Memory) AppendLoginRecord(_ context.Context, userID int64, record models.LoginRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.loginHistory[userID], record)
	if len(history) > models.LoginHistoryCap {
		history = history[len(history)-models.LoginHistoryCap:]
	}
	m.loginHistory[userID] = history

	return nil
}

func (m *Memory) ListLoginHistory(_ context.Context, userID int64) ([]models.LoginRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.loginHistory[userID]
	out := make([]models.LoginRecord, len(history))
	copy(out, history)

	return out, nil
}

func (m *Memory) AppendSignedEvent(_ context.Context, userID int64, ref models.SignedEventRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.signedEvents[userID] = append(m.signedEvents[userID], ref)

	return nil
}

// SignedEvents returns the stored signature references of the user. Test
// helper; the SQL implementation exposes the same data via its own queries.
func (m *Memory) SignedEvents(userID int64) []models.SignedEventRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.SignedEventRef, len(m.signedEvents[userID]))
	copy(out, m.signedEvents[userID])

	return out
}

func (m *Memory) CreateRequest(_ context.Context, request models.PendingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := [2]int64{request.FromID, request.ToID}
	if _, exists := m.requests[key]; exists {
		return ErrRequestAlreadyExists
	}
	m.requests[key] = request

	return nil
}

func (m *Memory) FindRequest(_ context.Context, fromID, toID int64) (models.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	request, ok := m.requests[[2]int64{fromID, toID}]
	if !ok {
		return models.PendingRequest{}, ErrRequestNotFound
	}

	return request, nil
}

func (m *Memory) DeleteRequest(_ context.Context, fromID, toID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := [2]int64{fromID, toID}
	if _, ok := m.requests[key]; !ok {
		return ErrRequestNotFound
	}
	delete(m.requests, key)

	return nil
}

func (m *Memory) ListIncomingRequests(_ context.Context, userID int64) ([]models.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var requests []models.PendingRequest
	for key, request := range m.requests {
		if key[1] == userID {
			requests = append(requests, request)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].SentAt.After(requests[j].SentAt) })

	return requests, nil
}

func (m *Memory) ListOutgoingRequests(_ context.Context, userID int64) ([]models.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var requests []models.PendingRequest
	for key, request := range m.requests {
		if key[0] == userID {
			requests = append(requests, request)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].SentAt.After(requests[j].SentAt) })

	return requests, nil
}

func (m *Memory) CreateMirroredRelationship(_ context.Context, userA, userB int64, channelRef models.ChannelRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	low, high := orderPair(userA, userB)
	if _, exists := m.relationships[[2]int64{low, high}]; exists {
		return ErrAlreadyRelated
	}
	if _, exists := m.relationships[[2]int64{high, low}]; exists {
		return ErrAlreadyRelated
	}

	now := time.Now()
	m.relationships[[2]int64{low, high}] = models.RelationshipEntry{
		UserID: low, CounterpartyID: high, Status: models.RelationshipAccepted,
		EstablishedAt: now, ChannelRef: channelRef.ID,
	}
	m.relationships[[2]int64{high, low}] = models.RelationshipEntry{
		UserID: high, CounterpartyID: low, Status: models.RelationshipAccepted,
		EstablishedAt: now, ChannelRef: channelRef.ID,
	}

	delete(m.requests, [2]int64{low, high})
	delete(m.requests, [2]int64{high, low})

	return nil
}

func (m *Memory) DeleteMirroredRelationship(_ context.Context, userA, userB int64) (models.ChannelRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	low, high := orderPair(userA, userB)
	entry, ok := m.relationships[[2]int64{low, high}]
	if !ok {
		entry, ok = m.relationships[[2]int64{high, low}]
		if !ok {
			return models.ChannelRef{}, ErrRelationshipNotFound
		}
	}

	delete(m.relationships, [2]int64{low, high})
	delete(m.relationships, [2]int64{high, low})

	return models.ChannelRef{ID: entry.ChannelRef}, nil
}

func (m *Memory) FindRelationship(_ context.Context, userID, counterpartyID int64) (models.RelationshipEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.relationships[[2]int64{userID, counterpartyID}]
	if !ok {
		return models.RelationshipEntry{}, ErrRelationshipNotFound
	}

	return entry, nil
}

func (m *Memory) ListRelationships(_ context.Context, userID int64) ([]models.RelationshipEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []models.RelationshipEntry
	for key, entry := range m.relationships {
		if key[0] == userID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EstablishedAt.Before(entries[j].EstablishedAt) })

	return entries, nil
}

func (m *Memory) CreateBlock(_ context.Context, block models.BlockEntry) (models.ChannelRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	low, high := orderPair(block.OwnerID, block.UserID)

	var channel models.ChannelRef
	if entry, ok := m.relationships[[2]int64{low, high}]; ok {
		channel = models.ChannelRef{ID: entry.ChannelRef}
	}
	delete(m.relationships, [2]int64{low, high})
	delete(m.relationships, [2]int64{high, low})
	delete(m.requests, [2]int64{low, high})
	delete(m.requests, [2]int64{high, low})

	key := [2]int64{block.OwnerID, block.UserID}
	if _, exists := m.blocks[key]; !exists {
		m.blocks[key] = block
	}

	return channel, nil
}

func (m *Memory) DeleteBlock(_ context.Context, ownerID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := [2]int64{ownerID, userID}
	if _, ok := m.blocks[key]; !ok {
		return ErrBlockNotFound
	}
	delete(m.blocks, key)

	return nil
}

func (m *Memory) FindBlock(_ context.Context, ownerID, userID int64) (models.BlockEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, ok := m.blocks[[2]int64{ownerID, userID}]
	if !ok {
		return models.BlockEntry{}, ErrBlockNotFound
	}

	return block, nil
}

func (m *Memory) ListBlocks(_ context.Context, ownerID int64) ([]models.BlockEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var blocks []models.BlockEntry
	for key, block := range m.blocks {
		if key[0] == ownerID {
			blocks = append(blocks, block)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].BlockedAt.After(blocks[j].BlockedAt) })

	return blocks, nil
}

func (m *Memory) EnqueueRetirement(_ context.Context, ref models.ChannelRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.retirements[ref.ID]; !exists {
		m.retirements[ref.ID] = time.Now()
	}

	return nil
}

func (m *Memory) DequeueRetirements(_ context.Context, limit uint64) ([]models.ChannelRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type queued struct {
		id string
		at time.Time
	}
	var all []queued
	for id, at := range m.retirements {
		all = append(all, queued{id: id, at: at})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	var refs []models.ChannelRef
	for _, q := range all {
		if uint64(len(refs)) == limit {
			break
		}
		refs = append(refs, models.ChannelRef{ID: q.id})
	}

	return refs, nil
}

func (m *Memory) CompleteRetirement(_ context.Context, ref models.ChannelRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.retirements, ref.ID)

	return nil
}

func (m *Memory) FindOneSidedMirrors(_ context.Context, limit uint64) ([]models.RelationshipEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []models.RelationshipEntry
	for key, entry := range m.relationships {
		if entry.Status != models.RelationshipAccepted {
			continue
		}
		if _, ok := m.relationships[[2]int64{key[1], key[0]}]; !ok {
			entries = append(entries, entry)
		}
		if uint64(len(entries)) == limit {
			break
		}
	}

	return entries, nil
}

func (m *Memory) DeleteOneSidedEntry(_ context.Context, entry models.RelationshipEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.relationships, [2]int64{entry.UserID, entry.CounterpartyID})

	return nil
}
