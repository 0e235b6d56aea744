// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"qlink/internal/logger"
	"qlink/internal/service"
	"qlink/models"
)

// The mocks below implement the service interfaces with overridable function
// fields. Methods without an override return zero values so tests only wire
// what they assert on.

type mockAuthService struct {
	registerFn       func(ctx context.Context, user models.User, password string) (models.User, error)
	loginFn          func(ctx context.Context, identifier, password string, meta models.LoginRecord) (models.User, models.Token, models.SessionInfo, error)
	updateProfileFn  func(ctx context.Context, userID int64, profile models.User) (models.User, error)
	changePasswordFn func(ctx context.Context, userID int64, oldPassword, newPassword string) error
	deactivateFn     func(ctx context.Context, userID int64) error
	createTokenFn    func(ctx context.Context, user models.User) (models.Token, error)
	parseTokenFn     func(ctx context.Context, tokenString string) (models.Token, error)
}

func (m *mockAuthService) Register(ctx context.Context, user models.User, password string) (models.User, error) {
	if m.registerFn == nil {
		return user, nil
	}
	return m.registerFn(ctx, user, password)
}

func (m *mockAuthService) Login(ctx context.Context, identifier, password string, meta models.LoginRecord) (models.User, models.Token, models.SessionInfo, error) {
	if m.loginFn == nil {
		return models.User{}, models.Token{}, models.SessionInfo{}, nil
	}
	return m.loginFn(ctx, identifier, password, meta)
}

func (m *mockAuthService) UpdateProfile(ctx context.Context, userID int64, profile models.User) (models.User, error) {
	if m.updateProfileFn == nil {
		return profile, nil
	}
	return m.updateProfileFn(ctx, userID, profile)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if m.changePasswordFn == nil {
		return nil
	}
	return m.changePasswordFn(ctx, userID, oldPassword, newPassword)
}

func (m *mockAuthService) Deactivate(ctx context.Context, userID int64) error {
	if m.deactivateFn == nil {
		return nil
	}
	return m.deactivateFn(ctx, userID)
}

func (m *mockAuthService) CreateToken(ctx context.Context, user models.User) (models.Token, error) {
	if m.createTokenFn == nil {
		return models.Token{SignedString: "stub-token"}, nil
	}
	return m.createTokenFn(ctx, user)
}

func (m *mockAuthService) ParseToken(ctx context.Context, tokenString string) (models.Token, error) {
	if m.parseTokenFn == nil {
		return models.Token{
			RegisteredClaims: jwt.RegisteredClaims{ID: "sess-1"},
			UserID:           7,
		}, nil
	}
	return m.parseTokenFn(ctx, tokenString)
}

type mockRelationshipService struct {
	sendRequestFn    func(ctx context.Context, fromID, toID int64, message string) error
	acceptRequestFn  func(ctx context.Context, toID, fromID int64) (models.ChannelRef, error)
	declineRequestFn func(ctx context.Context, toID, fromID int64) error
	addFriendFn      func(ctx context.Context, userA, userB int64) (models.ChannelRef, error)
	removeFriendFn   func(ctx context.Context, userA, userB int64) error
	blockFn          func(ctx context.Context, ownerID, targetID int64, reason string) error
	unblockFn        func(ctx context.Context, ownerID, targetID int64) error
	friendsFn        func(ctx context.Context, userID int64) ([]models.RelationshipEntry, error)
	incomingFn       func(ctx context.Context, userID int64) ([]models.PendingRequest, error)
	outgoingFn       func(ctx context.Context, userID int64) ([]models.PendingRequest, error)
	blocksFn         func(ctx context.Context, userID int64) ([]models.BlockEntry, error)
}

func (m *mockRelationshipService) SendRequest(ctx context.Context, fromID, toID int64, message string) error {
	if m.sendRequestFn == nil {
		return nil
	}
	return m.sendRequestFn(ctx, fromID, toID, message)
}

func (m *mockRelationshipService) AcceptRequest(ctx context.Context, toID, fromID int64) (models.ChannelRef, error) {
	if m.acceptRequestFn == nil {
		return models.ChannelRef{}, nil
	}
	return m.acceptRequestFn(ctx, toID, fromID)
}

func (m *mockRelationshipService) DeclineRequest(ctx context.Context, toID, fromID int64) error {
	if m.declineRequestFn == nil {
		return nil
	}
	return m.declineRequestFn(ctx, toID, fromID)
}

func (m *mockRelationshipService) AddFriend(ctx context.Context, userA, userB int64) (models.ChannelRef, error) {
	if m.addFriendFn == nil {
		return models.ChannelRef{}, nil
	}
	return m.addFriendFn(ctx, userA, userB)
}

func (m *mockRelationshipService) RemoveFriend(ctx context.Context, userA, userB int64) error {
	if m.removeFriendFn == nil {
		return nil
	}
	return m.removeFriendFn(ctx, userA, userB)
}

func (m *mockRelationshipService) Block(ctx context.Context, ownerID, targetID int64, reason string) error {
	if m.blockFn == nil {
		return nil
	}
	return m.blockFn(ctx, ownerID, targetID, reason)
}

func (m *mockRelationshipService) Unblock(ctx context.Context, ownerID, targetID int64) error {
	if m.unblockFn == nil {
		return nil
	}
	return m.unblockFn(ctx, ownerID, targetID)
}

func (m *mockRelationshipService) Friends(ctx context.Context, userID int64) ([]models.RelationshipEntry, error) {
	if m.friendsFn == nil {
		return nil, nil
	}
	return m.friendsFn(ctx, userID)
}

func (m *mockRelationshipService) IncomingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error) {
	if m.incomingFn == nil {
		return nil, nil
	}
	return m.incomingFn(ctx, userID)
}

func (m *mockRelationshipService) OutgoingRequests(ctx context.Context, userID int64) ([]models.PendingRequest, error) {
	if m.outgoingFn == nil {
		return nil, nil
	}
	return m.outgoingFn(ctx, userID)
}

func (m *mockRelationshipService) Blocks(ctx context.Context, userID int64) ([]models.BlockEntry, error) {
	if m.blocksFn == nil {
		return nil, nil
	}
	return m.blocksFn(ctx, userID)
}

type mockVisibilityService struct {
	canViewFn        func(ctx context.Context, viewerID, targetID int64) (bool, error)
	visibleProfileFn func(ctx context.Context, viewerID, targetID int64) (models.ProfileView, error)
	searchUsersFn    func(ctx context.Context, query string, limit uint64) ([]models.ProfileView, error)
}

func (m *mockVisibilityService) CanView(ctx context.Context, viewerID, targetID int64) (bool, error) {
	if m.canViewFn == nil {
		return false, nil
	}
	return m.canViewFn(ctx, viewerID, targetID)
}

func (m *mockVisibilityService) VisibleProfile(ctx context.Context, viewerID, targetID int64) (models.ProfileView, error) {
	if m.visibleProfileFn == nil {
		return models.ProfileView{}, nil
	}
	return m.visibleProfileFn(ctx, viewerID, targetID)
}

func (m *mockVisibilityService) SearchUsers(ctx context.Context, query string, limit uint64) ([]models.ProfileView, error) {
	if m.searchUsersFn == nil {
		return nil, nil
	}
	return m.searchUsersFn(ctx, query, limit)
}

type mockAuditService struct {
	recordLoginFn          func(ctx context.Context, userID int64, record models.LoginRecord) error
	recordSensitiveEventFn func(ctx context.Context, userID int64, eventType string, metadata []byte) (models.SignatureRef, error)
	loginHistoryFn         func(ctx context.Context, userID int64) ([]models.LoginRecord, error)
}

func (m *mockAuditService) RecordLogin(ctx context.Context, userID int64, record models.LoginRecord) error {
	if m.recordLoginFn == nil {
		return nil
	}
	return m.recordLoginFn(ctx, userID, record)
}

func (m *mockAuditService) RecordSensitiveEvent(ctx context.Context, userID int64, eventType string, metadata []byte) (models.SignatureRef, error) {
	if m.recordSensitiveEventFn == nil {
		return models.SignatureRef{}, nil
	}
	return m.recordSensitiveEventFn(ctx, userID, eventType, metadata)
}

func (m *mockAuditService) LoginHistory(ctx context.Context, userID int64) ([]models.LoginRecord, error) {
	if m.loginHistoryFn == nil {
		return nil, nil
	}
	return m.loginHistoryFn(ctx, userID)
}

// testServices bundles the mocks a test wires into the handler.
type testServices struct {
	auth          *mockAuthService
	relationships *mockRelationshipService
	visibility    *mockVisibilityService
	audit         *mockAuditService
}

func newTestHandler(t *testing.T, mocks testServices) *Handler {
	t.Helper()

	if mocks.auth == nil {
		mocks.auth = &mockAuthService{}
	}
	if mocks.relationships == nil {
		mocks.relationships = &mockRelationshipService{}
	}
	if mocks.visibility == nil {
		mocks.visibility = &mockVisibilityService{}
	}
	if mocks.audit == nil {
		mocks.audit = &mockAuditService{}
	}

	svcs := &service.Services{
		Auth:          mocks.auth,
		Relationships: mocks.relationships,
		Visibility:    mocks.visibility,
		Audit:         mocks.audit,
	}
	return NewHandler(svcs, logger.Nop())
}

// serve runs a request through the fully initialized router and returns the
// recorded response. A non-empty token is attached as a bearer header.
func serve(t *testing.T, h *Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(method, target, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()

	h.Init().ServeHTTP(w, r)
	return w
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func TestNewHandler(t *testing.T) {
	h := newTestHandler(t, testServices{})
	if h.services == nil {
		t.Fatal("handler must keep the services it was constructed with")
	}
}
