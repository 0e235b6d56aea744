// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"qlink/internal/logger"
	"qlink/internal/service"
	"qlink/internal/utils"
	"qlink/models"
)

// registerRequest carries the registration payload. The password travels
// only in the request body and never appears in any response.
type registerRequest struct {
	models.User
	Password string `json:"password"`
}

// loginRequest carries the credentials of a login attempt. Identifier is a
// handle or an email address.
type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var request registerRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	registeredUser, err := h.services.Auth.Register(ctx, request.User, request.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDataProvided):
			log.Err(err).Msg("invalid data provided")
			http.Error(w, "invalid data provided", http.StatusBadRequest)
			return
		case errors.Is(err, service.ErrDuplicateIdentity):
			log.Err(err).Msg("handle or email already taken")
			http.Error(w, "handle or email already taken", http.StatusConflict)
			return
		case errors.Is(err, service.ErrSessionProviderUnavailable):
			log.Err(err).Msg("session provider unavailable")
			http.Error(w, "session provider unavailable", http.StatusBadGateway)
			return
		default:
			log.Err(err).Msg("unexpected error occurred during user registration")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	token, err := h.services.Auth.CreateToken(ctx, registeredUser)
	if err != nil {
		log.Err(err).Msg("creation of token failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", fmt.Sprintf("Bearer %s", token.SignedString))
	utils.WriteJSON(w, registeredUser, http.StatusOK) //nolint:errcheck
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	meta := models.LoginRecord{
		IP:        remoteIP(r),
		UserAgent: r.UserAgent(),
	}

	foundUser, token, session, err := h.services.Auth.Login(ctx, request.Identifier, request.Password, meta)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			log.Err(err).Msg("invalid credentials")
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		case errors.Is(err, service.ErrAccountDeactivated):
			log.Err(err).Msg("account is deactivated")
			http.Error(w, "account is deactivated", http.StatusForbidden)
			return
		case errors.Is(err, service.ErrSessionProviderUnavailable):
			log.Err(err).Msg("session provider unavailable")
			http.Error(w, "session provider unavailable", http.StatusBadGateway)
			return
		default:
			log.Err(err).Msg("unexpected error occurred during user login")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	log.Debug().Int64("id", foundUser.UserID).Str("session", session.ID).Msg("user successfully logged in")

	w.Header().Set("Authorization", fmt.Sprintf("Bearer %s", token.SignedString))
	utils.WriteJSON(w, foundUser, http.StatusOK) //nolint:errcheck
}

// remoteIP strips the port from the request's remote address. The raw
// address is kept when it carries no port.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
