// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"qlink/internal/logger"
	"qlink/internal/service"
	"qlink/internal/utils"
	"qlink/models"
)

// changePasswordRequest carries a password change. Both values travel only
// in the request body.
type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var profile models.User
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	updated, err := h.services.Auth.UpdateProfile(ctx, userID, profile)
	if err != nil {
		log.Err(err).Msg("updating profile failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, updated, http.StatusOK) //nolint:errcheck
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var request changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	err := h.services.Auth.ChangePassword(ctx, userID, request.OldPassword, request.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDataProvided):
			log.Err(err).Msg("invalid data provided")
			http.Error(w, "invalid data provided", http.StatusBadRequest)
			return
		case errors.Is(err, service.ErrInvalidCredentials):
			log.Err(err).Msg("old password mismatch")
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		case errors.Is(err, service.ErrSessionProviderUnavailable):
			log.Err(err).Msg("session provider unavailable")
			http.Error(w, "session provider unavailable", http.StatusBadGateway)
			return
		default:
			log.Err(err).Msg("unexpected error occurred during password change")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := h.services.Auth.Deactivate(ctx, userID); err != nil {
		log.Err(err).Msg("account deactivation failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loginHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	history, err := h.services.Audit.LoginHistory(ctx, userID)
	if err != nil {
		log.Err(err).Msg("reading login history failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, history, http.StatusOK) //nolint:errcheck
}
