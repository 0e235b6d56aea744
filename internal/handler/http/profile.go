// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qlink/internal/logger"
	"qlink/internal/utils"
)

// defaultSearchLimit bounds a search when the client does not pass one.
const defaultSearchLimit = 25

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	query := r.URL.Query().Get("q")

	limit := uint64(defaultSearchLimit)
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.ParseUint(rawLimit, 10, 64)
		if err != nil || parsed == 0 {
			log.Error().Str("limit", rawLimit).Msg("invalid limit query parameter")
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	profiles, err := h.services.Visibility.SearchUsers(ctx, query, limit)
	if err != nil {
		log.Err(err).Msg("user search failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, profiles, http.StatusOK) //nolint:errcheck
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	viewerID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	targetID, err := pathID(r, "userID")
	if err != nil {
		log.Err(err).Msg("invalid user id in path")
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	profile, err := h.services.Visibility.VisibleProfile(ctx, viewerID, targetID)
	if err != nil {
		log.Err(err).Int64("target", targetID).Msg("profile lookup failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, profile, http.StatusOK) //nolint:errcheck
}

// pathID parses an int64 identifier out of a chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
