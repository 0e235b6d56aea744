// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"encoding/json"
	"net/http"

	"qlink/internal/logger"
	"qlink/internal/utils"
)

// blockRequestBody carries a block placement.
type blockRequestBody struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

func (h *Handler) listBlocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	blocks, err := h.services.Relationships.Blocks(ctx, userID)
	if err != nil {
		log.Err(err).Msg("listing blocks failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, blocks, http.StatusOK) //nolint:errcheck
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var body blockRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.Relationships.Block(ctx, userID, body.UserID, body.Reason); err != nil {
		log.Err(err).Int64("target", body.UserID).Msg("placing block failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
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

	if err = h.services.Relationships.Unblock(ctx, userID, targetID); err != nil {
		log.Err(err).Int64("target", targetID).Msg("removing block failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
