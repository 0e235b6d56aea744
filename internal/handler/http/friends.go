// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"encoding/json"
	"net/http"

	"qlink/internal/logger"
	"qlink/internal/utils"
)

// sendRequestBody carries an outgoing friend request.
type sendRequestBody struct {
	ToID    int64  `json:"to_id"`
	Message string `json:"message"`
}

// channelResponse reports the secure channel backing a freshly established
// relationship.
type channelResponse struct {
	ChannelRef string `json:"channel_ref"`
}

func (h *Handler) listFriends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	friends, err := h.services.Relationships.Friends(ctx, userID)
	if err != nil {
		log.Err(err).Msg("listing friends failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, friends, http.StatusOK) //nolint:errcheck
}

func (h *Handler) removeFriend(w http.ResponseWriter, r *http.Request) {
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

	if err = h.services.Relationships.RemoveFriend(ctx, userID, targetID); err != nil {
		log.Err(err).Int64("target", targetID).Msg("removing friend failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.Relationships.SendRequest(ctx, userID, body.ToID, body.Message); err != nil {
		log.Err(err).Int64("target", body.ToID).Msg("sending friend request failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) listIncomingRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	requests, err := h.services.Relationships.IncomingRequests(ctx, userID)
	if err != nil {
		log.Err(err).Msg("listing incoming requests failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, requests, http.StatusOK) //nolint:errcheck
}

func (h *Handler) listOutgoingRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	requests, err := h.services.Relationships.OutgoingRequests(ctx, userID)
	if err != nil {
		log.Err(err).Msg("listing outgoing requests failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, requests, http.StatusOK) //nolint:errcheck
}

func (h *Handler) acceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	fromID, err := pathID(r, "fromID")
	if err != nil {
		log.Err(err).Msg("invalid user id in path")
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	channel, err := h.services.Relationships.AcceptRequest(ctx, userID, fromID)
	if err != nil {
		log.Err(err).Int64("from", fromID).Msg("accepting friend request failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	utils.WriteJSON(w, channelResponse{ChannelRef: channel.ID}, http.StatusCreated) //nolint:errcheck
}

func (h *Handler) declineRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		log.Error().Msg("no user id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	fromID, err := pathID(r, "fromID")
	if err != nil {
		log.Err(err).Msg("invalid user id in path")
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if err = h.services.Relationships.DeclineRequest(ctx, userID, fromID); err != nil {
		log.Err(err).Int64("from", fromID).Msg("declining friend request failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
