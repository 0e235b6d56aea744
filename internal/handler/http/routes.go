// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/auth/register", h.register)
		r.Post("/api/auth/login", h.login)
	})

	// routes with authorization
	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Get("/api/users/search", h.searchUsers)
		r.Get("/api/users/{userID}", h.getProfile)

		r.Get("/api/friends", h.listFriends)
		r.Delete("/api/friends/{userID}", h.removeFriend)

		r.Post("/api/friends/requests", h.sendRequest)
		r.Get("/api/friends/requests", h.listIncomingRequests)
		r.Get("/api/friends/requests/outgoing", h.listOutgoingRequests)
		r.Post("/api/friends/requests/{fromID}/accept", h.acceptRequest)
		r.Post("/api/friends/requests/{fromID}/decline", h.declineRequest)

		r.Get("/api/blocks", h.listBlocks)
		r.Post("/api/blocks", h.block)
		r.Delete("/api/blocks/{userID}", h.unblock)

		r.Post("/api/account/profile", h.updateProfile)
		r.Post("/api/account/password", h.changePassword)
		r.Post("/api/account/deactivate", h.deactivate)
		r.Get("/api/account/logins", h.loginHistory)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
