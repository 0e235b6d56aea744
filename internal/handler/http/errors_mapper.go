// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package http

import (
	"errors"
	"net/http"

	"qlink/internal/service"
	"qlink/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrInvalidCredentials:      http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrAccountDeactivated:      http.StatusForbidden,
	service.ErrNotFound:                http.StatusNotFound,
	service.ErrSelfReference:           http.StatusBadRequest,
	service.ErrBlocked:                 http.StatusConflict,
	service.ErrAlreadyRelated:          http.StatusConflict,
	service.ErrDuplicateRequest:        http.StatusConflict,
	service.ErrDuplicateIdentity:       http.StatusConflict,

	// The provider is an upstream dependency: its refusals surface as 502.
	service.ErrSessionProviderUnavailable: http.StatusBadGateway,

	store.ErrNoUserWasFound:       http.StatusNotFound,
	store.ErrRequestNotFound:      http.StatusNotFound,
	store.ErrRelationshipNotFound: http.StatusNotFound,
	store.ErrBlockNotFound:        http.StatusNotFound,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
