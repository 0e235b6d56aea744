// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package handler

import "errors"

// errNoHandlersAreCreated is returned by NewHandlers when the server
// configuration carries no listen address at all, so no transport handler
// can be initialized. This is a fatal misconfiguration.
var errNoHandlersAreCreated = errors.New("no handlers are created")
