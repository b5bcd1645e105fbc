// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"

	"github.com/holomush/gatehouse/pkg/errutil"
)

// Client-facing error codes. Unknown accounts and wrong passwords share
// ErrCodeInvalidPassword.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidPassword = "INVALID_PASSWORD"
	ErrCodeAccountExists   = "ACCOUNT_EXISTS"
	ErrCodeNameTaken       = "NAME_TAKEN"
	ErrCodeNotOwned        = "NOT_OWNED"
	ErrCodeUpdateConflict  = "UPDATE_CONFLICT"
	ErrCodeInternal        = "INTERNAL"
)

// errorResponse is the JSON body of a failed request on the JSON routes.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// clientError is how a workflow failure is presented to the client.
type clientError struct {
	status  int
	code    string
	message string
}

func (c clientError) internal() bool {
	return c.status >= http.StatusInternalServerError
}

// classify maps a workflow error to its HTTP status and client code.
// Infrastructure failures collapse to 500 so internals never leak.
func classify(err error) clientError {
	switch errutil.Code(err) {
	case "AUTH_INVALID_INPUT", "CHARACTER_INVALID_NAME", "CHARACTER_INVALID_SEX":
		return clientError{http.StatusBadRequest, ErrCodeInvalidInput, err.Error()}
	case "AUTH_ACCOUNT_NOT_FOUND", "AUTH_INVALID_PASSWORD":
		return clientError{http.StatusUnauthorized, ErrCodeInvalidPassword, "invalid account or password"}
	case "AUTH_ACCOUNT_EXISTS":
		return clientError{http.StatusConflict, ErrCodeAccountExists, "account already exists"}
	case "CHARACTER_NAME_TAKEN":
		return clientError{http.StatusConflict, ErrCodeNameTaken, "character name is already taken"}
	case "CHARACTER_NOT_OWNED":
		return clientError{http.StatusForbidden, ErrCodeNotOwned, "character is not owned by account"}
	case "CHARACTER_UPDATE_CONFLICT":
		return clientError{http.StatusConflict, ErrCodeUpdateConflict, "character was modified concurrently, try again"}
	default:
		return clientError{http.StatusInternalServerError, ErrCodeInternal, "internal error"}
	}
}
