// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/splay/internal/auth"
	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/validation"
)

var (
	// ErrInvalidBody is returned when a request body is not the JSON the
	// endpoint expects.
	ErrInvalidBody = errors.New("request body must be a JSON object")

	// ErrInvalidTime is returned for a start or end parameter in neither
	// accepted layout.
	ErrInvalidTime = errors.New("invalid time parameter")
)

// writeServiceError maps an error from the service layer to its status code
// and envelope. Unknown errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	switch {
	case errors.Is(err, ErrInvalidBody), errors.Is(err, ErrInvalidTime):
		rw.BadRequest(err.Error())
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("The requested resource wasn't found.")
	case errors.Is(err, auth.ErrUnknownProvider):
		rw.NotFound(err.Error())
	case errors.Is(err, database.ErrConflict):
		rw.Error(http.StatusConflict, ErrCodeConflict, "A record with this value already exists.")
	case errors.Is(err, auth.ErrEmailTaken):
		rw.Error(http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, auth.ErrAccountLocked):
		rw.Error(http.StatusTooManyRequests, ErrCodeLocked, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "Failed to authenticate.")
	case auth.IsAuthError(err):
		rw.Unauthorized("The request requires valid authorization token.")
	case errors.Is(err, auth.ErrTokenNotFound), errors.Is(err, auth.ErrInvalidState):
		rw.BadRequest(err.Error())
	case errors.Is(err, auth.ErrOAuthExchange):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("OAuth exchange failed")
		rw.Error(http.StatusBadGateway, ErrCodeExternalService, "Failed to authenticate with the provider.")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("Request failed")
		rw.InternalError("Something went wrong while processing your request.")
	}
}

// AuthFailureHandler writes the 401 envelope for auth.Middleware.
func AuthFailureHandler(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, err)
}
