// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// It ensures that every response (Success or Error) across the entire application
// follows a strict, predictable JSON envelope structure. Sibling applications
// verifying tokens through the API parse these envelopes, so the shape is
// part of the public contract: successes carry `success:true`, failures carry
// `success:false` with a short machine code and a human message.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/ctxkey"
	"github.com/ohanahq/ohana/pkg/pagination"
)

// Fields is a free-form JSON object payload.
type Fields map[string]any

// ErrorEnvelope is the JSON envelope for failure responses.
type ErrorEnvelope struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// PaginatedEnvelope is the JSON envelope for paginated list responses.
type PaginatedEnvelope struct {
	Success bool            `json:"success"`
	Items   interface{}     `json:"items"`
	Meta    pagination.Meta `json:"meta"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// Success writes a 200 OK response with success:true merged into the fields.
func Success(writer http.ResponseWriter, fields Fields) {
	payload := Fields{constants.FieldSuccess: true}
	for key, value := range fields {
		payload[key] = value
	}
	JSON(writer, http.StatusOK, payload)
}

// OK writes a 200 OK response with the payload as-is. Used by the few
// endpoints whose contract does not carry the success flag (e.g. verify).
func OK(writer http.ResponseWriter, payload interface{}) {
	JSON(writer, http.StatusOK, payload)
}

// Paginated writes a 200 OK response with items and a metadata block.
func Paginated(writer http.ResponseWriter, items interface{}, metadata pagination.Meta) {
	JSON(writer, http.StatusOK, PaginatedEnvelope{Success: true, Items: items, Meta: metadata})
}

// Error converts any Go error into a standardized JSON API error response.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		// Unexpected internal error: log full details but hide them from the client for security.
		logger := getLoggerFromContext(request)
		logger.ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", getRequestIDFromContext(request)),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger := getLoggerFromContext(request)
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", getRequestIDFromContext(request)),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Success: false,
		Error:   appError.Code,
		Message: appError.Message,
		Details: appError.Details,
	})
}

// getLoggerFromContext extracts the per-request logger.
func getLoggerFromContext(request *http.Request) *slog.Logger {
	if logger, ok := request.Context().Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// getRequestIDFromContext extracts the X-Request-ID for log correlation.
func getRequestIDFromContext(request *http.Request) string {
	if id, ok := request.Context().Value(ctxkey.KeyRequestID).(string); ok {
		return id
	}
	return ""
}
