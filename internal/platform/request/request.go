// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/ctxutil"
	"github.com/ohanahq/ohana/internal/platform/sec"
	"github.com/ohanahq/ohana/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
ID64 retrieves a named URL parameter and parses it as an int64 user ID.

Returns:
  - int64: the parsed identifier
  - error: apperr.ValidationError if the parameter is not a positive integer
*/
func ID64(request *http.Request, name string) (int64, error) {
	raw := chi.URLParam(request, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, validate.RequiredError(name, "Must be a positive integer ID")
	}
	return id, nil
}

/*
BearerToken extracts the token from an "Authorization: Bearer ..." header.

Returns an empty string when the header is absent or uses a different scheme.
*/
func BearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

/*
Identity extracts the resolved caller from the request context.

Returns nil if the request is not authenticated.
*/
func Identity(request *http.Request) *sec.Identity {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredIdentity ensures the request is authenticated and returns the caller.

Returns:
  - *sec.Identity: The resolved caller
  - error: apperr.Unauthenticated if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {

	// Get the resolved identity
	identity := ctxutil.GetIdentity(request.Context())

	// If the request is not authenticated, return an error
	if identity == nil {
		return nil, apperr.Unauthenticated("Authentication required")
	}

	return identity, nil
}

/*
RequiredUserID returns the user ID of the currently authenticated caller.

Returns:
  - int64: User ID
  - error: apperr.Unauthenticated if not authenticated
*/
func RequiredUserID(request *http.Request) (int64, error) {

	// Get the resolved identity
	identity, err := RequiredIdentity(request)

	// If the request is not authenticated, return an error
	if err != nil {
		return 0, err
	}

	return identity.UserID, nil
}
