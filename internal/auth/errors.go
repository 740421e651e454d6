// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write would violate a uniqueness
// constraint on email or username.
var ErrDuplicate = errors.New("duplicate")

// Error codes returned by the auth package. Callers match them with
// oops.AsOops(err).Code() or errutil.Code(err).
const (
	CodeMissingField       = "AUTH_MISSING_FIELD"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInactiveAccount    = "AUTH_INACTIVE_ACCOUNT"
	CodeAlreadySetUp       = "AUTH_ALREADY_SET_UP"
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeUserExists         = "AUTH_USER_EXISTS"
	CodeWeakPassword       = "AUTH_WEAK_PASSWORD"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeSessionInvalid     = "SESSION_INVALID"
	CodeNotDelivered       = "INVITE_NOT_DELIVERED"
	CodeDomainNotAllowed   = "INVITE_DOMAIN_NOT_ALLOWED"
)
