// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the user directory and session lifecycle of the
// admin portal.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a pending User with a normalized email
//   - NewSession - creates a Session with a validated token and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Account Lifecycle
//
// Invited users start pending with generated credentials. CompleteSetup
// replaces those credentials and moves the account to active; there is no
// way back to pending. Only active users may log in.
//
// # Services
//
//   - Service - login, temporary login, setup completion, token checks
//   - SessionStore - session creation, lazy expiry and sweeping
//   - InvitationService - pending user creation and invitation email
//   - Directory - roster listing, stats and deletion
//   - Bootstrap - default administrator seeding
//   - Sweeper - background removal of expired sessions
//
// Errors carry oops codes (see errors.go); repositories wrap ErrNotFound
// and ErrDuplicate so services can test with errors.Is.
package auth
