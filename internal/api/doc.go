// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package api serves the portal's single-endpoint JSON API.
//
// Every call carries an action parameter. The parameter bag is decoded once
// into a typed request, gated requests are checked against the session
// store, and the result is rendered as an Envelope. Errors never escape the
// handler: each one is mapped to a fixed message and HTTP status.
package api
