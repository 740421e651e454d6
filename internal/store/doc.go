// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL plumbing shared by the repositories:
// connection pools with startup retry and the embedded schema migrations.
package store
