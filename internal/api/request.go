// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import "github.com/samber/oops"

// Action names accepted in the action parameter.
const (
	ActionLogin             = "login"
	ActionVerifyToken       = "verifyToken"
	ActionVerifyTempLogin   = "verifyTempLogin"
	ActionCompleteUserSetup = "completeUserSetup"
	ActionGetDashboardStats = "getDashboardStats"
	ActionGetUsers          = "getUsers"
	ActionAddUser           = "addUser"
	ActionDeleteUser        = "deleteUser"
)

// CodeInvalidAction is returned by Decode for an unknown action.
const CodeInvalidAction = "API_INVALID_ACTION"

// Request is a decoded API call.
type Request interface {
	Action() string
}

// gatedRequest is a Request that needs a live session.
type gatedRequest interface {
	Request
	sessionToken() string
}

// Gate carries the session token of a privileged request.
type Gate struct {
	Token string
}

func (g Gate) sessionToken() string { return g.Token }

// LoginRequest authenticates an active user.
type LoginRequest struct {
	Username string
	Password string
}

// VerifyTokenRequest resolves a session token to its username.
type VerifyTokenRequest struct {
	Token string
}

// VerifyTempLoginRequest checks the temporary credentials of a pending user.
type VerifyTempLoginRequest struct {
	Username string
	Password string
}

// CompleteSetupRequest activates a pending user with permanent credentials.
type CompleteSetupRequest struct {
	Email       string
	NewUsername string
	NewPassword string
}

// DashboardStatsRequest counts users by status.
type DashboardStatsRequest struct {
	Gate
}

// ListUsersRequest lists every user.
type ListUsersRequest struct {
	Gate
}

// AddUserRequest invites a new user.
type AddUserRequest struct {
	Gate
	FullName   string
	Email      string
	Role       string
	Department string
	Notes      string
}

// DeleteUserRequest removes a user by email.
type DeleteUserRequest struct {
	Gate
	Email string
}

func (LoginRequest) Action() string           { return ActionLogin }
func (VerifyTokenRequest) Action() string     { return ActionVerifyToken }
func (VerifyTempLoginRequest) Action() string { return ActionVerifyTempLogin }
func (CompleteSetupRequest) Action() string   { return ActionCompleteUserSetup }
func (DashboardStatsRequest) Action() string  { return ActionGetDashboardStats }
func (ListUsersRequest) Action() string       { return ActionGetUsers }
func (AddUserRequest) Action() string         { return ActionAddUser }
func (DeleteUserRequest) Action() string      { return ActionDeleteUser }

type decoder func(Params) Request

var decoders = map[string]decoder{
	ActionLogin: func(p Params) Request {
		return LoginRequest{Username: p.Get("username"), Password: p.Get("password")}
	},
	ActionVerifyToken: func(p Params) Request {
		return VerifyTokenRequest{Token: p.Get("token")}
	},
	ActionVerifyTempLogin: func(p Params) Request {
		return VerifyTempLoginRequest{Username: p.Get("username"), Password: p.Get("password")}
	},
	ActionCompleteUserSetup: func(p Params) Request {
		return CompleteSetupRequest{
			Email:       p.Get("email"),
			NewUsername: p.Get("newUsername"),
			NewPassword: p.Get("newPassword"),
		}
	},
	ActionGetDashboardStats: func(p Params) Request {
		return DashboardStatsRequest{Gate: Gate{Token: p.Get("token")}}
	},
	ActionGetUsers: func(p Params) Request {
		return ListUsersRequest{Gate: Gate{Token: p.Get("token")}}
	},
	ActionAddUser: func(p Params) Request {
		return AddUserRequest{
			Gate:       Gate{Token: p.Get("token")},
			FullName:   p.Get("fullName"),
			Email:      p.Get("email"),
			Role:       p.Get("role"),
			Department: p.Get("department"),
			Notes:      p.Get("notes"),
		}
	},
	ActionDeleteUser: func(p Params) Request {
		return DeleteUserRequest{Gate: Gate{Token: p.Get("token")}, Email: p.Get("email")}
	},
}

// Decode turns a parameter bag into its typed request.
func Decode(p Params) (Request, error) {
	action := p.Get("action")
	dec, ok := decoders[action]
	if !ok {
		return nil, oops.Code(CodeInvalidAction).With("action", action).Errorf("invalid action")
	}
	return dec(p), nil
}
