// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"encoding/json"
	"net/http"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/pkg/errutil"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Token    string `json:"token,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Response messages.
const (
	MsgLoginOK           = "Login successful"
	MsgInvalidLogin      = "Invalid username or password"
	MsgInactive          = "Account is not active"
	MsgCredentialsNeeded = "Username and password are required"
	MsgTempVerified      = "Temporary credentials verified"
	MsgInvalidTemp       = "Invalid temporary credentials"
	MsgUseNormalLogin    = "Account setup already completed. Please use the normal login."
	MsgAllFieldsRequired = "All fields are required"
	MsgWeakPassword      = "Password does not meet security requirements"
	MsgUsernameTaken     = "Username already taken"
	MsgUserNotFound      = "User not found"
	MsgAlreadySetUp      = "Account setup already completed"
	MsgSetupComplete     = "Account setup completed successfully"
	MsgTokenRequired     = "Token is required"
	MsgInvalidToken      = "Invalid token"
	MsgSessionExpired    = "Session expired"
	MsgUnauthorized      = "Unauthorized"
	MsgInviteFields      = "Full name, email, and role are required"
	MsgUserExists        = "User with this email already exists"
	MsgDomainNotAllowed  = "Email domain is not allowed"
	MsgNotDelivered      = "User created but failed to send invitation email"
	MsgInvited           = "User created and invitation email sent successfully"
	MsgEmailRequired     = "Email is required"
	MsgUserDeleted       = "User deleted successfully"
	MsgInvalidAction     = "Invalid action"
	MsgBadRequest        = "Invalid request"
	MsgMethodNotAllowed  = "Method not allowed"
	MsgServerError       = "Server error"
)

// outcome is how one error code renders for one action.
type outcome struct {
	status  int
	message string
}

// failures maps, per action, error codes to their response. Codes not
// listed fall back to the action's generic message with status 500.
var failures = map[string]map[string]outcome{
	ActionLogin: {
		auth.CodeMissingField:       {http.StatusBadRequest, MsgCredentialsNeeded},
		auth.CodeInvalidCredentials: {http.StatusUnauthorized, MsgInvalidLogin},
		auth.CodeInactiveAccount:    {http.StatusForbidden, MsgInactive},
	},
	ActionVerifyToken: {
		auth.CodeMissingField:   {http.StatusBadRequest, MsgTokenRequired},
		auth.CodeSessionInvalid: {http.StatusUnauthorized, MsgInvalidToken},
		auth.CodeSessionExpired: {http.StatusUnauthorized, MsgSessionExpired},
	},
	ActionVerifyTempLogin: {
		auth.CodeMissingField:       {http.StatusBadRequest, MsgCredentialsNeeded},
		auth.CodeInvalidCredentials: {http.StatusUnauthorized, MsgInvalidTemp},
		auth.CodeAlreadySetUp:       {http.StatusConflict, MsgUseNormalLogin},
	},
	ActionCompleteUserSetup: {
		auth.CodeMissingField:  {http.StatusBadRequest, MsgAllFieldsRequired},
		auth.CodeWeakPassword:  {http.StatusBadRequest, MsgWeakPassword},
		auth.CodeUsernameTaken: {http.StatusConflict, MsgUsernameTaken},
		auth.CodeUserNotFound:  {http.StatusNotFound, MsgUserNotFound},
		auth.CodeAlreadySetUp:  {http.StatusConflict, MsgAlreadySetUp},
	},
	ActionAddUser: {
		auth.CodeMissingField:     {http.StatusBadRequest, MsgInviteFields},
		auth.CodeUserExists:       {http.StatusConflict, MsgUserExists},
		auth.CodeDomainNotAllowed: {http.StatusForbidden, MsgDomainNotAllowed},
		auth.CodeNotDelivered:     {http.StatusBadGateway, MsgNotDelivered},
	},
	ActionDeleteUser: {
		auth.CodeMissingField: {http.StatusBadRequest, MsgEmailRequired},
		auth.CodeUserNotFound: {http.StatusNotFound, MsgUserNotFound},
	},
}

var genericFailures = map[string]string{
	ActionLogin:             "Login failed",
	ActionVerifyToken:       "Token verification failed",
	ActionVerifyTempLogin:   "Verification failed",
	ActionCompleteUserSetup: "Setup completion failed",
	ActionGetDashboardStats: "Failed to get dashboard stats",
	ActionGetUsers:          "Failed to get users",
	ActionAddUser:           "Failed to add user",
	ActionDeleteUser:        "Failed to delete user",
}

// resolve returns the response for err raised by action.
func resolve(action string, err error) outcome {
	if o, ok := failures[action][errutil.Code(err)]; ok {
		return o
	}
	msg, ok := genericFailures[action]
	if !ok {
		msg = MsgServerError
	}
	return outcome{http.StatusInternalServerError, msg}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(env)
}
