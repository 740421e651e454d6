// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/pkg/errutil"
)

// TracerName is the OpenTelemetry tracer used for API spans.
const TracerName = "portal/api"

// Authenticator is the login and session surface the API needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	VerifyTempLogin(ctx context.Context, username, password string) (string, error)
	CompleteSetup(ctx context.Context, email, newUsername, newPassword string) error
	VerifyToken(ctx context.Context, token string) (string, error)
	Authorize(ctx context.Context, token string) error
}

// Roster is the admin view of the user directory.
type Roster interface {
	List(ctx context.Context) ([]auth.UserSummary, error)
	Stats(ctx context.Context) (auth.DashboardStats, error)
	Delete(ctx context.Context, email string) error
}

// Inviter creates pending users.
type Inviter interface {
	Invite(ctx context.Context, inv auth.Invitation) (*auth.User, error)
}

// RequestObserver records per-request metrics.
type RequestObserver interface {
	ObserveRequest(action string, status int, elapsed time.Duration)
}

// Handler serves the API endpoint.
type Handler struct {
	auth     Authenticator
	roster   Roster
	inviter  Inviter
	observer RequestObserver
	tracer   trace.Tracer
	logger   *slog.Logger
	maxBody  int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver sets the metrics recorder.
func WithObserver(o RequestObserver) Option {
	return func(h *Handler) { h.observer = o }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) {
		if tp != nil {
			h.tracer = tp.Tracer(TracerName)
		}
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler creates a Handler.
func NewHandler(authn Authenticator, roster Roster, inviter Inviter, opts ...Option) (*Handler, error) {
	switch {
	case authn == nil:
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("authenticator is required")
	case roster == nil:
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("roster is required")
	case inviter == nil:
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("inviter is required")
	}
	h := &Handler{
		auth:    authn,
		roster:  roster,
		inviter: inviter,
		tracer:  otel.Tracer(TracerName),
		logger:  slog.Default(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP decodes, authorizes and dispatches one API call.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	action := "invalid"
	status := http.StatusOK

	defer func() {
		if p := recover(); p != nil {
			h.logger.ErrorContext(r.Context(), "api handler panic",
				"action", action,
				"panic", fmt.Sprint(p),
				"stack", string(debug.Stack()))
			status = http.StatusInternalServerError
			writeEnvelope(w, status, Envelope{Message: MsgServerError})
		}
		if h.observer != nil {
			h.observer.ObserveRequest(action, status, time.Since(start))
		}
	}()

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		status = http.StatusMethodNotAllowed
		writeEnvelope(w, status, Envelope{Message: MsgMethodNotAllowed})
		return
	}

	params, err := ParseParams(r, h.maxBody)
	if err != nil {
		h.logger.DebugContext(r.Context(), "malformed api request", "error", err)
		status = http.StatusBadRequest
		writeEnvelope(w, status, Envelope{Message: MsgBadRequest})
		return
	}

	req, err := Decode(params)
	if err != nil {
		status = http.StatusBadRequest
		writeEnvelope(w, status, Envelope{Message: MsgInvalidAction})
		return
	}
	action = req.Action()

	ctx, span := h.tracer.Start(r.Context(), "api."+action,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("portal.action", action)))
	defer span.End()

	var env Envelope
	status, env = h.handle(ctx, req)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, env.Message)
	}
	writeEnvelope(w, status, env)
}

func (h *Handler) handle(ctx context.Context, req Request) (int, Envelope) {
	if g, ok := req.(gatedRequest); ok {
		if err := h.auth.Authorize(ctx, g.sessionToken()); err != nil {
			return http.StatusUnauthorized, Envelope{Message: MsgUnauthorized}
		}
	}

	env, err := h.dispatch(ctx, req)
	if err != nil {
		return h.fail(ctx, req.Action(), err)
	}
	env.Success = true
	return http.StatusOK, env
}

func (h *Handler) dispatch(ctx context.Context, req Request) (Envelope, error) {
	switch req := req.(type) {
	case LoginRequest:
		session, err := h.auth.Login(ctx, req.Username, req.Password)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Token: session.Token, Message: MsgLoginOK}, nil

	case VerifyTokenRequest:
		username, err := h.auth.VerifyToken(ctx, req.Token)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Username: username}, nil

	case VerifyTempLoginRequest:
		email, err := h.auth.VerifyTempLogin(ctx, req.Username, req.Password)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Email: email, Message: MsgTempVerified}, nil

	case CompleteSetupRequest:
		if err := h.auth.CompleteSetup(ctx, req.Email, req.NewUsername, req.NewPassword); err != nil {
			return Envelope{}, err
		}
		return Envelope{Message: MsgSetupComplete}, nil

	case DashboardStatsRequest:
		stats, err := h.roster.Stats(ctx)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Data: stats}, nil

	case ListUsersRequest:
		users, err := h.roster.List(ctx)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Data: users}, nil

	case AddUserRequest:
		_, err := h.inviter.Invite(ctx, auth.Invitation{
			FullName:   req.FullName,
			Email:      req.Email,
			Role:       req.Role,
			Department: req.Department,
			Notes:      req.Notes,
		})
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Message: MsgInvited}, nil

	case DeleteUserRequest:
		if err := h.roster.Delete(ctx, req.Email); err != nil {
			return Envelope{}, err
		}
		return Envelope{Message: MsgUserDeleted}, nil
	}

	return Envelope{}, oops.Code(CodeInvalidAction).
		With("action", req.Action()).
		Errorf("no handler for request %T", req)
}

func (h *Handler) fail(ctx context.Context, action string, err error) (int, Envelope) {
	o := resolve(action, err)
	if o.status >= http.StatusInternalServerError {
		errutil.LogError(h.logger, "api request failed", err, "action", action)
		trace.SpanFromContext(ctx).RecordError(err)
	} else {
		h.logger.DebugContext(ctx, "api request rejected",
			"action", action,
			"code", errutil.Code(err),
			"status", o.status)
	}
	return o.status, Envelope{Message: o.message}
}
