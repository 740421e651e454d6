// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/portal/internal/api"
	"github.com/holomush/portal/internal/auth"
	authpg "github.com/holomush/portal/internal/auth/postgres"
	"github.com/holomush/portal/internal/mail"
	"github.com/holomush/portal/internal/store"
)

// capturingComposer records every notice before rendering it.
type capturingComposer struct {
	mu      sync.Mutex
	inner   auth.InviteComposer
	notices []auth.InviteNotice
}

func (c *capturingComposer) ComposeInvite(n auth.InviteNotice) (string, string, error) {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
	return c.inner.ComposeInvite(n)
}

func (c *capturingComposer) last() auth.InviteNotice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notices[len(c.notices)-1]
}

type portalEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container testcontainers.Container
	pool      *pgxpool.Pool
	server    *httptest.Server
	composer  *capturingComposer
	sessions  *auth.SessionStore
	adminPass string
}

func setupPortalEnv() (*portalEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	env := &portalEnv{ctx: ctx, cancel: cancel}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal_e2e"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		env.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	env.pool, err = store.Connect(ctx, connStr, store.DefaultRetryPolicy, nil)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	users := authpg.NewUserRepository(env.pool)
	env.sessions, err = auth.NewSessionStore(authpg.NewSessionRepository(env.pool))
	if err != nil {
		env.cleanup()
		return nil, err
	}
	hasher := auth.NewArgon2idHasher()

	authSvc, err := auth.NewAuthService(users, env.sessions, hasher)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	directory, err := auth.NewDirectory(users)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	outbox, err := mail.NewOutbox(mail.NewLogSender(nil), nil)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.composer = &capturingComposer{inner: mail.NewInvitationTemplate("Portal E2E", "https://portal.example.com/setup")}
	invites, err := auth.NewInvitationService(users, hasher, outbox, env.composer)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	env.adminPass, err = auth.NewBootstrap(users, env.sessions, hasher, nil).
		EnsureAdmin(ctx, auth.AdminConfig{Email: "admin@example.com"})
	if err != nil {
		env.cleanup()
		return nil, err
	}

	handler, err := api.NewHandler(authSvc, directory, invites)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle(api.DefaultPath, handler)
	env.server = httptest.NewServer(mux)
	return env, nil
}

func (e *portalEnv) cleanup() {
	if e.server != nil {
		e.server.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(context.Background())
	}
	e.cancel()
}

type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Token    string          `json:"token"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Data     json.RawMessage `json:"data"`
}

// call posts params as a form and decodes the envelope.
func (e *portalEnv) call(params map[string]string) (int, envelope) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	resp, err := http.Post(e.server.URL+api.DefaultPath, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var env envelope
	Expect(json.NewDecoder(resp.Body).Decode(&env)).To(Succeed())
	return resp.StatusCode, env
}

var _ = Describe("Portal account lifecycle", Ordered, func() {
	var (
		env        *portalEnv
		adminToken string
		invitee    auth.InviteNotice
	)

	BeforeAll(func() {
		var err error
		env, err = setupPortalEnv()
		Expect(err).NotTo(HaveOccurred())
		Expect(env.adminPass).To(HaveLen(auth.MinTempPasswordLength))
	})

	AfterAll(func() {
		if env != nil {
			env.cleanup()
		}
	})

	It("logs the bootstrap admin in", func() {
		status, resp := env.call(map[string]string{"action": "login", "username": "admin", "password": env.adminPass})
		Expect(status).To(Equal(http.StatusOK))
		Expect(resp.Success).To(BeTrue())
		Expect(resp.Token).To(HaveLen(36))
		adminToken = resp.Token

		status, resp = env.call(map[string]string{"action": "verifyToken", "token": adminToken})
		Expect(status).To(Equal(http.StatusOK))
		Expect(resp.Username).To(Equal("admin"))
	})

	It("rejects admin actions without a session", func() {
		status, resp := env.call(map[string]string{"action": "getUsers", "token": "bogus"})
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(resp.Success).To(BeFalse())
		Expect(resp.Message).To(Equal("Unauthorized"))
	})

	It("invites a user and mails temporary credentials", func() {
		status, resp := env.call(map[string]string{
			"action":     "addUser",
			"token":      adminToken,
			"fullName":   "Jane Doe",
			"email":      "Jane@Example.com",
			"role":       "editor",
			"department": "Ops",
		})
		Expect(status).To(Equal(http.StatusOK), resp.Message)
		Expect(resp.Success).To(BeTrue())

		invitee = env.composer.last()
		Expect(invitee.Email).To(Equal("jane@example.com"))
		Expect(invitee.Username).To(HavePrefix("jane_"))
		Expect(invitee.Password).To(HaveLen(auth.MinTempPasswordLength))
	})

	It("refuses a second invitation for the same email", func() {
		status, resp := env.call(map[string]string{
			"action": "addUser", "token": adminToken,
			"fullName": "Jane Again", "email": "jane@example.com", "role": "editor",
		})
		Expect(status).To(Equal(http.StatusConflict))
		Expect(resp.Message).To(Equal("User with this email already exists"))
	})

	It("keeps pending users out of login", func() {
		status, resp := env.call(map[string]string{"action": "login", "username": invitee.Username, "password": invitee.Password})
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(resp.Message).To(Equal("Account is not active"))
	})

	It("completes first-login setup", func() {
		status, resp := env.call(map[string]string{"action": "verifyTempLogin", "username": invitee.Username, "password": invitee.Password})
		Expect(status).To(Equal(http.StatusOK), resp.Message)
		Expect(resp.Email).To(Equal("jane@example.com"))

		status, resp = env.call(map[string]string{
			"action":      "completeUserSetup",
			"email":       resp.Email,
			"newUsername": "jane",
			"newPassword": "Much-Better-Pass9",
		})
		Expect(status).To(Equal(http.StatusOK), resp.Message)

		status, resp = env.call(map[string]string{"action": "verifyTempLogin", "username": "jane", "password": "Much-Better-Pass9"})
		Expect(status).To(Equal(http.StatusConflict))
		Expect(resp.Success).To(BeFalse())
	})

	It("logs the activated user in", func() {
		status, resp := env.call(map[string]string{"action": "login", "username": "jane", "password": "Much-Better-Pass9"})
		Expect(status).To(Equal(http.StatusOK), resp.Message)
		Expect(resp.Token).NotTo(BeEmpty())
	})

	It("reports the roster to the admin", func() {
		status, resp := env.call(map[string]string{"action": "getDashboardStats", "token": adminToken})
		Expect(status).To(Equal(http.StatusOK))
		var stats auth.DashboardStats
		Expect(json.Unmarshal(resp.Data, &stats)).To(Succeed())
		Expect(stats).To(Equal(auth.DashboardStats{TotalUsers: 2, ActiveUsers: 2}))

		status, resp = env.call(map[string]string{"action": "getUsers", "token": adminToken})
		Expect(status).To(Equal(http.StatusOK))
		var users []auth.UserSummary
		Expect(json.Unmarshal(resp.Data, &users)).To(Succeed())
		Expect(users).To(HaveLen(2))
		Expect(string(resp.Data)).NotTo(ContainSubstring("password"))
	})

	It("deletes the user", func() {
		status, resp := env.call(map[string]string{"action": "deleteUser", "token": adminToken, "email": "jane@example.com"})
		Expect(status).To(Equal(http.StatusOK), resp.Message)

		status, _ = env.call(map[string]string{"action": "login", "username": "jane", "password": "Much-Better-Pass9"})
		Expect(status).To(Equal(http.StatusUnauthorized))

		status, resp = env.call(map[string]string{"action": "deleteUser", "token": adminToken, "email": "jane@example.com"})
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(resp.Message).To(Equal("User not found"))
	})

	It("sweeps nothing while sessions are live", func() {
		n, err := env.sessions.SweepExpired(env.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})
})
