// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads and validates portal configuration.
package config

import (
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/portal/internal/auth"
	"github.com/holomush/portal/internal/logging"
)

// Config is the complete portal configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" json:"log,omitempty" yaml:"log"`
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" yaml:"metrics"`
	Store    StoreConfig    `koanf:"store" json:"store,omitempty" yaml:"store"`
	Sessions SessionsConfig `koanf:"sessions" json:"sessions,omitempty" yaml:"sessions"`
	Redis    RedisConfig    `koanf:"redis" json:"redis,omitempty" yaml:"redis"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	Mail     MailConfig     `koanf:"mail" json:"mail,omitempty" yaml:"mail"`
	Invite   InviteConfig   `koanf:"invite" json:"invite,omitempty" yaml:"invite"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=API listen address"`
	Path string `koanf:"path" json:"path,omitempty" yaml:"path" jsonschema:"pattern=^/"`
}

// MetricsConfig controls the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
}

// StoreConfig selects the user store.
type StoreConfig struct {
	Driver         string        `koanf:"driver" json:"driver,omitempty" yaml:"driver" jsonschema:"enum=postgres,enum=memory"`
	URL            string        `koanf:"url" json:"url,omitempty" yaml:"url" jsonschema:"description=PostgreSQL connection URL; DATABASE_URL when unset"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout,omitempty" yaml:"connect_timeout"`
	AutoMigrate    bool          `koanf:"auto_migrate" json:"auto_migrate,omitempty" yaml:"auto_migrate" jsonschema:"description=Apply pending migrations on serve"`
}

// SessionsConfig controls session lifetime and storage.
type SessionsConfig struct {
	Backend       string        `koanf:"backend" json:"backend,omitempty" yaml:"backend" jsonschema:"enum=store,enum=redis"`
	Timeout       time.Duration `koanf:"timeout" json:"timeout,omitempty" yaml:"timeout"`
	SweepInterval time.Duration `koanf:"sweep_interval" json:"sweep_interval,omitempty" yaml:"sweep_interval"`
	SweepOnCreate bool          `koanf:"sweep_on_create" json:"sweep_on_create,omitempty" yaml:"sweep_on_create"`
}

// RedisConfig configures the redis session backend.
type RedisConfig struct {
	URL    string `koanf:"url" json:"url,omitempty" yaml:"url" jsonschema:"description=Redis URL; REDIS_URL when unset"`
	Prefix string `koanf:"prefix" json:"prefix,omitempty" yaml:"prefix"`
}

// AuthConfig configures credentials handling and the default admin.
type AuthConfig struct {
	AdminEmail      string `koanf:"admin_email" json:"admin_email,omitempty" yaml:"admin_email"`
	AdminUsername   string `koanf:"admin_username" json:"admin_username,omitempty" yaml:"admin_username"`
	BootstrapAdmin  bool   `koanf:"bootstrap_admin" json:"bootstrap_admin,omitempty" yaml:"bootstrap_admin"`
	LegacyPlaintext bool   `koanf:"legacy_plaintext" json:"legacy_plaintext,omitempty" yaml:"legacy_plaintext"`
}

// MailConfig configures outbound email.
type MailConfig struct {
	Driver   string     `koanf:"driver" json:"driver,omitempty" yaml:"driver" jsonschema:"enum=smtp,enum=log"`
	From     string     `koanf:"from" json:"from,omitempty" yaml:"from"`
	OrgName  string     `koanf:"org_name" json:"org_name,omitempty" yaml:"org_name"`
	SetupURL string     `koanf:"setup_url" json:"setup_url,omitempty" yaml:"setup_url"`
	SMTP     SMTPConfig `koanf:"smtp" json:"smtp,omitempty" yaml:"smtp"`
}

// SMTPConfig is the relay used when mail.driver is smtp.
type SMTPConfig struct {
	Host     string `koanf:"host" json:"host,omitempty" yaml:"host"`
	Port     int    `koanf:"port" json:"port,omitempty" yaml:"port" jsonschema:"minimum=1,maximum=65535"`
	Username string `koanf:"username" json:"username,omitempty" yaml:"username"`
	Password string `koanf:"password" json:"password,omitempty" yaml:"password"`
}

// InviteConfig configures invitations.
type InviteConfig struct {
	AllowedDomains       []string `koanf:"allowed_domains" json:"allowed_domains,omitempty" yaml:"allowed_domains"`
	UsernameSuffixLength int      `koanf:"username_suffix_length" json:"username_suffix_length,omitempty" yaml:"username_suffix_length"`
	PasswordLength       int      `koanf:"password_length" json:"password_length,omitempty" yaml:"password_length"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log:     LogConfig{Format: "json", Level: "info"},
		HTTP:    HTTPConfig{Addr: ":8080", Path: "/api"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Store:   StoreConfig{Driver: "postgres", ConnectTimeout: 30 * time.Second, AutoMigrate: true},
		Sessions: SessionsConfig{
			Backend:       "store",
			Timeout:       auth.DefaultSessionTimeout,
			SweepInterval: 15 * time.Minute,
			SweepOnCreate: true,
		},
		Redis: RedisConfig{Prefix: "portal:"},
		Auth:  AuthConfig{AdminUsername: "admin"},
		Mail: MailConfig{
			Driver:   "log",
			OrgName:  "Lightbox Digital",
			SetupURL: "[YOUR_USER_SETUP_URL]",
			SMTP:     SMTPConfig{Port: 587},
		},
		Invite: InviteConfig{
			UsernameSuffixLength: auth.MinUsernameSuffixLen,
			PasswordLength:       auth.MinTempPasswordLength,
		},
	}
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", "log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if len(c.HTTP.Path) == 0 || c.HTTP.Path[0] != '/' {
		return invalid("http.path", "http.path must start with /")
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.URL == "" {
			return invalid("store.url", "store.url (or DATABASE_URL) is required for the postgres driver")
		}
	case "memory":
	default:
		return invalid("store.driver", "store.driver must be postgres or memory, got %q", c.Store.Driver)
	}
	if c.Store.ConnectTimeout < 0 {
		return invalid("store.connect_timeout", "store.connect_timeout must not be negative")
	}

	switch c.Sessions.Backend {
	case "store":
	case "redis":
		if c.Redis.URL == "" {
			return invalid("redis.url", "redis.url (or REDIS_URL) is required for the redis session backend")
		}
	default:
		return invalid("sessions.backend", "sessions.backend must be store or redis, got %q", c.Sessions.Backend)
	}
	if c.Sessions.Timeout <= 0 {
		return invalid("sessions.timeout", "sessions.timeout must be positive")
	}
	if c.Sessions.SweepInterval < 0 {
		return invalid("sessions.sweep_interval", "sessions.sweep_interval must not be negative")
	}

	if c.Auth.BootstrapAdmin && c.Auth.AdminEmail == "" {
		return invalid("auth.admin_email", "auth.admin_email is required when auth.bootstrap_admin is set")
	}

	switch c.Mail.Driver {
	case "log":
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return invalid("mail.smtp.host", "mail.smtp.host is required for the smtp driver")
		}
		if c.Mail.From == "" {
			return invalid("mail.from", "mail.from is required for the smtp driver")
		}
	default:
		return invalid("mail.driver", "mail.driver must be smtp or log, got %q", c.Mail.Driver)
	}
	if c.Mail.SMTP.Port < 0 || c.Mail.SMTP.Port > 65535 {
		return invalid("mail.smtp.port", "mail.smtp.port out of range: %d", c.Mail.SMTP.Port)
	}

	if c.Invite.UsernameSuffixLength < auth.MinUsernameSuffixLen {
		return invalid("invite.username_suffix_length", "invite.username_suffix_length must be at least %d", auth.MinUsernameSuffixLen)
	}
	if c.Invite.PasswordLength < auth.MinTempPasswordLength {
		return invalid("invite.password_length", "invite.password_length must be at least %d", auth.MinTempPasswordLength)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	const mask = "********"
	if c.Mail.SMTP.Password != "" {
		c.Mail.SMTP.Password = mask
	}
	c.Store.URL = redactURL(c.Store.URL)
	c.Redis.URL = redactURL(c.Redis.URL)
	return c
}
