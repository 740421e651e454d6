// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/pkg/errutil"
)

func validConfig() Config {
	c := Default()
	c.Store.URL = "postgres://portal@localhost/portal"
	return c
}

func TestDefault_ValidOnceStoreURLSet(t *testing.T) {
	c := Default()
	err := c.Validate()
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "store.url")

	c = validConfig()
	assert.NoError(t, c.Validate())

	c = Default()
	c.Store.Driver = "memory"
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"http addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"http path", func(c *Config) { c.HTTP.Path = "api" }, "http.path"},
		{"store driver", func(c *Config) { c.Store.Driver = "sheets" }, "store.driver"},
		{"connect timeout", func(c *Config) { c.Store.ConnectTimeout = -time.Second }, "store.connect_timeout"},
		{"sessions backend", func(c *Config) { c.Sessions.Backend = "memcached" }, "sessions.backend"},
		{"redis url", func(c *Config) { c.Sessions.Backend = "redis" }, "redis.url"},
		{"session timeout", func(c *Config) { c.Sessions.Timeout = 0 }, "sessions.timeout"},
		{"sweep interval", func(c *Config) { c.Sessions.SweepInterval = -time.Minute }, "sessions.sweep_interval"},
		{"admin email", func(c *Config) { c.Auth.BootstrapAdmin = true }, "auth.admin_email"},
		{"mail driver", func(c *Config) { c.Mail.Driver = "pigeon" }, "mail.driver"},
		{"smtp host", func(c *Config) { c.Mail.Driver = "smtp"; c.Mail.From = "a@example.com" }, "mail.smtp.host"},
		{"mail from", func(c *Config) { c.Mail.Driver = "smtp"; c.Mail.SMTP.Host = "smtp.example.com" }, "mail.from"},
		{"smtp port", func(c *Config) { c.Mail.SMTP.Port = 70000 }, "mail.smtp.port"},
		{"suffix length", func(c *Config) { c.Invite.UsernameSuffixLength = 4 }, "invite.username_suffix_length"},
		{"password length", func(c *Config) { c.Invite.PasswordLength = 8 }, "invite.password_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}
}

func TestRedacted(t *testing.T) {
	c := validConfig()
	c.Store.URL = "postgres://portal:hunter2@db:5432/portal"
	c.Redis.URL = "redis://:s3cret@cache:6379/0"
	c.Mail.SMTP.Password = "relay-pass"

	r := c.Redacted()
	assert.NotContains(t, r.Store.URL, "hunter2")
	assert.Contains(t, r.Store.URL, "db:5432")
	assert.NotContains(t, r.Redis.URL, "s3cret")
	assert.Equal(t, "********", r.Mail.SMTP.Password)
	assert.Equal(t, "relay-pass", c.Mail.SMTP.Password, "original must be untouched")
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func noEnv(string) string { return "" }

func TestLoad_File(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeFile(t, `
log:
  level: debug
http:
  addr: ":7000"
store:
  driver: memory
sessions:
  timeout: 2h
  sweep_interval: 0s
mail:
  driver: smtp
  from: portal@example.com
  smtp:
    host: smtp.example.com
    port: 2525
invite:
  allowed_domains: ["example.com", "*.corp.example"]
`)

	cfg, err := Load(LoadOptions{File: path, Getenv: noEnv})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep defaults")
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "/api", cfg.HTTP.Path)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.Timeout)
	assert.Zero(t, cfg.Sessions.SweepInterval)
	assert.True(t, cfg.Sessions.SweepOnCreate)
	assert.Equal(t, 2525, cfg.Mail.SMTP.Port)
	assert.Equal(t, []string{"example.com", "*.corp.example"}, cfg.Invite.AllowedDomains)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := writeFile(t, "http:\n  addr: \":7000\"\nlog:\n  level: warn\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	fs.String("config", "", "not a config key")
	require.NoError(t, fs.Parse([]string{"--http-addr=:9999", "--session-timeout=30m", "--bootstrap-admin", "--config=ignored"}))

	cfg, err := Load(LoadOptions{File: path, Flags: fs, Getenv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Log.Level, "unchanged flags must not override the file")
	assert.Equal(t, 30*time.Minute, cfg.Sessions.Timeout)
	assert.True(t, cfg.Auth.BootstrapAdmin)
}

func TestLoad_EnvFallbacks(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	env := map[string]string{
		EnvDatabaseURL: "postgres://env@db/portal",
		EnvRedisURL:    "redis://cache:6379/1",
	}

	cfg, err := Load(LoadOptions{Getenv: func(k string) string { return env[k] }})
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/portal", cfg.Store.URL)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)

	path := writeFile(t, "store:\n  url: postgres://file@db/portal\n")
	cfg, err = Load(LoadOptions{File: path, Getenv: func(k string) string { return env[k] }})
	require.NoError(t, err)
	assert.Equal(t, "postgres://file@db/portal", cfg.Store.URL, "explicit setting wins over env")
}

func TestLoad_XDGDefault(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "portal"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "portal", "config.yaml"), []byte("http:\n  path: /portal\n"), 0o600))

	cfg, err := Load(LoadOptions{Getenv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, "/portal", cfg.HTTP.Path)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(LoadOptions{Getenv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "missing.yaml")})
	errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")

	_, err = Load(LoadOptions{File: writeFile(t, "htpp:\n  addr: :80\n")})
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")

	_, err = Load(LoadOptions{File: writeFile(t, "mail:\n  smtp:\n    port: lots\n")})
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")

	_, err = Load(LoadOptions{File: writeFile(t, "sessions:\n  timeout: forever\n")})
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")

	_, err = Load(LoadOptions{File: writeFile(t, "log: [unclosed\n")})
	errutil.AssertErrorCode(t, err, "CONFIG_PARSE_FAILED")
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, SchemaID, schema["$id"])
	assert.Equal(t, false, schema["additionalProperties"])

	props := schema["properties"].(map[string]any)
	for _, key := range []string{"log", "http", "metrics", "store", "sessions", "redis", "auth", "mail", "invite"} {
		assert.Contains(t, props, key)
	}

	sessions := props["sessions"].(map[string]any)["properties"].(map[string]any)
	timeout := sessions["timeout"].(map[string]any)
	assert.Equal(t, "string", timeout["type"])
	assert.Equal(t, durationPattern, timeout["pattern"])

	backend := sessions["backend"].(map[string]any)
	assert.ElementsMatch(t, []any{"store", "redis"}, backend["enum"])
}

func TestValidateYAML_Empty(t *testing.T) {
	assert.NoError(t, ValidateYAML(nil))
	assert.NoError(t, ValidateYAML([]byte("# nothing here\n")))
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, FormatSchemaError(nil))

	err := ValidateYAML([]byte("store:\n  driver: sheets\n"))
	require.Error(t, err)
	msg := FormatSchemaError(err)
	assert.NotEmpty(t, msg)
	assert.Contains(t, msg, "driver")
}
