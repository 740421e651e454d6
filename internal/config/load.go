// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"net/url"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/portal/internal/xdg"
)

// flagKeyAnnotation links a flag to its config key.
const flagKeyAnnotation = "portal.config/key"

// Environment variables consulted when the matching URL is unset.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisURL    = "REDIS_URL"
)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// File is an explicit config file. Empty means the XDG default, if
	// present.
	File string
	// Flags are overlaid last. Only flags registered with BindFlags are
	// read.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// BindFlags registers the config override flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	bind := func(name, key string) {
		//nolint:errcheck // the flag was registered just above
		fs.SetAnnotation(name, flagKeyAnnotation, []string{key})
	}

	fs.String("log-format", d.Log.Format, "log format (json or text)")
	bind("log-format", "log.format")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	bind("log-level", "log.level")
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	bind("http-addr", "http.addr")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address (empty disables)")
	bind("metrics-addr", "metrics.addr")
	fs.String("store-driver", d.Store.Driver, "user store (postgres or memory)")
	bind("store-driver", "store.driver")
	fs.String("store-url", d.Store.URL, "PostgreSQL connection URL")
	bind("store-url", "store.url")
	fs.Bool("auto-migrate", d.Store.AutoMigrate, "apply pending migrations on startup")
	bind("auto-migrate", "store.auto_migrate")
	fs.String("sessions-backend", d.Sessions.Backend, "session storage (store or redis)")
	bind("sessions-backend", "sessions.backend")
	fs.Duration("session-timeout", d.Sessions.Timeout, "session lifetime")
	bind("session-timeout", "sessions.timeout")
	fs.String("redis-url", d.Redis.URL, "Redis URL for the redis session backend")
	bind("redis-url", "redis.url")
	fs.String("mail-driver", d.Mail.Driver, "mail delivery (smtp or log)")
	bind("mail-driver", "mail.driver")
	fs.String("admin-email", d.Auth.AdminEmail, "default administrator email")
	bind("admin-email", "auth.admin_email")
	fs.Bool("bootstrap-admin", d.Auth.BootstrapAdmin, "create the default administrator on startup")
	bind("bootstrap-admin", "auth.bootstrap_admin")
	fs.Bool("legacy-plaintext", d.Auth.LegacyPlaintext, "accept plaintext passwords stored by hand")
	bind("legacy-plaintext", "auth.legacy_plaintext")
}

// Load reads defaults, the YAML file and flags, in that order. The file is
// checked against the config schema before it is merged. The result is
// not validated; call Validate.
func Load(opts LoadOptions) (*Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	k := koanf.New(".")

	path := opts.File
	if path == "" {
		path = xdg.DefaultConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			keys := f.Annotations[flagKeyAnnotation]
			if len(keys) == 0 {
				return "", nil
			}
			return keys[0], posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	if cfg.Store.URL == "" {
		cfg.Store.URL = getenv(EnvDatabaseURL)
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = getenv(EnvRedisURL)
	}
	return &cfg, nil
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "********"
	}
	return u.Redacted()
}
