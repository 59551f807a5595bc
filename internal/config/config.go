// Package config loads fundboard's configuration from an optional config
// file, FUNDBOARD_* environment variables and command-line flags.
package config

import (
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard/internal/badgerlog"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
	"maze.io/x/duration"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "FUNDBOARD"

// ConfigName is the config file name searched for, without extension.
const ConfigName = "fundboard"

// Defaults maps every config key to its default value.
var Defaults = map[string]interface{}{
	"listen":             ":8080",
	"db.driver":          store.SQLite,
	"db.dsn":             "fundboard.db",
	"history.path":       "history",
	"drafts.path":        "drafts.db",
	"cache.projects_ttl": "30s",
	"comments.rate":      2.0,
	"comments.burst":     5,
	"session.header":     "X-Fundboard-User",
	"log.level":          "warn",
}

// Raw is the configuration as read by viper, before validation.
type Raw struct {
	Listen string `mapstructure:"listen"`
	DB     struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	History struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"history"`
	Drafts struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"drafts"`
	Cache struct {
		ProjectsTTL string `mapstructure:"projects_ttl"`
	} `mapstructure:"cache"`
	Comments struct {
		Rate  float64 `mapstructure:"rate"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"comments"`
	Session struct {
		Header string `mapstructure:"header"`
	} `mapstructure:"session"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Config is the validated configuration.
type Config struct {
	Listen        string
	Store         store.Config
	HistoryPath   string
	DraftsPath    string
	ProjectsTTL   time.Duration
	CommentRate   rate.Limit
	CommentBurst  int
	SessionHeader string
	LogLevel      badgerlog.Level
}

// New creates a viper instance with the defaults, environment binding and
// config file search paths set up. A non-empty file overrides the search.
func New(file string) *viper.Viper {
	v := viper.New()

	for k, def := range Defaults {
		v.SetDefault(k, def)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/fundboard")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// BindFlags binds flags to config keys. Flag names use dashes where keys use
// dots, so --db-dsn sets db.dsn.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}

		key := strings.ReplaceAll(f.Name, "-", ".")
		if _, ok := Defaults[key]; !ok {
			return
		}

		err = errors.Wrapf(v.BindPFlag(key, f), "failed to bind flag --%s", f.Name)
	})

	return err
}

// Load reads the config file if there is one and validates the result. A
// missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var raw Raw
	if err := v.Unmarshal(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return raw.Validate()
}

// Validate parses and checks the raw values.
func (raw *Raw) Validate() (*Config, error) {
	cfg := Config{
		Listen:        raw.Listen,
		HistoryPath:   raw.History.Path,
		DraftsPath:    raw.Drafts.Path,
		CommentRate:   rate.Limit(raw.Comments.Rate),
		CommentBurst:  raw.Comments.Burst,
		SessionHeader: raw.Session.Header,
		Store: store.Config{
			Driver: strings.ToLower(raw.DB.Driver),
			DSN:    raw.DB.DSN,
		},
	}

	switch cfg.Store.Driver {
	case store.SQLite, store.Postgres:
	default:
		return nil, errors.Errorf("unknown db.driver %q", raw.DB.Driver)
	}

	if cfg.Store.DSN == "" {
		return nil, errors.New("db.dsn is empty")
	}

	ttl, err := ParseDuration(raw.Cache.ProjectsTTL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid cache.projects_ttl")
	}
	cfg.ProjectsTTL = ttl

	if raw.Comments.Rate <= 0 {
		cfg.CommentRate = rate.Inf
	}
	if cfg.CommentBurst < 1 {
		cfg.CommentBurst = 1
	}

	if cfg.SessionHeader == "" {
		return nil, errors.New("session.header is empty")
	}

	cfg.LogLevel, err = badgerlog.ParseLevel(raw.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log.level")
	}

	return &cfg, nil
}

// ParseDuration parses a duration that may use day, week and year units,
// such as "1d" or "2w3d". Negative durations are rejected.
func ParseDuration(s string) (time.Duration, error) {
	d, err := duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Errorf("duration %v is negative", d)
	}
	return time.Duration(d), nil
}
