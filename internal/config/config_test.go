package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.unix.lgbt/diamondburned/fundboard/internal/badgerlog"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, store.Config{Driver: store.SQLite, DSN: "fundboard.db"}, cfg.Store)
	assert.Equal(t, "history", cfg.HistoryPath)
	assert.Equal(t, "drafts.db", cfg.DraftsPath)
	assert.Equal(t, 30*time.Second, cfg.ProjectsTTL)
	assert.Equal(t, rate.Limit(2), cfg.CommentRate)
	assert.Equal(t, 5, cfg.CommentBurst)
	assert.Equal(t, "X-Fundboard-User", cfg.SessionHeader)
	assert.Equal(t, badgerlog.WarningLevel, cfg.LogLevel)
}

func TestLoadFileEnvFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fundboard.yaml")

	err := os.WriteFile(file, []byte(`
listen: ":9000"
db:
  dsn: "file.db"
cache:
  projects_ttl: "1d"
log:
  level: debug
`), 0600)
	require.NoError(t, err)

	t.Setenv("FUNDBOARD_DB_DSN", "env.db")
	t.Setenv("FUNDBOARD_COMMENTS_RATE", "0")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")
	flags.String("unrelated", "", "")
	require.NoError(t, flags.Parse([]string{"--listen", ":7000"}))

	v := New(file)
	require.NoError(t, BindFlags(v, flags))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Listen, "flags override the file")
	assert.Equal(t, "env.db", cfg.Store.DSN, "env overrides the file")
	assert.Equal(t, 24*time.Hour, cfg.ProjectsTTL)
	assert.Equal(t, rate.Inf, cfg.CommentRate, "a zero rate disables limiting")
	assert.Equal(t, badgerlog.DebugLevel, cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := func() Raw {
		var raw Raw
		raw.DB.Driver = "postgres"
		raw.DB.DSN = "postgres://localhost/fundboard"
		raw.Cache.ProjectsTTL = "1m"
		raw.Session.Header = "X-User"
		raw.Log.Level = "info"
		return raw
	}

	raw := valid()
	cfg, err := raw.Validate()
	require.NoError(t, err)
	assert.Equal(t, store.Postgres, cfg.Store.Driver)
	assert.Equal(t, 1, cfg.CommentBurst, "burst is at least 1")

	tests := []struct {
		name   string
		modify func(*Raw)
	}{
		{"driver", func(r *Raw) { r.DB.Driver = "mysql" }},
		{"dsn", func(r *Raw) { r.DB.DSN = "" }},
		{"ttl", func(r *Raw) { r.Cache.ProjectsTTL = "soon" }},
		{"header", func(r *Raw) { r.Session.Header = "" }},
		{"level", func(r *Raw) { r.Log.Level = "loud" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			raw := valid()
			test.modify(&raw)

			_, err := raw.Validate()
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("1w")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	_, err = ParseDuration("-1h")
	assert.Error(t, err)
}
