package main

import (
	"context"
	"log"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/internal/badgerlog"
	"git.unix.lgbt/diamondburned/fundboard/internal/config"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// cfg is the validated configuration. It is loaded before any command runs.
var cfg *config.Config

var configFile string

var rootCmd = &cobra.Command{
	Use:   "fundboard",
	Short: "Crowdfunding board with funding charts and threaded comments",
	Long: `fundboard serves a crowdfunding board: a paginated feed of projects,
comments, donations and bids, plus project pages with a funding chart and
two-level comment threads.

Configuration is read from fundboard.yaml, FUNDBOARD_* environment variables
and the flags below, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v := config.New(configFile)

		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}

		c, err := config.Load(v)
		if err != nil {
			return err
		}

		cfg = c
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./fundboard.yaml)")
	flags.String("db-driver", store.SQLite, "database driver: sqlite or postgres")
	flags.String("db-dsn", "fundboard.db", "sqlite path or postgres connection string")
	flags.String("history-path", "history", "history database directory, empty for in-memory")
	flags.String("drafts-path", "drafts.db", "comment drafts database path")
	flags.String("log-level", "warn", "log level: none, error, warn, info or debug")
}

// openStore opens the relational store.
func openStore(ctx context.Context) (*store.Store, error) {
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open store")
	}
	return s, nil
}

// openHistory opens the history database with the configured log level.
func openHistory(readOnly bool) (*fundboard.History, error) {
	logger := badgerlog.NewLogger(log.Default(), cfg.LogLevel).WithPrefix("history")

	h, err := fundboard.OpenHistory(cfg.HistoryPath, fundboard.HistoryOpts{
		ReadOnly: readOnly,
		Logger:   logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history")
	}

	return h, nil
}

// projectBySlug looks up a project for commands that take a slug argument.
func projectBySlug(ctx context.Context, s *store.Store, slug string) (store.Project, error) {
	p, err := s.GetProjectBySlug(ctx, slug)
	if err != nil {
		if errors.Cause(err) == store.ErrNotFound {
			return p, errors.Errorf("no project with slug %q", slug)
		}
		return p, err
	}
	return p, nil
}
