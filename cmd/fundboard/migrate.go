package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateTarget int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Apply the embedded schema migrations. By default the schema is migrated
to the latest version; --target 0 rolls every migration back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.Migrate(migrateTarget)
		if err != nil {
			color.New(color.FgRed, color.Bold).Fprintln(cmd.ErrOrStderr(), "migration failed")
			return err
		}

		out := cmd.OutOrStdout()

		if !res.Changed {
			color.New(color.FgHiBlack).Fprintf(out, "%s schema is up to date at version %d\n", s.Driver(), res.To)
			return nil
		}

		color.New(color.FgGreen).Fprintf(out, "%s schema migrated from version %d to %d\n", s.Driver(), res.From, res.To)
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateTarget, "target", -1, "version to migrate to, negative for the latest")
	rootCmd.AddCommand(migrateCmd)
}
