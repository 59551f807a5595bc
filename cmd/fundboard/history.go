package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/internal/config"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the recorded funding histories",
}

var historyRecordCmd = &cobra.Command{
	Use:   "record <slug>",
	Short: "Record a project's funding history from its donations",
	Long: `Record a project's funding history from its donations. Every donation
becomes a point holding the total raised after it. Recording twice
overwrites the same points.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := projectBySlug(ctx, s, args[0])
		if err != nil {
			return err
		}

		h, err := openHistory(false)
		if err != nil {
			return err
		}
		defer h.Close()

		n, err := recordHistory(ctx, h, s, p)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s for %s\n", pointCount(n), p.Slug)
		return nil
	},
}

// recordHistory writes the project's cumulative donation history into the
// history database.
func recordHistory(ctx context.Context, h *fundboard.History, s *store.Store, p store.Project) (int, error) {
	txns, err := s.ProjectTxns(ctx, p.ID)
	if err != nil {
		return 0, err
	}

	points := store.CumulativeHistory(txns)

	if err := h.RecordBatch(p.ID, points); err != nil {
		return 0, errors.Wrapf(err, "failed to record %s", p.Slug)
	}

	return len(points), nil
}

var exportOutput string

var historyExportCmd = &cobra.Command{
	Use:   "export <slug>",
	Short: "Export a project's funding history as Parquet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := projectBySlug(ctx, s, args[0])
		if err != nil {
			return err
		}

		h, err := openHistory(true)
		if err != nil {
			return err
		}
		defer h.Close()

		points, err := h.Points(p.ID, time.Time{}, time.Time{})
		if err != nil {
			return err
		}

		output := exportOutput
		if output == "" {
			output = p.Slug + ".parquet"
		}

		f, err := os.Create(output)
		if err != nil {
			return errors.Wrap(err, "failed to create output file")
		}
		defer f.Close()

		if err := writeHistoryParquet(f, p, points); err != nil {
			return err
		}

		if err := f.Close(); err != nil {
			return errors.Wrap(err, "failed to close output file")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", pointCount(len(points)), output)
		return nil
	},
}

// historyRow is a history point as exported to Parquet.
type historyRow struct {
	ProjectID string    `parquet:"project_id,snappy,dict"`
	Time      time.Time `parquet:"time,snappy"`
	Raised    float64   `parquet:"raised,snappy"`
	TxnID     *string   `parquet:"txn_id,optional,snappy"`
	Donor     *string   `parquet:"donor,optional,snappy"`
	Amount    *float64  `parquet:"amount,optional,snappy"`
}

func newHistoryRow(projectID string, p fundboard.HistoryPoint) historyRow {
	row := historyRow{
		ProjectID: projectID,
		Time:      time.UnixMilli(int64(p.X)).UTC(),
		Raised:    p.Y,
	}

	if ev := p.Obj; ev != nil {
		if ev.TxnID != "" {
			row.TxnID = &ev.TxnID
		}
		if ev.From != "" {
			row.Donor = &ev.From
		}
		row.Amount = &ev.Amount
	}

	return row
}

// writeHistoryParquet writes the points as Parquet rows into w.
func writeHistoryParquet(w io.Writer, p store.Project, points []fundboard.HistoryPoint) error {
	rows := make([]historyRow, len(points))
	for i, point := range points {
		rows[i] = newHistoryRow(p.ID, point)
	}

	writer := parquet.NewGenericWriter[historyRow](w)

	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return errors.Wrap(err, "failed to write parquet rows")
	}

	return errors.Wrap(writer.Close(), "failed to finish parquet file")
}

var gcOlderThan string

var historyGCCmd = &cobra.Command{
	Use:   "gc <slug>",
	Short: "Delete a project's old history points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		age, err := config.ParseDuration(gcOlderThan)
		if err != nil {
			return errors.Wrap(err, "invalid --older-than")
		}
		if age == 0 {
			return errors.New("--older-than must be positive")
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := projectBySlug(ctx, s, args[0])
		if err != nil {
			return err
		}

		h, err := openHistory(false)
		if err != nil {
			return err
		}
		defer h.Close()

		before := time.Now().Add(-age)

		n, err := h.GC(p.ID, before)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s from before %s\n", pointCount(n), humanize.Time(before))
		return nil
	},
}

func pointCount(n int) string {
	if n == 1 {
		return "1 point"
	}
	return humanize.Comma(int64(n)) + " points"
}

func init() {
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default <slug>.parquet)")
	historyGCCmd.Flags().StringVar(&gcOlderThan, "older-than", "1y", "delete points older than this, such as 30d or 1y")

	historyCmd.AddCommand(historyRecordCmd, historyExportCmd, historyGCCmd)
	rootCmd.AddCommand(historyCmd)
}
