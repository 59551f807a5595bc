package main

import (
	"io"
	"strconv"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// printTable renders rows under headers. The add callback takes the row's
// columns.
func printTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects with their funding",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		projects, err := s.ListProjects(cmd.Context())
		if err != nil {
			return err
		}

		headers := []string{"Slug", "Title", "Creator", "Raised", "Goal", "Causes", "Created"}

		printTable(cmd.OutOrStdout(), headers, func(add func(...string)) {
			for _, p := range projects {
				causes := make([]string, len(p.Causes))
				for i, c := range p.Causes {
					causes[i] = c.Slug
				}

				add(
					p.Slug,
					p.Title,
					"@"+p.Creator.Username,
					store.FormatMoney(p.Raised),
					store.FormatMoney(p.FundingGoal),
					strings.Join(causes, ","),
					humanize.Time(p.CreatedAt),
				)
			}
		})

		return nil
	},
}

var threadsCmd = &cobra.Command{
	Use:   "threads <slug>",
	Short: "Print a project's comment threads",
	Long: `Print a project's comments grouped into threads: newest threads first,
replies oldest first under their root. Replies whose root is missing are
listed last.`,
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

		comments, err := s.ListComments(ctx, p.ID)
		if err != nil {
			return err
		}

		threads := fundboard.ThreadComments(comments)
		headers := []string{"Thread", "ID", "Author", "Posted", "Comment"}

		printTable(cmd.OutOrStdout(), headers, func(add func(...string)) {
			row := func(thread string, c fundboard.Comment) {
				add(thread, c.ID, "@"+c.Author.Username, c.CreatedAt.Format(time.DateTime), oneLine(c.Content.PlainText()))
			}

			for i, thread := range threads.Threads {
				n := strconv.Itoa(i + 1)
				row(n, thread.Root)
				for _, reply := range thread.Replies {
					row(n+" ↳", reply)
				}
			}

			for _, c := range threads.Orphaned {
				row("orphan", c)
			}
		})

		return nil
	},
}

// oneLine flattens text into a single line of at most 60 characters.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		s = string(r[:59]) + "…"
	}
	return s
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(threadsCmd)
}
