package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/handler"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var seedServer string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo projects",
	Long: `Migrate the database and fill it with demo profiles, projects,
donations, comments and bids, then record each project's funding history.
Projects that already have donations are left alone. With --server, the
running server's project listing is revalidated afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		h, err := openHistory(false)
		if err != nil {
			return err
		}
		defer h.Close()

		if _, err := s.Migrate(-1); err != nil {
			return err
		}

		projects, err := seed(ctx, s, time.Now())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		ok := color.New(color.FgGreen)

		for _, p := range projects {
			n, err := recordHistory(ctx, h, s, p)
			if err != nil {
				return err
			}
			ok.Fprintf(out, "seeded %s with %s\n", p.Slug, pointCount(n))
		}

		if seedServer != "" {
			if err := revalidate(ctx, seedServer); err != nil {
				return err
			}
			ok.Fprintln(out, "revalidated", seedServer)
		}

		return nil
	},
}

type seedProject struct {
	project   store.Project
	donations []float64
}

// seed inserts the demo data. Donations are spread over the last month.
func seed(ctx context.Context, s *store.Store, now time.Time) ([]store.Project, error) {
	profiles := []fundboard.Profile{
		{ID: "u-ana", Username: "ana", FullName: "Ana Lima"},
		{ID: "u-ben", Username: "ben", FullName: "Ben Okafor"},
		{ID: "u-cam", Username: "cam"},
	}
	for _, p := range profiles {
		if err := s.UpsertProfile(ctx, p); err != nil {
			return nil, err
		}
	}

	causes := []store.Cause{
		{Slug: "science", Title: "Science"},
		{Slug: "open-source", Title: "Open Source"},
		{Slug: "community", Title: "Community"},
	}
	for _, c := range causes {
		if err := s.UpsertCause(ctx, c); err != nil {
			return nil, err
		}
	}

	month := 30 * 24 * time.Hour

	seeds := []seedProject{
		{
			project: store.Project{
				ID:          "p-telescope",
				Slug:        "backyard-telescope",
				Title:       "A backyard radio telescope",
				Blurb:       "Listening to hydrogen from a suburban garden.",
				CreatorID:   "u-ana",
				FundingGoal: 5000,
				MinFunding:  1500,
				CreatedAt:   now.Add(-month),
				Causes:      []store.Cause{{Slug: "science"}},
			},
			donations: []float64{250, 100, 1200, 40, 75, 600, 20, 900},
		},
		{
			project: store.Project{
				ID:          "p-mirror",
				Slug:        "package-mirror",
				Title:       "A community package mirror",
				Blurb:       "Fast downloads for everyone in the region.",
				CreatorID:   "u-ben",
				FundingGoal: 2000,
				CreatedAt:   now.Add(-month / 2),
				Causes:      []store.Cause{{Slug: "open-source"}, {Slug: "community"}},
			},
			donations: []float64{50, 50, 300, 125},
		},
	}

	var projects []store.Project

	for _, sp := range seeds {
		p, err := s.UpsertProject(ctx, sp.project)
		if err != nil {
			return nil, err
		}

		projects = append(projects, p)

		existing, err := s.ProjectTxns(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			continue
		}

		age := now.Sub(p.CreatedAt)
		step := age / time.Duration(len(sp.donations)+1)

		for i, amount := range sp.donations {
			donor := profiles[i%len(profiles)]
			if donor.ID == p.CreatorID {
				donor = profiles[(i+1)%len(profiles)]
			}

			_, err := s.InsertTxn(ctx, store.Txn{
				ID:        fmt.Sprintf("t-%s-%d", p.Slug, i),
				FromID:    donor.ID,
				ProjectID: p.ID,
				Amount:    amount,
				CreatedAt: p.CreatedAt.Add(step * time.Duration(i+1)),
			})
			if err != nil {
				return nil, err
			}
		}

		if err := seedComments(ctx, s, p, profiles, now); err != nil {
			return nil, err
		}

		_, err = s.InsertBid(ctx, store.Bid{
			ID:        "b-" + p.Slug,
			ProjectID: p.ID,
			BidderID:  profiles[2].ID,
			Amount:    100,
			Valuation: p.FundingGoal * 2,
			Type:      "buy",
			CreatedAt: now.Add(-time.Hour),
		})
		if err != nil {
			return nil, err
		}
	}

	return projects, nil
}

func seedComments(ctx context.Context, s *store.Store, p store.Project, profiles []fundboard.Profile, now time.Time) error {
	root, err := s.InsertComment(ctx, fundboard.Comment{
		ID:        "c-" + p.Slug + "-root",
		ProjectID: p.ID,
		Commenter: profiles[1].ID,
		Content:   fundboard.NewTextDoc("How will the funds be spent?"),
		CreatedAt: now.Add(-48 * time.Hour),
	})
	if err != nil {
		return err
	}

	root.Author = profiles[1]

	reply := fundboard.ReplyPrompt(root)
	reply.Content[0].Content[1].Text = " Mostly hardware, with a breakdown coming soon."

	_, err = s.InsertComment(ctx, fundboard.Comment{
		ID:         "c-" + p.Slug + "-reply",
		ProjectID:  p.ID,
		Commenter:  p.CreatorID,
		ReplyingTo: root.ID,
		Content:    reply,
		CreatedAt:  now.Add(-24 * time.Hour),
	})
	return err
}

// revalidate drops the server's cached project listing.
func revalidate(ctx context.Context, server string) error {
	u := strings.TrimSuffix(server, "/") + handler.RevalidateProjectsPath

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := http.DefaultClient.Do(r)
	if err != nil {
		return errors.Wrap(err, "failed to revalidate")
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("failed to revalidate: server returned %s", resp.Status)
	}

	return nil
}

func init() {
	seedCmd.Flags().StringVar(&seedServer, "server", "", "server to revalidate after seeding")
	rootCmd.AddCommand(seedCmd)
}
