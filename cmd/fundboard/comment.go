package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/internal/composer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var commentFlags struct {
	Server string
	User   string
	Reply  string
	Drafts string
}

var commentCmd = &cobra.Command{
	Use:   "comment <slug> [text]",
	Short: "Post a comment to a running server",
	Long: `Post a comment to a project through a running server. With --reply, the
comment replies to that comment's thread. A comment that fails to post is
kept as a draft in --drafts; run the command again without text to send the
draft.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if commentFlags.User == "" {
			return errors.New("--user is required")
		}

		client := composer.NewClient(commentFlags.Server)
		client.Header.Set(cfg.SessionHeader, commentFlags.User)

		page, err := fetchProject(ctx, client, args[0])
		if err != nil {
			return err
		}

		var target *fundboard.Comment
		if commentFlags.Reply != "" {
			target = page.find(commentFlags.Reply)
			if target == nil {
				return errors.Errorf("no comment %q on %s", commentFlags.Reply, args[0])
			}
		}

		var drafts fundboard.Drafts = &fundboard.MemDrafts{}
		if commentFlags.Drafts != "" {
			d, err := fundboard.OpenDrafts(commentFlags.Drafts, false)
			if err != nil {
				return errors.Wrap(err, "failed to open drafts")
			}
			defer d.Close()
			drafts = d
		}

		c := composer.New(client, drafts)
		c.OnSubmit = func(resp composer.Response) {
			fmt.Fprintln(cmd.OutOrStdout(), "posted", resp.ID)
		}

		doc, err := c.Load(page.Project.ID, target)
		if err != nil {
			return err
		}

		if len(args) == 2 {
			text := args[1]
			if target != nil {
				// Keep the mention that replies start with.
				text = fundboard.ReplyPrompt(*target).PlainText() + text
			}
			doc = fundboard.NewTextDoc(text)
		}

		_, err = c.Submit(ctx, doc)
		if err != nil && commentFlags.Drafts != "" && errors.Cause(err) != composer.ErrEmptyComment {
			return errors.Wrapf(err, "draft kept as %s", c.Key())
		}
		return err
	},
}

type projectThreads struct {
	Project struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	} `json:"project"`
	Threads fundboard.Threads `json:"threads"`
}

func (p *projectThreads) find(id string) *fundboard.Comment {
	for _, thread := range p.Threads.Threads {
		if thread.Root.ID == id {
			return &thread.Root
		}
		for i, reply := range thread.Replies {
			if reply.ID == id {
				return &thread.Replies[i]
			}
		}
	}
	return nil
}

// fetchProject reads the project and its threads from the server.
func fetchProject(ctx context.Context, c *composer.Client, slug string) (*projectThreads, error) {
	u := strings.TrimSuffix(c.Base, "/") + "/projects/" + url.PathEscape(slug)

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	r.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Do(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get project")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct{ Error string }
		json.NewDecoder(resp.Body).Decode(&body)
		return nil, &composer.StatusError{Code: resp.StatusCode, Message: body.Error}
	}

	var page projectThreads
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errors.Wrap(err, "failed to decode project")
	}

	return &page, nil
}

func init() {
	flags := commentCmd.Flags()
	flags.StringVar(&commentFlags.Server, "server", "http://localhost:8080", "fundboard server URL")
	flags.StringVar(&commentFlags.User, "user", "", "ID of the user to comment as")
	flags.StringVar(&commentFlags.Reply, "reply", "", "ID of the comment to reply to")
	flags.StringVar(&commentFlags.Drafts, "drafts", "", "drafts database path; drafts are kept in memory if empty")
	rootCmd.AddCommand(commentCmd)
}
