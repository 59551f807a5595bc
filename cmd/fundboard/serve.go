package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/handler"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// shutdownTimeout is how long in-flight requests get to finish on shutdown.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the website and its JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		history, err := openHistory(false)
		if err != nil {
			return err
		}
		defer history.Close()

		drafts, err := fundboard.OpenDrafts(cfg.DraftsPath, false)
		if err != nil {
			return errors.Wrap(err, "failed to open drafts")
		}
		defer drafts.Close()

		srv := http.Server{
			Addr: cfg.Listen,
			Handler: handler.New(handler.Options{
				Store:   s,
				History: history,
				Drafts:  drafts,
				Config:  *cfg,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Println("listening on", cfg.Listen)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return errors.Wrap(err, "failed to serve")
		case <-ctx.Done():
		}

		log.Println("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Wrap(srv.Shutdown(sctx), "failed to shut down")
	},
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}
