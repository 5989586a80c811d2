package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/erauner12/groceries/internal/app"
	"github.com/erauner12/groceries/internal/model"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued changes now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				out := cmd.OutOrStdout()
				// Start already drained when it could; this reports what is left.
				res, err := s.Sync(ctx)
				if err != nil {
					return err
				}
				switch {
				case res.Skipped && !s.Store().Online():
					fmt.Fprintf(out, "offline: %d change(s) still queued\n", s.Store().PendingSyncs())
				case res.Halted:
					fmt.Fprintf(out, "synced %d, stopped on a network error with %d remaining\n", res.Processed, res.Remaining)
				default:
					fmt.Fprintf(out, "synced %d, discarded %d, %d pending\n", res.Processed, res.Discarded, s.Store().PendingSyncs())
				}
				return nil
			})
		},
	}
}

func describeEvent(ev model.ChangeEvent) string {
	var ref struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	_ = ev.DecodeData(&ref)
	switch {
	case ref.Name != "":
		return fmt.Sprintf("%s: %s #%d", ev.Type, ref.Name, ref.ID)
	case ref.ID != 0:
		return fmt.Sprintf("%s: #%d", ev.Type, ref.ID)
	}
	return string(ev.Type)
}

func printEvent(w io.Writer, ev model.ChangeEvent) {
	fmt.Fprintf(w, "%s  %s\n", ev.Timestamp.Local().Format(time.TimeOnly), describeEvent(ev))
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow changes made by other clients until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *app.Session) error {
				out := cmd.OutOrStdout()
				printBanner(out, s.Store())
				fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", s.LiveEndpoint())

				s.Watch(app.WatchHandlers{
					OnEvent: func(ev model.ChangeEvent) { printEvent(out, ev) },
					OnConnection: func(connected bool) {
						if connected {
							fmt.Fprintln(out, "-- connected")
						} else {
							fmt.Fprintln(out, "-- disconnected, retrying")
						}
					},
				})
				<-ctx.Done()
				s.Unwatch()
				return nil
			})
		},
	}
}
