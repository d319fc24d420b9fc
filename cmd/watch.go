package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	droidprobe "github.com/httprunner/DroidProbe"
)

func newWatchCmd() *cobra.Command {
	var flagInterval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print device connect, state change and disconnect events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info().Dur("interval", flagInterval).Msg("watching devices")

			out := cmd.OutOrStdout()
			return s.analyzer.Watcher().Run(sigCtx, flagInterval, func(events []droidprobe.Event) {
				for _, ev := range events {
					switch ev.Kind {
					case droidprobe.EventStateChanged:
						fmt.Fprintf(out, "%s  %-12s %s (%s -> %s)\n", ev.At.Format(time.TimeOnly), ev.Kind, ev.Serial, ev.Previous, ev.State)
					case droidprobe.EventDisconnected:
						fmt.Fprintf(out, "%s  %-12s %s\n", ev.At.Format(time.TimeOnly), ev.Kind, ev.Serial)
					default:
						fmt.Fprintf(out, "%s  %-12s %s (%s)\n", ev.At.Format(time.TimeOnly), ev.Kind, ev.Serial, ev.State)
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&flagInterval, "interval", 2*time.Second, "poll interval")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the droidprobe version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "droidprobe %s\n", droidprobe.Version)
		},
	}
}
