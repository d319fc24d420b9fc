package main

import (
	"fmt"

	"github.com/spf13/cobra"

	droidprobe "github.com/httprunner/DroidProbe"
	"github.com/httprunner/DroidProbe/internal/env"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change saved preferences",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved settings and effective environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := loadStore()
			settings := store.Settings()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:   %s\n", store.Path())
			fmt.Fprintf(out, "adb_path:      %s\n", firstNonEmpty(settings.ADBPath, "(auto-detect)"))
			fmt.Fprintf(out, "last_device:   %s\n", firstNonEmpty(settings.LastDevice, "(none)"))
			fmt.Fprintf(out, "check_updates: %t\n", settings.CheckUpdates)
			fmt.Fprintf(out, "dotenv:        %s\n", firstNonEmpty(env.LoadedPath(), "(none)"))
			fmt.Fprintf(out, "history db:    %s\n", firstNonEmpty(historyPath(), "(disabled)"))
			opts := droidprobe.OptionsFromEnv()
			fmt.Fprintf(out, "transport:     %s\n", opts.Transport)
			fmt.Fprintf(out, "reboot grace:  %s\n", opts.RebootGrace)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-adb <path>",
		Short: "Save the adb executable path (\"\" restores auto-detection)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := loadStore()
			if err := store.SetADBPath(args[0]); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "adb_path saved to %s\n", store.Path())
			return nil
		},
	})
	return cmd
}
