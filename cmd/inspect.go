package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/httprunner/DroidProbe/pkg/probe"
)

func newDevicesCmd() *cobra.Command {
	var flagJSON bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List attached devices and their connection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if !s.analyzer.Client().Verify(ctx) {
				return errors.Errorf("adb not usable at %s; install platform-tools or pass --adb", s.analyzer.Client().ADBPath())
			}
			devices := s.analyzer.Devices(ctx)
			out := cmd.OutOrStdout()
			if flagJSON {
				return printJSON(out, devices)
			}
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices attached.")
				return nil
			}
			for _, d := range devices {
				fmt.Fprintf(out, "%s\t%s\n", d.Serial, d.RawState)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show device identity and hardware",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()
			serial, err := s.serial(ctx)
			if err != nil {
				return err
			}
			info := s.analyzer.Inspect(ctx, serial)
			if info != nil {
				s.remember(serial)
			}
			writeText(cmd.OutOrStdout(), probe.FormatDevice(info))
			return nil
		},
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Detect root and the privilege broker in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()
			serial, err := s.serial(ctx)
			if err != nil {
				return err
			}
			writeText(cmd.OutOrStdout(), probe.FormatRoot(s.analyzer.Root(ctx, serial)))
			return nil
		},
	}
}

func newBootloaderCmd() *cobra.Command {
	var flagFastboot bool
	cmd := &cobra.Command{
		Use:   "bootloader",
		Short: "Show bootloader lock state and fastboot availability",
		Long: `Without --fastboot the lock state stays Unknown: reading it needs the device in
fastboot mode. Pass --fastboot once the device is already there (for example after
"droidprobe reboot bootloader"); droidprobe never switches modes on its own.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()
			bl := s.analyzer.Bootloader()
			out := cmd.OutOrStdout()
			if flagFastboot {
				status := bl.StatusViaSecondaryMode(ctx, flagSerial)
				fmt.Fprintf(out, "Bootloader (fastboot): %s\n", status)
				if status == probe.BootloaderLocked {
					writeText(out, "\n"+bl.DataLossWarning())
				}
				return nil
			}
			serial, err := s.serial(ctx)
			if err != nil {
				return err
			}
			writeText(out, probe.FormatBootloader(bl.Analyze(ctx, serial), bl.DataLossWarning()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagFastboot, "fastboot", false, "query `getvar unlocked` on a device already in fastboot mode")
	return cmd
}

func newSecurityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "security",
		Short: "Show SELinux, verified boot, OEM unlock and A/B slot facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()
			serial, err := s.serial(ctx)
			if err != nil {
				return err
			}
			writeText(cmd.OutOrStdout(), probe.FormatSecurity(s.analyzer.Security(ctx, serial)))
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var (
		flagAll  bool
		flagJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run every probe and print a full report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			var reports []*probe.Report
			if flagAll {
				reports, err = s.analyzer.AnalyzeAll(ctx)
				if err != nil {
					return err
				}
			} else {
				serial, err := s.serial(ctx)
				if err != nil {
					return err
				}
				report := s.analyzer.Analyze(ctx, serial)
				if report.Device != nil {
					s.remember(serial)
				}
				reports = append(reports, report)
			}

			out := cmd.OutOrStdout()
			if flagJSON {
				if flagAll {
					return printJSON(out, reports)
				}
				return printJSON(out, reports[0])
			}
			warning := s.analyzer.Bootloader().DataLossWarning()
			for i, r := range reports {
				if flagAll {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "##### %s #####\n\n", r.Serial)
				}
				writeText(out, r.Text(warning))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagAll, "all", false, "analyze every connected device")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
	return cmd
}
