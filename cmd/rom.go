package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/httprunner/DroidProbe/pkg/probe"
)

func newROMCmd() *cobra.Command {
	var flagSupported bool
	cmd := &cobra.Command{
		Use:   "rom [codename]",
		Short: "Check LineageOS support for a codename or the attached device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()
			out := cmd.OutOrStdout()

			if flagSupported {
				for _, codename := range s.analyzer.ROM().SupportedCodenames() {
					fmt.Fprintln(out, codename)
				}
				return nil
			}

			var codename string
			if len(args) == 1 {
				codename = args[0]
			} else {
				serial, err := s.serial(ctx)
				if err != nil {
					return err
				}
				info := s.analyzer.Inspect(ctx, serial)
				if info == nil || info.Codename == "" {
					return errors.Errorf("could not read the codename of %s", serial)
				}
				s.remember(serial)
				codename = info.Codename
			}
			writeText(out, probe.FormatROM(s.analyzer.CheckROM(codename)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagSupported, "supported", false, "list every supported codename")
	return cmd
}
