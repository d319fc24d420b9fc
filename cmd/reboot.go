package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/httprunner/DroidProbe/pkg/reboot"
)

func newRebootCmd() *cobra.Command {
	var flagYes bool
	var valid []string
	for _, k := range reboot.Kinds() {
		valid = append(valid, k.String())
	}
	cmd := &cobra.Command{
		Use:       "reboot <" + strings.Join(valid, "|") + ">",
		Short:     "Reboot the device after confirmation",
		ValidArgs: valid,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reboot.ParseKind(args[0])
			if err != nil {
				return err
			}
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

			action := s.analyzer.RebootAction(ctx, serial)
			if !action.CanReboot() {
				return errors.Errorf("device %s is not connected", serial)
			}
			out := cmd.OutOrStdout()
			info := action.InfoFor(kind)
			fmt.Fprintf(out, "%s (%s)\n", info.Description, serial)
			if info.Warning != "" {
				fmt.Fprintf(out, "\nWARNING: %s\n", info.Warning)
			}
			if info.RequiresConfirmation && !flagYes {
				ok, err := confirm(cmd.InOrStdin(), out, "\nProceed? [y/N] ")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			res := action.ExecuteDetailed(ctx, kind)
			if !res.Success {
				fmt.Fprintf(out, "Reboot failed: %s\n", res.Output)
				fmt.Fprintf(out, "You can try manually:\n  %s\n", action.ManualCommand(kind))
				return errors.Errorf("reboot %s failed", kind)
			}
			fmt.Fprintf(out, "%s\n", res.Output)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm accepts only an explicit y or yes.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, "read confirmation")
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
