package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/httprunner/DroidProbe/pkg/recorder"
)

func newHistoryCmd() *cobra.Command {
	var (
		flagLimit int
		flagJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent reports from the scan history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := historyPath()
			if path == "" {
				return errors.New("scan history is disabled")
			}
			rec, err := recorder.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer rec.Close()

			entries, err := rec.History(cmd.Context(), flagSerial, flagLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagJSON {
				return printJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No scans recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCANNED\tSERIAL\tMODEL\tCODENAME\tROOT\tSELINUX\tLINEAGE")
			for _, e := range entries {
				lineage := "no"
				if e.ROMSupported {
					lineage = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ScannedAt.Local().Format(time.DateTime),
					e.Serial,
					firstNonEmpty(e.Manufacturer+" "+e.Model, "-"),
					firstNonEmpty(e.Codename, "-"),
					firstNonEmpty(e.RootStatus, "-"),
					firstNonEmpty(e.SELinux, "-"),
					lineage)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum rows")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
	return cmd
}
