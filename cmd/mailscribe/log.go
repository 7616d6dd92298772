package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLogCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List emails recorded in the spreadsheet log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			recs, err := a.sentLog.Records()
			if err != nil {
				return err
			}
			if limit > 0 && len(recs) > limit {
				recs = recs[len(recs)-limit:]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(recs)
			}
			if len(recs) == 0 {
				fmt.Fprintf(out, "no emails logged in %s\n", a.sentLog.Path())
				return nil
			}
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %-8s %s -> %s  %s\n",
					r.Timestamp.Format(time.DateTime), r.Provider, r.Sender, r.Recipient, r.Subject)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the entries as JSON")
	return cmd
}
