package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"questboard/internal/store"
)

func newFailuresCmd() *cobra.Command {
	var (
		configPath string
		kind       string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List recent ingestion failures",
		Long:  "Lists messages that failed to ingest, newest first, with their failure reason.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			failures, err := (store.Failures{DB: gormDB}).List(kind, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(failures) == 0 {
				fmt.Fprintln(out, "No ingestion failures recorded.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tKIND\tREASON\tMESSAGE\tERRORS")
			for _, f := range failures {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\n",
					f.CreatedAt.UTC().Format("2006-01-02 15:04"),
					f.Kind, f.Reason, f.ChannelID, f.MessageID, f.Errors)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "questboard.yaml", "path to Questboard config file")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (quest, summary)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show")
	return cmd
}
