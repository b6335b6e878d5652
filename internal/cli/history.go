package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/me/schedkit/pkg/model"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit     int
		offset    int
		algorithm string
	)

	cmd := &cobra.Command{
		Use:   "history [record-id]",
		Short: "List cached results, or show one",
		Long:  "Reads the result cache written by analyze and design when --db is set. Without --db the default cache ~/.schedkit/results.db is read.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagDB
			if path == "" {
				path = defaultDB()
			}
			st, err := openStore(cmd, path)
			if err != nil {
				return err
			}
			defer st.Close()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				rec, err := st.GetRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("no cached result %q", args[0])
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}

			opts := model.ListOptions{Limit: limit, Offset: offset, Algorithm: algorithm}
			opts.Clamp()
			records, total, err := st.ListRecords(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No cached results.")
				return nil
			}

			fmt.Fprintf(out, "%-40s  %-8s  %-16s  %-4s  %-5s  %-22s  %-10s  %s\n", "ID", "KIND", "ALGORITHM", "CPUS", "TASKS", "RESULT", "ELAPSED", "AGE")
			for _, rec := range records {
				fmt.Fprintf(out, "%-40s  %-8s  %-16s  %-4d  %-5d  %-22s  %-10s  %s\n",
					rec.ID, rec.Kind, rec.Algorithm, rec.Processors, rec.TaskCount,
					recordResult(rec), rec.Elapsed.Round(time.Microsecond), humanize.Time(rec.CreatedAt))
			}
			if opts.Offset+len(records) < total {
				fmt.Fprintf(out, "\n(%d of %s shown)\n", len(records), humanize.Comma(int64(total)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "Only list one algorithm")

	return cmd
}

func recordResult(rec *model.Record) string {
	switch {
	case rec.Analysis != nil:
		return string(rec.Analysis.Verdict)
	case rec.Design != nil && rec.Design.Interface != nil:
		return rec.Design.Interface.String()
	case rec.Design != nil:
		return string(rec.Design.Outcome)
	}
	return "-"
}
