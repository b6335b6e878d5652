package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/me/schedkit/internal/config"
	"github.com/me/schedkit/internal/store"
	"github.com/me/schedkit/pkg/model"
	"github.com/spf13/cobra"
)

type designReport struct {
	Design       model.DesignResult    `json:"design"`
	Verification *model.AnalysisResult `json:"verification,omitempty"`
	Cached       bool                  `json:"cached"`
	RecordID     string                `json:"record_id,omitempty"`
}

func newDesignCmd() *cobra.Command {
	var (
		in        inputFlags
		sel       selectionFlags
		periodMin int64
		periodMax int64
		verify    bool
		quiet     bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "design",
		Short: "Find the cheapest periodic resource that keeps a task set schedulable",
		Long: `Searches resource periods and, for each, the least budget the paired
analysis accepts, keeping the interface with the lowest bandwidth. With -q
the exit code is 0 when an interface was found, 1 when none exists in the
searched range, 2 otherwise.`,
		Example: `  schedkit design -i tasks.txt -a prm-edf-design
  schedkit design -i tasks.txt -a prm-fp-design --period-min 2 --period-max 20 --verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sel.resolve(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("period-min") {
				cfg.PeriodMin = model.Time(periodMin)
			}
			if cmd.Flags().Changed("period-max") {
				cfg.PeriodMax = model.Time(periodMax)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ts, err := in.load(cmd)
			if err != nil {
				return err
			}

			report, err := runDesign(cmd, cfg, ts, verify)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case quiet:
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			default:
				describeTaskSet(out, ts, cfg.Selection().Platform())
				d := report.Design
				fmt.Fprintf(out, "Designer: %s\n", d.Algorithm)
				fmt.Fprintf(out, "Outcome: %s\n", d.Outcome)
				if d.Interface != nil {
					fmt.Fprintf(out, "Interface: %s, bandwidth %.4f\n", d.Interface, d.Interface.Bandwidth())
				}
				if d.Reason != "" {
					fmt.Fprintf(out, "Reason: %s\n", d.Reason)
				}
				fmt.Fprintf(out, "Search: %s candidate periods, %s oracle calls\n",
					humanize.Comma(int64(d.CandidatesTried)), humanize.Comma(int64(d.OracleCalls)))
				if report.Verification != nil {
					fmt.Fprintf(out, "Verified by %s: %s\n", report.Verification.Algorithm, report.Verification.Verdict)
				}
			}

			if quiet {
				switch report.Design.Outcome {
				case model.OutcomeFound:
					return nil
				case model.OutcomeInfeasible:
					return &ExitStatus{Code: ExitNotSchedulable}
				default:
					return &ExitStatus{Code: ExitError}
				}
			}
			return nil
		},
	}

	in.register(cmd)
	sel.register(cmd, "prm-edf-design")
	cmd.Flags().MarkHidden("test")
	cmd.Flags().MarkHidden("activation")
	cmd.Flags().Int64Var(&periodMin, "period-min", 0, "Smallest resource period to try (0: 1)")
	cmd.Flags().Int64Var(&periodMax, "period-max", 0, "Largest resource period to try (0: smallest task period)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Re-check the interface with the designer's analysis")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print nothing; the exit code carries the outcome")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// runDesign searches an interface remotely when --server is set, otherwise
// in-process through the --db cache.
func runDesign(cmd *cobra.Command, cfg config.AnalysisConfig, ts model.TaskSet, verify bool) (*designReport, error) {
	sel := cfg.Selection()
	if client != nil {
		var report designReport
		_, err := client.Post("/api/v1/design", model.DesignRequest{
			Tasks:      ts,
			Processors: sel.Processors,
			Algorithm:  sel.Algorithm,
			PeriodMin:  cfg.PeriodMin,
			PeriodMax:  cfg.PeriodMax,
			Verify:     verify,
		}, &report)
		if err != nil {
			return nil, fmt.Errorf("design on %s: %w", client.BaseURL, err)
		}
		return &report, nil
	}

	cat := newCatalog(cfg)
	st, err := openCache(cmd)
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}
	key, err := store.NewKey(sel.Algorithm, sel.Platform(), ts, keyOptions{Catalog: cat.Options()})
	if err != nil {
		return nil, err
	}
	rec, hit, err := store.CachedDesign(cmd.Context(), st, key, func() (model.DesignResult, error) {
		return cat.Design(sel, ts)
	})
	if err != nil {
		return nil, err
	}

	report := &designReport{Design: *rec.Design, Cached: hit, RecordID: rec.ID}
	if verify && rec.Design.Outcome == model.OutcomeFound {
		check, err := cat.Verify(sel, ts, *rec.Design)
		if err != nil {
			return nil, err
		}
		report.Verification = &check
	}
	return report, nil
}
