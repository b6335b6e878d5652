package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/config"
	"github.com/me/schedkit/internal/store"
	"github.com/me/schedkit/pkg/model"
	"github.com/spf13/cobra"
)

// analysisReport is what analyze and family print, and what the server
// returns for POST /analyze.
type analysisReport struct {
	Algorithm string                 `json:"algorithm"`
	Verdict   model.Verdict          `json:"verdict"`
	Results   []model.AnalysisResult `json:"results"`
	Cached    bool                   `json:"cached"`
	RecordID  string                 `json:"record_id,omitempty"`
}

// keyOptions is hashed into the cache key of a single-algorithm run.
type keyOptions struct {
	Catalog    catalog.Options              `json:"catalog"`
	Activation model.Activation             `json:"activation,omitempty"`
	Interface  *model.PeriodicResourceModel `json:"interface,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	var (
		in     inputFlags
		sel    selectionFlags
		quiet  bool
		asJSON bool
		period int64
		budget int64
		cores  int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Decide whether a task set is schedulable",
		Long: `Runs one schedulability test, or a whole family in order until one
passes. -a takes an algorithm name (rta, gfb, ...), a family name
(uniproc-fp, global-edf, ...) or a policy (fp, edf) that selects the family
for the processor count. With -q nothing is printed and the exit code is the
verdict: 0 schedulable, 1 not schedulable, 2 error or precondition violated.`,
		Example: `  schedkit analyze -i tasks.txt -a rta
  schedkit analyze -i tasks.json -a edf -n 4
  schedkit analyze -i tasks.txt -a fp --test hyperbolic -q
  schedkit analyze -i tasks.txt -a prm-edf --resource-period 5 --resource-budget 3
  schedkit analyze -i tasks.txt -a mpr-edf -n 2 --resource-period 5 --resource-budget 8 --resource-concurrency 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sel.resolve(cmd)
			if err != nil {
				return err
			}
			ts, err := in.load(cmd)
			if err != nil {
				return err
			}
			var iface *model.PeriodicResourceModel
			if cmd.Flags().Changed("resource-period") || cmd.Flags().Changed("resource-budget") {
				iface = &model.PeriodicResourceModel{Period: model.Time(period), Budget: model.Time(budget), Concurrency: cores}
			}

			report, err := runAnalysis(cmd, cfg, ts, iface)
			if err != nil {
				return err
			}
			return printReport(cmd, cfg, ts, report, quiet, asJSON)
		},
	}

	in.register(cmd)
	sel.register(cmd, "fp")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print nothing; the exit code carries the verdict")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON")
	cmd.Flags().Int64Var(&period, "resource-period", 0, "Periodic resource period, for resource analyses")
	cmd.Flags().Int64Var(&budget, "resource-budget", 0, "Periodic resource budget, for resource analyses")
	cmd.Flags().IntVar(&cores, "resource-concurrency", 0, "Processors a multiprocessor periodic resource may use at once")

	return cmd
}

func newFamilyCmd() *cobra.Command {
	var (
		in     inputFlags
		sel    selectionFlags
		family string
		quiet  bool
		asJSON bool
	)

	names := make([]string, 0, len(catalog.Families))
	for name := range catalog.Families {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd := &cobra.Command{
		Use:   "family",
		Short: "Run every test of a family until one passes",
		Long:  "Runs the tests of a family in order and stops at the first that proves the task set schedulable.\nFamilies: " + strings.Join(names, ", "),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := catalog.Families[family]; !ok {
				return fmt.Errorf("unknown family %q (want one of %s)", family, strings.Join(names, ", "))
			}
			cfg, err := sel.resolve(cmd)
			if err != nil {
				return err
			}
			cfg.Algorithm, cfg.Test = family, ""
			ts, err := in.load(cmd)
			if err != nil {
				return err
			}
			report, err := runAnalysis(cmd, cfg, ts, nil)
			if err != nil {
				return err
			}
			return printReport(cmd, cfg, ts, report, quiet, asJSON)
		},
	}

	in.register(cmd)
	sel.register(cmd, "fp")
	cmd.Flags().MarkHidden("algorithm")
	cmd.Flags().MarkHidden("test")
	cmd.Flags().StringVar(&family, "family", "uniproc-fp", "Test family to run")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print nothing; the exit code carries the verdict")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON")

	return cmd
}

// runAnalysis evaluates ts remotely when --server is set, otherwise
// in-process through the --db cache.
func runAnalysis(cmd *cobra.Command, cfg config.AnalysisConfig, ts model.TaskSet, iface *model.PeriodicResourceModel) (*analysisReport, error) {
	sel := cfg.Selection()
	if client != nil {
		var report analysisReport
		_, err := client.Post("/api/v1/analyze", model.AnalyzeRequest{
			Tasks:      ts,
			Processors: sel.Processors,
			Algorithm:  sel.Algorithm,
			Test:       sel.Test,
			Activation: sel.Activation,
			Interface:  iface,
		}, &report)
		if err != nil {
			return nil, fmt.Errorf("analyze on %s: %w", client.BaseURL, err)
		}
		return &report, nil
	}

	cat := newCatalog(cfg)
	name, family, err := cat.Resolve(sel)
	if err != nil {
		return nil, err
	}
	if family {
		results, err := cat.Family(name, sel, ts)
		if err != nil {
			return nil, err
		}
		return &analysisReport{Algorithm: name, Verdict: catalog.Overall(results), Results: results}, nil
	}

	st, err := openCache(cmd)
	if err != nil {
		return nil, err
	}
	if st != nil {
		defer st.Close()
	}
	key, err := store.NewKey(name, sel.Platform(), ts, keyOptions{Catalog: cat.Options(), Activation: sel.Activation, Interface: iface})
	if err != nil {
		return nil, err
	}
	rec, hit, err := store.CachedAnalysis(cmd.Context(), st, key, func() (model.AnalysisResult, error) {
		if iface != nil {
			return cat.AnalyzeWith(sel, ts, *iface)
		}
		results, err := cat.Analyze(sel, ts)
		if err != nil {
			return model.AnalysisResult{}, err
		}
		return results[0], nil
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("analysis complete", "key", key.String(), "cached", hit, "elapsed", rec.Elapsed)
	return &analysisReport{
		Algorithm: name,
		Verdict:   rec.Analysis.Verdict,
		Results:   []model.AnalysisResult{*rec.Analysis},
		Cached:    hit,
		RecordID:  rec.ID,
	}, nil
}

func printReport(cmd *cobra.Command, cfg config.AnalysisConfig, ts model.TaskSet, report *analysisReport, quiet, asJSON bool) error {
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
		fmt.Fprintf(out, "Algorithm: %s\n", report.Algorithm)
		for _, res := range report.Results {
			printResult(out, res)
		}
		verdict := string(report.Verdict)
		if report.Cached {
			verdict += " (cached)"
		}
		fmt.Fprintf(out, "Verdict: %s\n", verdict)
	}
	if quiet {
		return verdictStatus(report.Verdict)
	}
	return nil
}
