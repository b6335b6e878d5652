package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/me/schedkit/internal/gen"
	"github.com/me/schedkit/internal/parser"
	"github.com/me/schedkit/pkg/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newGenCmd() *cobra.Command {
	var (
		cfg       = gen.DefaultConfig()
		periodMin int64
		periodMax int64
		deadlines string
		format    string
		count     int
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate random task sets",
		Long: `Draws task utilisations with UUniFast and periods log-uniformly from
[--period-min, --period-max]. One set is written to stdout; with --count and
--out-dir, numbered files are written for use with "schedkit batch".`,
		Example: `  schedkit gen --n 5 --u 0.7 --seed 1
  schedkit gen --n 8 --u 2.4 --deadlines constrained --sort deadline --count 100 --out-dir sets/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.PeriodMin, cfg.PeriodMax = model.Time(periodMin), model.Time(periodMax)
			cfg.Deadlines = model.DeadlineModel(deadlines)
			f, err := parser.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == parser.FormatAuto {
				f = parser.FormatPlain
			}
			if count > 1 && outDir == "" {
				return fmt.Errorf("--count %d needs --out-dir", count)
			}

			g, err := gen.New(cfg)
			if err != nil {
				return err
			}
			sets, err := g.TaskSets(max(count, 1))
			if err != nil {
				return err
			}

			if outDir == "" {
				return writeTaskSet(cmd.OutOrStdout(), sets[0], f)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for i, ts := range sets {
				var buf bytes.Buffer
				if err := writeTaskSet(&buf, ts, f); err != nil {
					return err
				}
				path := filepath.Join(outDir, fmt.Sprintf("set-%04d%s", i+1, extension(f)))
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return err
				}
			}
			logger.Info("task sets written", "count", len(sets), "dir", outDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d task sets to %s\n", len(sets), outDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.N, "n", cfg.N, "Tasks per set")
	cmd.Flags().Float64Var(&cfg.Utilization, "u", cfg.Utilization, "Total utilisation")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	cmd.Flags().Int64Var(&periodMin, "period-min", int64(cfg.PeriodMin), "Smallest period")
	cmd.Flags().Int64Var(&periodMax, "period-max", int64(cfg.PeriodMax), "Largest period")
	cmd.Flags().StringVar(&deadlines, "deadlines", string(cfg.Deadlines), "Deadline model (implicit, constrained)")
	cmd.Flags().StringVar(&cfg.Sort, "sort", "", "Priority order of the output (period, deadline)")
	cmd.Flags().StringVarP(&format, "format", "f", "plain", "Output format (plain, json, yaml)")
	cmd.Flags().IntVar(&count, "count", 1, "Number of task sets")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write numbered files into this directory")

	return cmd
}

func writeTaskSet(w io.Writer, ts model.TaskSet, f parser.Format) error {
	switch f {
	case parser.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]model.TaskSet{"tasks": ts})
	case parser.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]model.TaskSet{"tasks": ts}); err != nil {
			return err
		}
		return enc.Close()
	default:
		return parser.WritePlain(w, ts)
	}
}

func extension(f parser.Format) string {
	switch f {
	case parser.FormatJSON:
		return ".json"
	case parser.FormatYAML:
		return ".yaml"
	}
	return ".txt"
}
