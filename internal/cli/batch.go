package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/me/schedkit/internal/batch"
	"github.com/me/schedkit/internal/parser"
	"github.com/spf13/cobra"
)

var taskSetExtensions = map[string]bool{".txt": true, ".ts": true, ".json": true, ".yaml": true, ".yml": true}

func newBatchCmd() *cobra.Command {
	var (
		in       inputFlags
		sel      selectionFlags
		workers  int
		failFast bool
		quiet    bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file-or-dir>...",
		Short: "Analyse many task set files in parallel",
		Long: `Evaluates every task set file with one selection, in parallel, and
prints a per-file table and a summary. Directories are expanded to the
.txt, .ts, .json, .yaml and .yml files they contain. With -q the exit code
is 0 when every set is schedulable, 1 when some are not, 2 on errors.`,
		Example: `  schedkit batch testdata/tasksets -a rta -j 8
  schedkit batch sets/*.json -a edf -n 4 --fail-fast`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := sel.resolve(cmd)
			if err != nil {
				return err
			}
			opts, err := in.options()
			if err != nil {
				return err
			}
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no task set files found in %s", strings.Join(args, ", "))
			}

			p := parser.New(logger)
			jobs := make([]batch.Job, len(paths))
			for i, path := range paths {
				jobs[i].Name = path
				ts, err := p.LoadFile(path, opts)
				if err == nil {
					ts, err = sortTasks(ts, in.sort)
				}
				jobs[i].Tasks, jobs[i].Err = ts, err
			}

			runner := batch.NewRunner(newCatalog(cfg), cfg.Selection(), batch.Config{
				MaxWorkers: workers,
				FailFast:   failFast,
			}, logger)
			results, summary, runErr := runner.Run(cmd.Context(), jobs)

			out := cmd.OutOrStdout()
			switch {
			case quiet:
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"results": results, "summary": summary}); err != nil {
					return err
				}
			default:
				batch.PrintSummary(out, results, summary)
			}

			switch {
			case runErr != nil:
				return &ExitStatus{Code: ExitError, Err: runErr}
			case summary.Failed > 0:
				return &ExitStatus{Code: ExitError, Err: fmt.Errorf("%d of %d task sets failed", summary.Failed, summary.Count)}
			case quiet && summary.Schedulable < summary.Count:
				return &ExitStatus{Code: ExitNotSchedulable}
			}
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().MarkHidden("input")
	sel.register(cmd, "fp")
	cmd.Flags().IntVarP(&workers, "jobs", "j", batch.DefaultConfig().MaxWorkers, "Task sets analysed at once")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first file that cannot be loaded or analysed")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print nothing; the exit code carries the outcome")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results and summary as JSON")

	return cmd
}

// expandPaths replaces every directory in args by the task set files in it.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && taskSetExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
