package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/config"
	"github.com/me/schedkit/internal/parser"
	"github.com/me/schedkit/internal/store"
	"github.com/me/schedkit/pkg/model"
	"github.com/spf13/cobra"
)

// inputFlags select and decode a task set file.
type inputFlags struct {
	path   string
	format string
	scale  int64
	sort   string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "input", "i", "", "Task set file, - for stdin")
	cmd.Flags().StringVarP(&f.format, "format", "f", "auto", "Task set format (auto, plain, json, yaml)")
	cmd.Flags().Int64Var(&f.scale, "scale", 1, "Ticks per input unit, e.g. 1000 reads milliseconds as microseconds")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Reorder tasks before analysis (period, deadline)")
}

func (f *inputFlags) options() (parser.Options, error) {
	format, err := parser.ParseFormat(f.format)
	if err != nil {
		return parser.Options{}, err
	}
	return parser.Options{Format: format, Scale: f.scale}, nil
}

// load reads the task set named by -i and applies --sort.
func (f *inputFlags) load(cmd *cobra.Command) (model.TaskSet, error) {
	if f.path == "" {
		return nil, fmt.Errorf("a task set file is required (-i)")
	}
	opts, err := f.options()
	if err != nil {
		return nil, err
	}
	p := parser.New(logger)

	var ts model.TaskSet
	if f.path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		ts, err = p.Parse(data, "stdin", opts)
		if err != nil {
			return nil, err
		}
	} else {
		ts, err = p.LoadFile(f.path, opts)
		if err != nil {
			return nil, err
		}
	}
	return sortTasks(ts, f.sort)
}

func sortTasks(ts model.TaskSet, order string) (model.TaskSet, error) {
	switch order {
	case "":
		return ts, nil
	case "period", "rm":
		return ts.ByPeriod(), nil
	case "deadline", "dm":
		return ts.ByDeadline(), nil
	}
	return nil, fmt.Errorf("unknown sort order %q (want period or deadline)", order)
}

// selectionFlags pick the algorithm, either directly or from a config file.
type selectionFlags struct {
	config     string
	algorithm  string
	test       string
	processors int
	activation string
	maxPoints  int
	maxPeriods int
}

func (f *selectionFlags) register(cmd *cobra.Command, defaultAlgorithm string) {
	cmd.Flags().StringVar(&f.config, "config", "", "Selection file (YAML or JSON); flags override its fields")
	cmd.Flags().StringVarP(&f.algorithm, "algorithm", "a", defaultAlgorithm, "Algorithm, family, or policy (fp, edf)")
	cmd.Flags().StringVar(&f.test, "test", "", "Run one test of the selected policy")
	cmd.Flags().IntVarP(&f.processors, "processors", "n", 1, "Number of identical processors")
	cmd.Flags().StringVar(&f.activation, "activation", "", "Release model of the input (periodic, sporadic)")
	cmd.Flags().IntVar(&f.maxPoints, "max-points", 0, "Time points a bounded analysis may evaluate (0: algorithm default)")
	cmd.Flags().IntVar(&f.maxPeriods, "max-periods", 0, "Candidate periods a designer may try (0: default)")
}

// resolve merges the config file, if any, with the flags set on cmd.
func (f *selectionFlags) resolve(cmd *cobra.Command) (config.AnalysisConfig, error) {
	cfg := config.DefaultAnalysisConfig()
	if f.config != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfig(f.config); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if f.config == "" || flags.Changed("algorithm") {
		cfg.Algorithm = f.algorithm
	}
	if f.config == "" || flags.Changed("processors") {
		cfg.Processors = f.processors
	}
	if flags.Changed("test") {
		cfg.Test = f.test
	}
	if flags.Changed("activation") {
		cfg.Activation = model.Activation(f.activation)
	}
	if flags.Changed("max-points") {
		cfg.MaxPoints = f.maxPoints
	}
	if flags.Changed("max-periods") {
		cfg.MaxPeriods = f.maxPeriods
	}
	return cfg, cfg.Validate()
}

// openCache opens the --db result cache. It returns nil when caching is off.
func openCache(cmd *cobra.Command) (store.Store, error) {
	if flagDB == "" {
		return nil, nil
	}
	return openStore(cmd, flagDB)
}

func openStore(cmd *cobra.Command, path string) (store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open result cache: %w", err)
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate result cache: %w", err)
	}
	return st, nil
}

func newCatalog(cfg config.AnalysisConfig) *catalog.Catalog {
	return catalog.New(logger, cfg.CatalogOptions())
}

// describeTaskSet prints the one-line summary shown above every report.
func describeTaskSet(w io.Writer, ts model.TaskSet, p model.Platform) {
	hyper := "overflows"
	if h, ok := ts.Hyperperiod(); ok {
		hyper = humanize.Comma(int64(h))
	}
	fmt.Fprintf(w, "Task set: %d tasks, %s deadlines, U = %.4f, density = %.4f, hyperperiod %s, %d processor%s\n",
		len(ts), ts.DeadlineModel(), ts.TotalUtilization(), ts.TotalDensity(), hyper, p.Processors, plural(p.Processors))
}

func printResult(w io.Writer, res model.AnalysisResult) {
	fmt.Fprintf(w, "  %-18s %-22s %s\n", res.Algorithm, res.Verdict, res.Strength)
	if res.Reason != "" {
		fmt.Fprintf(w, "  %-18s %s\n", "", res.Reason)
	}
	if len(res.ResponseTimes) > 0 && res.IsSchedulable() {
		fmt.Fprintf(w, "  %-18s response times %v\n", "", res.ResponseTimes)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
