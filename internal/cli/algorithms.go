package cli

import (
	"encoding/json"
	"fmt"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/internal/catalog"
	"github.com/me/schedkit/internal/config"
	"github.com/spf13/cobra"
)

func newAlgorithmsCmd() *cobra.Command {
	var (
		family  string
		verbose bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:     "algorithms",
		Aliases: []string{"algos", "list"},
		Short:   "List the available analyses and designers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := newCatalog(config.DefaultAnalysisConfig())
			var infos []analysis.Info
			for _, info := range cat.List() {
				if family == "" || string(info.Family) == family {
					infos = append(infos, info)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(out, "No algorithms found.")
				return nil
			}

			fmt.Fprintf(out, "%-18s  %-12s  %-16s  %-10s  %-11s  %-5s  %s\n", "NAME", "FAMILY", "POLICY", "STRENGTH", "DEADLINES", "CPUS", "TITLE")
			fmt.Fprintf(out, "%-18s  %-12s  %-16s  %-10s  %-11s  %-5s  %s\n", "----", "------", "------", "--------", "---------", "----", "-----")
			for _, info := range infos {
				fmt.Fprintf(out, "%-18s  %-12s  %-16s  %-10s  %-11s  %-5s  %s\n",
					info.Name, info.Family, info.Policy, info.Strength, info.Deadlines, cpus(info), info.Title)
				if verbose {
					if info.Ordering != analysis.OrderAny {
						fmt.Fprintf(out, "%20s priority order: %s\n", "", info.Ordering)
					}
					if info.Complexity != "" {
						fmt.Fprintf(out, "%20s complexity: %s\n", "", info.Complexity)
					}
					if info.Citation != "" {
						fmt.Fprintf(out, "%20s %s\n", "", info.Citation)
					}
				}
			}

			if family == "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Families (run in order until one passes):")
				for _, name := range []string{"uniproc-fp", "uniproc-edf", "global-fp", "global-edf"} {
					fmt.Fprintf(out, "  %-12s %v\n", name, catalog.Families[name])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "Only list one family (uniproc-fp, uniproc-edf, global, hierarchical)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show ordering, complexity and citation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalogue as JSON")

	return cmd
}

func cpus(info analysis.Info) string {
	switch {
	case info.MaxProcessors == 0:
		return fmt.Sprintf("%d+", info.MinProcessors)
	case info.MinProcessors == info.MaxProcessors:
		return fmt.Sprintf("%d", info.MinProcessors)
	}
	return fmt.Sprintf("%d-%d", info.MinProcessors, info.MaxProcessors)
}
