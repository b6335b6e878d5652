// Package catalog wires every analysis and designer into a registry and
// resolves algorithm selections against it.
package catalog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/me/schedkit/internal/analysis"
	"github.com/me/schedkit/internal/global"
	"github.com/me/schedkit/internal/hierarchical"
	"github.com/me/schedkit/internal/uniproc"
	"github.com/me/schedkit/pkg/model"
)

// Options carries the search limits handed to bounded algorithms. Zero
// values select each algorithm's own default.
type Options struct {
	MaxPoints  int
	MaxPeriods int
	PeriodMin  model.Time
	PeriodMax  model.Time
}

// DefaultOptions returns the limits used when none are configured.
func DefaultOptions() Options {
	return Options{MaxPeriods: hierarchical.DefaultMaxPeriods}
}

// Families lists the tests a policy runs, in order, until one passes.
var Families = map[string][]string{
	"uniproc-fp":  {"rm-simple", "rm", "rm-hyperbolic", "dm", "dm-interference", "rta", "rta-dm"},
	"uniproc-edf": {"edf"},
	"global-edf":  {"gfb", "gfb-sporadic", "baker", "bcl-edf", "bcl09-edf", "generic-edf", "baruah"},
	"global-fp":   {"bcl-dm", "bcl09-fp", "generic-fp", "rta-lc"},
}

// Catalog resolves selections to algorithms and runs them.
type Catalog struct {
	reg    *analysis.Registry
	opts   Options
	base   *slog.Logger
	logger *slog.Logger
}

// New builds a catalog holding every known algorithm.
func New(logger *slog.Logger, opts Options) *Catalog {
	reg := analysis.NewRegistry(logger)
	for _, a := range []analysis.Analyzer{
		uniproc.RMClassic{},
		uniproc.RMSimple{},
		uniproc.RMHyperbolic{},
		uniproc.DMDensity{},
		uniproc.DMInterference{},
		uniproc.NewRTA(),
		uniproc.NewRTADM(),
		uniproc.EDF{},
		global.GFB{},
		global.GFBSporadic{},
		global.BCLEDF{},
		global.BCLDM{},
		global.BCL09EDF{},
		global.BCL09FP{},
		global.Baker{},
		&global.Baruah{MaxPoints: opts.MaxPoints},
		global.RTALC{},
		global.Generic{},
		global.Generic{Policy: analysis.PolicyEDF},
		global.Generic{Policy: analysis.PolicyFP},
	} {
		reg.Register(a)
	}
	hopts := hierarchical.Options{
		PeriodMin:  opts.PeriodMin,
		PeriodMax:  opts.PeriodMax,
		MaxPeriods: opts.MaxPeriods,
		MaxPoints:  opts.MaxPoints,
	}
	reg.RegisterResource(&hierarchical.PRMEDF{MaxPoints: opts.MaxPoints})
	reg.RegisterResource(&hierarchical.PRMFP{MaxPoints: opts.MaxPoints})
	reg.RegisterDesigner(hierarchical.NewEDFDesigner(hopts))
	reg.RegisterDesigner(hierarchical.NewFPDesigner(hopts))
	reg.RegisterResource(&hierarchical.MPREDF{MaxPoints: opts.MaxPoints})
	reg.RegisterResource(hierarchical.MPRBCL09EDF{})
	reg.RegisterResource(hierarchical.MPRFP{})
	reg.RegisterDesigner(hierarchical.NewMPREDFDesigner(hopts))
	reg.RegisterDesigner(hierarchical.NewMPRFPDesigner(hopts))
	return &Catalog{reg: reg, opts: opts, base: logger, logger: logger.With("component", "catalog")}
}

// Options returns the limits the catalog was built with.
func (c *Catalog) Options() Options {
	return c.opts
}

// With returns a catalog whose algorithms use opts.
func (c *Catalog) With(opts Options) *Catalog {
	return New(c.base, opts)
}

// List returns every registered algorithm.
func (c *Catalog) List() []analysis.Info {
	return c.reg.List()
}

// Analyzer returns the analysis registered under name.
func (c *Catalog) Analyzer(name string) (analysis.Analyzer, error) {
	return c.reg.Analyzer(name)
}

// Resource returns the resource analysis registered under name.
func (c *Catalog) Resource(name string) (analysis.ResourceAnalyzer, error) {
	return c.reg.Resource(name)
}

// Designer returns the designer registered under name.
func (c *Catalog) Designer(name string) (analysis.Designer, error) {
	return c.reg.Designer(name)
}

// Selection names what to run: an algorithm or policy, an optional
// sub-test, and the platform size.
type Selection struct {
	Algorithm  string           `json:"algorithm" yaml:"algorithm"`
	Test       string           `json:"test,omitempty" yaml:"test,omitempty"`
	Processors int              `json:"processors" yaml:"processors"`
	Activation model.Activation `json:"activation,omitempty" yaml:"activation,omitempty"`
}

// Platform returns the platform the selection targets.
func (s Selection) Platform() model.Platform {
	return model.Platform{Processors: max(s.Processors, 1)}
}

var policyAliases = map[string]string{
	"fp":                      "fp",
	"fixed-priority":          "fp",
	"edf":                     "edf",
	"earliest-deadline-first": "edf",
}

// Resolve maps a selection to either a single algorithm name or a family.
// A policy alias selects the family for the platform size; with a test it
// selects that test, preferring the policy-specific spelling (suffix, then
// prefix) over the bare name.
func (c *Catalog) Resolve(sel Selection) (name string, family bool, err error) {
	algo := strings.ToLower(strings.TrimSpace(sel.Algorithm))
	test := strings.ToLower(strings.TrimSpace(sel.Test))
	policy, isPolicy := policyAliases[algo]
	if test != "" {
		cands := []string{algo + "-" + test, test}
		if isPolicy {
			cands = append([]string{test + "-" + policy, policy + "-" + test}, cands...)
		}
		for _, cand := range cands {
			if c.registered(cand) {
				return cand, false, nil
			}
		}
		return "", false, &analysis.UnknownAlgorithmError{Name: sel.Test, Kind: "test"}
	}
	if isPolicy {
		if sel.Platform().Processors == 1 {
			return "uniproc-" + policy, true, nil
		}
		return "global-" + policy, true, nil
	}
	if _, ok := Families[algo]; ok {
		return algo, true, nil
	}
	if c.registered(algo) {
		return algo, false, nil
	}
	return "", false, &analysis.UnknownAlgorithmError{Name: sel.Algorithm, Kind: "algorithm"}
}

func (c *Catalog) registered(name string) bool {
	if _, err := c.reg.Analyzer(name); err == nil {
		return true
	}
	if _, err := c.reg.Resource(name); err == nil {
		return true
	}
	_, err := c.reg.Designer(name)
	return err == nil
}

// Analyze runs the selected analysis, or every test of the selected family
// until one passes.
func (c *Catalog) Analyze(sel Selection, ts model.TaskSet) ([]model.AnalysisResult, error) {
	name, family, err := c.Resolve(sel)
	if err != nil {
		return nil, err
	}
	if family {
		return c.Family(name, sel, ts)
	}
	a, err := c.reg.Analyzer(name)
	if err != nil {
		if _, rerr := c.reg.Resource(name); rerr == nil {
			return nil, fmt.Errorf("%s analyses a periodic resource: an interface is required", name)
		}
		return nil, err
	}
	res, err := c.run(a, sel, ts)
	if err != nil {
		return nil, err
	}
	return []model.AnalysisResult{res}, nil
}

// AnalyzeWith runs the selected resource analysis inside r.
func (c *Catalog) AnalyzeWith(sel Selection, ts model.TaskSet, r model.PeriodicResourceModel) (model.AnalysisResult, error) {
	name, _, err := c.Resolve(sel)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	a, err := c.reg.Resource(name)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	res, err := analysis.RunWith(a, ts, sel.Platform(), r)
	if err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}
	c.logger.Debug("resource analysis finished", "algorithm", name, "interface", r.String(), "verdict", res.Verdict)
	return res, nil
}

// Family runs the tests of a family in order and stops at the first
// Schedulable verdict. Precondition violations do not stop the run.
func (c *Catalog) Family(name string, sel Selection, ts model.TaskSet) ([]model.AnalysisResult, error) {
	names, ok := Families[name]
	if !ok {
		return nil, &analysis.UnknownAlgorithmError{Name: name, Kind: "family"}
	}
	var results []model.AnalysisResult
	for _, n := range names {
		a, err := c.reg.Analyzer(n)
		if err != nil {
			return nil, err
		}
		res, err := c.run(a, sel, ts)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if res.IsSchedulable() {
			break
		}
	}
	return results, nil
}

func (c *Catalog) run(a analysis.Analyzer, sel Selection, ts model.TaskSet) (model.AnalysisResult, error) {
	if sel.Activation != "" {
		if res, ok := analysis.CheckActivation(a.Info(), sel.Activation); !ok {
			return res, nil
		}
	}
	res, err := analysis.Run(a, ts, sel.Platform())
	if err != nil {
		return res, fmt.Errorf("%s: %w", a.Info().Name, err)
	}
	c.logger.Debug("analysis finished", "algorithm", res.Algorithm, "tasks", len(ts),
		"processors", sel.Platform().Processors, "verdict", res.Verdict)
	return res, nil
}

// Design runs the selected designer.
func (c *Catalog) Design(sel Selection, ts model.TaskSet) (model.DesignResult, error) {
	name, _, err := c.Resolve(sel)
	if err != nil {
		return model.DesignResult{}, err
	}
	d, err := c.reg.Designer(name)
	if err != nil {
		return model.DesignResult{}, err
	}
	res, err := analysis.RunDesign(d, ts, sel.Platform())
	if err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}
	c.logger.Debug("design finished", "algorithm", name, "tasks", len(ts),
		"outcome", res.Outcome, "candidates", res.CandidatesTried, "oracle_calls", res.OracleCalls)
	return res, nil
}

// Verify re-checks a Found design with the designer's paired analysis.
func (c *Catalog) Verify(sel Selection, ts model.TaskSet, res model.DesignResult) (model.AnalysisResult, error) {
	d, err := c.reg.Designer(res.Algorithm)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return analysis.Verify(d, ts, sel.Platform(), res)
}

// Overall folds several results into one verdict: Schedulable if any test
// passed, otherwise NotSchedulable if any test ran, otherwise
// PreconditionViolated.
func Overall(results []model.AnalysisResult) model.Verdict {
	v := model.VerdictPreconditionViolated
	for _, r := range results {
		switch r.Verdict {
		case model.VerdictSchedulable:
			return model.VerdictSchedulable
		case model.VerdictNotSchedulable:
			v = model.VerdictNotSchedulable
		}
	}
	return v
}
