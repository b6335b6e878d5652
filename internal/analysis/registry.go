package analysis

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registry maps algorithm names to their implementations.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	analyzers map[string]Analyzer
	resources map[string]ResourceAnalyzer
	designers map[string]Designer
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		analyzers: make(map[string]Analyzer),
		resources: make(map[string]ResourceAnalyzer),
		designers: make(map[string]Designer),
		logger:    logger.With("component", "algorithm-registry"),
	}
}

// Register adds an Analyzer, keyed by its Info().Name.
func (r *Registry) Register(a Analyzer) {
	name := a.Info().Name
	r.analyzers[name] = a
	r.logger.Debug("analysis registered", "name", name)
}

// RegisterResource adds a ResourceAnalyzer, keyed by its Info().Name.
func (r *Registry) RegisterResource(a ResourceAnalyzer) {
	name := a.Info().Name
	r.resources[name] = a
	r.logger.Debug("resource analysis registered", "name", name)
}

// RegisterDesigner adds a Designer, keyed by its Info().Name.
func (r *Registry) RegisterDesigner(d Designer) {
	name := d.Info().Name
	r.designers[name] = d
	r.logger.Debug("designer registered", "name", name, "oracle", d.Oracle().Info().Name)
}

// Analyzer returns the analysis registered under name.
func (r *Registry) Analyzer(name string) (Analyzer, error) {
	a, ok := r.analyzers[name]
	if !ok {
		return nil, &UnknownAlgorithmError{Name: name, Kind: "analysis"}
	}
	return a, nil
}

// Resource returns the resource analysis registered under name.
func (r *Registry) Resource(name string) (ResourceAnalyzer, error) {
	a, ok := r.resources[name]
	if !ok {
		return nil, &UnknownAlgorithmError{Name: name, Kind: "resource analysis"}
	}
	return a, nil
}

// Designer returns the designer registered under name.
func (r *Registry) Designer(name string) (Designer, error) {
	d, ok := r.designers[name]
	if !ok {
		return nil, &UnknownAlgorithmError{Name: name, Kind: "designer"}
	}
	return d, nil
}

// List returns the Info of every registered algorithm: analyses, then
// resource analyses, then designers, each group sorted by family then name.
func (r *Registry) List() []Info {
	var as, rs, ds []Info
	for _, a := range r.analyzers {
		as = append(as, a.Info())
	}
	for _, a := range r.resources {
		rs = append(rs, a.Info())
	}
	for _, d := range r.designers {
		ds = append(ds, d.Info())
	}
	sortInfos(as)
	sortInfos(rs)
	sortInfos(ds)
	return append(append(as, rs...), ds...)
}

func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Family != infos[j].Family {
			return infos[i].Family < infos[j].Family
		}
		return infos[i].Name < infos[j].Name
	})
}

// UnknownAlgorithmError is returned for a name nothing is registered under.
type UnknownAlgorithmError struct {
	Name string
	Kind string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("no %s registered for %q", e.Kind, e.Name)
}
