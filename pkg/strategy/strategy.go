// Package strategy normalizes an import batch before it is linked. A
// strategy rewrites the records of the batch in place and returns the
// batch; slices it replaces are fresh copies, never edited in place. A
// Pipeline applies strategies in order.
package strategy

import (
	"fmt"
	"slices"
	"sort"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
)

// Strategy transforms a batch of processes
type Strategy func([]*inventory.Process) []*inventory.Process

// Named pairs a strategy with the name used to select it in workflows
type Named struct {
	Name  string
	Apply Strategy
}

// Strategy names
const (
	StripWhitespace              = "strip_whitespace"
	NormalizeUnits               = "normalize_units"
	NormalizeBiosphereCategories = "normalize_biosphere_categories"
	SplitEcoinventNames          = "split_simapro_ecoinvent_names"
	DropZeroAmounts              = "drop_zero_amounts"
	SetCodesByActivityHash       = "set_codes_by_activity_hash"
)

var registry = map[string]Strategy{
	StripWhitespace:              stripWhitespace,
	NormalizeUnits:               normalizeUnits,
	NormalizeBiosphereCategories: normalizeBiosphereCategories,
	SplitEcoinventNames:          splitEcoinventNames,
	DropZeroAmounts:              dropZeroAmounts,
	SetCodesByActivityHash:       setCodesByActivityHash,
}

// DefaultStrategies are applied to every SimaPro import
var DefaultStrategies = []string{
	StripWhitespace,
	NormalizeUnits,
	NormalizeBiosphereCategories,
	SetCodesByActivityHash,
}

// EcoinventStrategies are added when the batch references ecoinvent
// activities by their SimaPro names
var EcoinventStrategies = []string{
	SplitEcoinventNames,
}

// Lookup returns the strategy registered under name
func Lookup(name string) (Strategy, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names lists the registered strategy names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline is an ordered list of strategies
type Pipeline struct {
	steps   []Named
	metrics *metrics.Registry
}

// NewPipeline builds a pipeline from registered strategy names
func NewPipeline(names ...string) (*Pipeline, error) {
	p := &Pipeline{}
	for _, name := range names {
		s, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q (known: %v)", name, Names())
		}
		p.steps = append(p.steps, Named{Name: name, Apply: s})
	}
	return p, nil
}

// WithMetrics records every applied strategy in r
func (p *Pipeline) WithMetrics(r *metrics.Registry) *Pipeline {
	p.metrics = r
	return p
}

// Add appends a custom strategy
func (p *Pipeline) Add(name string, s Strategy) *Pipeline {
	p.steps = append(p.steps, Named{Name: name, Apply: s})
	return p
}

// Steps returns the strategy names in order
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Apply runs every strategy in order
func (p *Pipeline) Apply(processes []*inventory.Process) []*inventory.Process {
	for _, step := range p.steps {
		processes = step.Apply(processes)
		if p.metrics != nil {
			p.metrics.RecordStrategy(step.Name)
		}
	}
	return processes
}

// Contains reports whether the pipeline includes the named strategy
func (p *Pipeline) Contains(name string) bool {
	return slices.ContainsFunc(p.steps, func(n Named) bool { return n.Name == name })
}
