package linker

import (
	"iter"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// Pool is a set of candidate flows an exchange can be linked to. Entries
// with an empty code are never linked to, but they do make a key ambiguous.
type Pool interface {
	Name() string
	Entries() iter.Seq[*inventory.Flow]
}

// FlowPool is a slice-backed pool
type FlowPool struct {
	name  string
	flows []*inventory.Flow
}

// NewFlowPool creates a pool over flows
func NewFlowPool(name string, flows ...*inventory.Flow) *FlowPool {
	return &FlowPool{name: name, flows: flows}
}

func (p *FlowPool) Name() string { return p.name }

func (p *FlowPool) Entries() iter.Seq[*inventory.Flow] {
	return func(yield func(*inventory.Flow) bool) {
		for _, f := range p.flows {
			if !yield(f) {
				return
			}
		}
	}
}

// SelfPoolName names the batch under import in results and logs
const SelfPoolName = "self"

type selfPool struct {
	l *Linker
}

func (p selfPool) Name() string { return SelfPoolName }

func (p selfPool) Entries() iter.Seq[*inventory.Flow] {
	return func(yield func(*inventory.Flow) bool) {
		for _, proc := range p.l.processes {
			if !yield(&proc.Flow) {
				return
			}
		}
	}
}
