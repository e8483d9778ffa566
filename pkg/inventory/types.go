package inventory

import (
	"fmt"
	"strings"
)

// Exchange types
const (
	TypeProduction   = "production"
	TypeTechnosphere = "technosphere"
	TypeSubstitution = "substitution"
	TypeBiosphere    = "biosphere"
)

// Node types
const (
	NodeProduct         = "product"
	NodeProcess         = "process"
	NodeEmission        = "emission"
	NodeNaturalResource = "natural resource"
)

// ExchangeTypes lists every exchange type in a stable order
var ExchangeTypes = []string{TypeProduction, TypeTechnosphere, TypeSubstitution, TypeBiosphere}

// TechnosphereTypes are the exchange types resolved against activities
var TechnosphereTypes = []string{TypeProduction, TypeTechnosphere, TypeSubstitution}

// Key uniquely identifies an entry in a database
type Key struct {
	Database string `json:"database" yaml:"database"`
	Code     string `json:"code" yaml:"code"`
}

// String returns the key in database/code form
func (k Key) String() string {
	return k.Database + "/" + k.Code
}

// IsZero reports whether the key is empty
func (k Key) IsZero() bool {
	return k.Database == "" && k.Code == ""
}

// ParseKey parses a key in database/code form. The code may not contain a
// slash but the database name may.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, "/")
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("invalid key %q: expected database/code", s)
	}
	return Key{Database: s[:i], Code: s[i+1:]}, nil
}

// Flow is an addressable entry of a database: an elementary flow, a product
// or an activity.
type Flow struct {
	Key              `yaml:",inline"`
	Name             string   `json:"name" yaml:"name" validate:"required"`
	Unit             string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Location         string   `json:"location,omitempty" yaml:"location,omitempty"`
	Categories       []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	ReferenceProduct string   `json:"reference_product,omitempty" yaml:"reference_product,omitempty"`
	Type             string   `json:"type,omitempty" yaml:"type,omitempty"`
}

// Process is a node of the inventory graph that owns an ordered list of
// exchanges. Product nodes and elementary flows have no exchanges.
type Process struct {
	Flow      `yaml:",inline"`
	Comment   string      `json:"comment,omitempty" yaml:"comment,omitempty"`
	Exchanges []*Exchange `json:"exchanges,omitempty" yaml:"exchanges,omitempty" validate:"dive"`
}

// Exchange is a reference from a process to a flow. Input is nil until the
// exchange is linked.
type Exchange struct {
	Type             string   `json:"type" yaml:"type" validate:"required,oneof=production technosphere substitution biosphere"`
	Name             string   `json:"name" yaml:"name" validate:"required"`
	Amount           float64  `json:"amount" yaml:"amount"`
	Unit             string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Location         string   `json:"location,omitempty" yaml:"location,omitempty"`
	Categories       []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	ReferenceProduct string   `json:"reference_product,omitempty" yaml:"reference_product,omitempty"`
	Comment          string   `json:"comment,omitempty" yaml:"comment,omitempty"`
	Input            *Key     `json:"input,omitempty" yaml:"input,omitempty"`
}

// Linked reports whether the exchange has a resolved input
func (e *Exchange) Linked() bool {
	return e.Input != nil
}

// Clone creates a deep copy of an exchange
func (e *Exchange) Clone() *Exchange {
	clone := *e
	clone.Categories = cloneStrings(e.Categories)
	if e.Input != nil {
		input := *e.Input
		clone.Input = &input
	}
	return &clone
}

// Clone creates a deep copy of a flow
func (f *Flow) Clone() *Flow {
	clone := *f
	clone.Categories = cloneStrings(f.Categories)
	return &clone
}

// Clone creates a deep copy of a process and its exchanges
func (p *Process) Clone() *Process {
	clone := &Process{
		Flow:    *p.Flow.Clone(),
		Comment: p.Comment,
	}
	if p.Exchanges != nil {
		clone.Exchanges = make([]*Exchange, len(p.Exchanges))
		for i, exc := range p.Exchanges {
			clone.Exchanges[i] = exc.Clone()
		}
	}
	return clone
}

// CloneAll deep copies a slice of processes
func CloneAll(processes []*Process) []*Process {
	out := make([]*Process, len(processes))
	for i, p := range processes {
		out[i] = p.Clone()
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
