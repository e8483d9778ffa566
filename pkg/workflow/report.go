package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/linker"
)

// PassReport summarizes one match pass and the graph after it
type PassReport struct {
	Pool       string
	Fields     []inventory.Field
	Candidates int
	Linked     int
	Ambiguous  int
	Missing    int
	Duration   time.Duration
	Statistics linker.Statistics
}

// OverrideReport records how many exchanges one override changed
type OverrideReport struct {
	Name    string
	Target  inventory.Key
	Changed int
}

// Report is the outcome of a run
type Report struct {
	RunID      uuid.UUID
	Database   string
	Started    time.Time
	Duration   time.Duration
	Passes     []PassReport
	Overrides  []OverrideReport
	Statistics linker.Statistics
	Exported   int
	ExportName string
	Written    bool

	// Linker holds the linked graph for further inspection
	Linker *linker.Linker
}

// String renders the report for the terminal
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s\n", r.RunID, r.Database)
	for i, p := range r.Passes {
		fmt.Fprintf(&b, "pass %d against %s: %d linked, %d ambiguous, %d missing\n",
			i+1, p.Pool, p.Linked, p.Ambiguous, p.Missing)
	}
	for _, o := range r.Overrides {
		fmt.Fprintf(&b, "override %q -> %s: %d exchanges\n", o.Name, o.Target, o.Changed)
	}
	b.WriteString(r.Statistics.String())
	b.WriteByte('\n')
	if r.ExportName != "" {
		fmt.Fprintf(&b, "exported %d unlinked exchanges to %s\n", r.Exported, r.ExportName)
	}
	if r.Written {
		fmt.Fprintf(&b, "wrote database %s\n", r.Database)
	} else {
		b.WriteString("database not written\n")
	}
	return b.String()
}
