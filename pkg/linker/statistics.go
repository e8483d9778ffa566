package linker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// Statistics is a read-only summary of the import graph
type Statistics struct {
	Nodes    int
	Edges    int
	Unlinked int
	// UniqueUnlinked counts distinct unlinked references (see UnlinkedUnique)
	UniqueUnlinked int
	// UnlinkedByType counts unlinked edges per exchange type
	UnlinkedByType map[string]int
	// LinkedByDatabase counts linked edges per target database
	LinkedByDatabase map[string]int
}

// Complete reports whether no edge is left unlinked
func (s Statistics) Complete() bool {
	return s.Unlinked == 0
}

// String renders the statistics as a short multi-line report
func (s Statistics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d graph nodes\n", s.Nodes)
	fmt.Fprintf(&b, "%d graph edges\n", s.Edges)
	if len(s.LinkedByDatabase) > 0 {
		dbs := make([]string, 0, len(s.LinkedByDatabase))
		for db := range s.LinkedByDatabase {
			dbs = append(dbs, db)
		}
		slices.Sort(dbs)
		for _, db := range dbs {
			fmt.Fprintf(&b, "  %d edges to %s\n", s.LinkedByDatabase[db], db)
		}
	}
	fmt.Fprintf(&b, "%d unique unlinked edges (%d total)", s.UniqueUnlinked, s.Unlinked)
	for _, t := range inventory.ExchangeTypes {
		if n := s.UnlinkedByType[t]; n > 0 {
			fmt.Fprintf(&b, "\n  %s: %d", t, n)
		}
	}
	return b.String()
}

// Statistics counts nodes, edges and unlinked edges. It does not modify the
// graph.
func (l *Linker) Statistics() Statistics {
	s := Statistics{
		Nodes:            len(l.processes),
		UnlinkedByType:   make(map[string]int),
		LinkedByDatabase: make(map[string]int),
	}
	for _, exc := range l.exchanges {
		s.Edges++
		if exc.Linked() {
			s.LinkedByDatabase[exc.Input.Database]++
			continue
		}
		s.Unlinked++
		s.UnlinkedByType[exc.Type]++
	}
	for range l.UnlinkedUnique() {
		s.UniqueUnlinked++
	}
	return s
}
