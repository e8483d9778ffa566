package linker

import (
	"iter"
	"strings"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// Unlinked yields the exchanges still missing an input. The sequence is lazy
// and can be ranged over any number of times; each range reflects the graph
// at that moment.
func (l *Linker) Unlinked() iter.Seq[*inventory.Exchange] {
	return func(yield func(*inventory.Exchange) bool) {
		for _, exc := range l.exchanges {
			if exc.Linked() {
				continue
			}
			if !yield(exc) {
				return
			}
		}
	}
}

// UnlinkedWithProcess is Unlinked with the owning process of each exchange
func (l *Linker) UnlinkedWithProcess() iter.Seq2[*inventory.Process, *inventory.Exchange] {
	return func(yield func(*inventory.Process, *inventory.Exchange) bool) {
		for p, exc := range l.exchanges {
			if exc.Linked() {
				continue
			}
			if !yield(p, exc) {
				return
			}
		}
	}
}

// UnlinkedUnique yields one exchange per distinct unlinked reference, i.e.
// per (type, name, unit, location, categories, reference product).
func (l *Linker) UnlinkedUnique() iter.Seq[*inventory.Exchange] {
	return func(yield func(*inventory.Exchange) bool) {
		seen := make(map[string]struct{})
		for exc := range l.Unlinked() {
			id := strings.Join([]string{
				exc.Type,
				exc.Name,
				exc.Unit,
				exc.Location,
				strings.Join(exc.Categories, "\x1e"),
				exc.ReferenceProduct,
			}, "\x1f")
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if !yield(exc) {
				return
			}
		}
	}
}
