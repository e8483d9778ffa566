package linker

import (
	"slices"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
)

// Predicate selects exchanges for a manual override
type Predicate func(*inventory.Exchange) bool

// Resolver returns the flow an exchange should be linked to, or false to
// leave the exchange alone.
type Resolver func(*inventory.Exchange) (*inventory.Flow, bool)

// ByType selects exchanges of the given type
func ByType(t string) Predicate {
	return func(e *inventory.Exchange) bool { return e.Type == t }
}

// ByName selects exchanges with exactly the given name
func ByName(name string) Predicate {
	return func(e *inventory.Exchange) bool { return e.Name == name }
}

// UnlinkedOnly selects exchanges without an input
func UnlinkedOnly() Predicate {
	return func(e *inventory.Exchange) bool { return !e.Linked() }
}

// And selects exchanges matching every predicate
func And(preds ...Predicate) Predicate {
	return func(e *inventory.Exchange) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}
}

// LinkTo resolves every selected exchange to flow
func LinkTo(flow *inventory.Flow) Resolver {
	return func(*inventory.Exchange) (*inventory.Flow, bool) {
		return flow, flow != nil && flow.Code != ""
	}
}

type overrideConfig struct {
	rename bool
}

// OverrideOption configures a manual override
type OverrideOption func(*overrideConfig)

// Rename makes overridden exchanges adopt the target's name
func Rename() OverrideOption {
	return func(c *overrideConfig) {
		c.rename = true
	}
}

// ManualOverride links every exchange selected by pred, linked or not, to the
// flow returned by resolve, bypassing field matching.
//
// The input is always set to the target's key. Biosphere exchanges also take
// the target's categories, so elementary flows always carry the canonical
// categories of the flow they point to; other exchange types keep theirs.
// With Rename the target's name is adopted as well.
//
// It returns the number of exchanges whose state changed, so re-applying the
// same override returns 0.
func (l *Linker) ManualOverride(pred Predicate, resolve Resolver, opts ...OverrideOption) int {
	var cfg overrideConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	changed := 0
	for _, exc := range l.exchanges {
		if !pred(exc) {
			continue
		}
		target, ok := resolve(exc)
		if !ok || target == nil {
			continue
		}
		if applyOverride(exc, target, cfg) {
			changed++
		}
	}

	l.metrics.RecordOverride(l.database, changed)
	l.metrics.SetUnlinked(l.database, l.countUnlinked())
	l.logger.Info("manual override", logging.Count(changed))
	return changed
}

func applyOverride(exc *inventory.Exchange, target *inventory.Flow, cfg overrideConfig) bool {
	changed := false
	if exc.Input == nil || *exc.Input != target.Key {
		key := target.Key
		exc.Input = &key
		changed = true
	}
	if exc.Type == inventory.TypeBiosphere && !slices.Equal(exc.Categories, target.Categories) {
		exc.Categories = slices.Clone(target.Categories)
		changed = true
	}
	if cfg.rename && exc.Name != target.Name {
		exc.Name = target.Name
		changed = true
	}
	return changed
}
