package linker

import (
	"slices"
	"time"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
)

type matchConfig struct {
	fields []inventory.Field
	kinds  []string
}

// MatchOption configures a match pass
type MatchOption func(*matchConfig)

// WithFields sets the fields an exchange and a pool entry must agree on.
// Order does not matter. An empty list means inventory.DefaultFields; an
// unknown field makes the pass link nothing.
func WithFields(fields ...inventory.Field) MatchOption {
	return func(c *matchConfig) {
		c.fields = fields
	}
}

// WithKinds restricts a pass to exchanges of the given types. By default
// every unlinked exchange is a candidate.
func WithKinds(kinds ...string) MatchOption {
	return func(c *matchConfig) {
		c.kinds = kinds
	}
}

// Unresolved describes an exchange a match pass could not link
type Unresolved struct {
	Process  *inventory.Process
	Exchange *inventory.Exchange
	// Cause is ErrAmbiguousMatch or ErrUnlinkedReference
	Cause      error
	Candidates int
}

// MatchResult summarizes one match pass
type MatchResult struct {
	Pool       string
	Fields     []inventory.Field
	Candidates int // unlinked exchanges examined
	Linked     int
	Ambiguous  int
	Missing    int
	Unresolved []Unresolved
	Duration   time.Duration
}

type poolIndex struct {
	count map[inventory.MatchKey]int
	first map[inventory.MatchKey]*inventory.Flow
}

func buildIndex(pool Pool, fields []inventory.Field) poolIndex {
	idx := poolIndex{
		count: make(map[inventory.MatchKey]int),
		first: make(map[inventory.MatchKey]*inventory.Flow),
	}
	for flow := range pool.Entries() {
		if flow == nil {
			continue
		}
		k := inventory.FlowKey(flow, fields)
		if idx.count[k] == 0 {
			idx.first[k] = flow
		}
		idx.count[k]++
	}
	return idx
}

// Match tries to link every unlinked exchange to an entry of pool. An
// exchange is linked iff exactly one entry has an identical key over the
// configured fields and that entry has a code; ambiguous and absent matches
// stay unlinked. Entries without a code still count towards ambiguity. Already
// linked exchanges are never touched, so repeated passes are idempotent and
// the unlinked count never grows.
func (l *Linker) Match(pool Pool, opts ...MatchOption) MatchResult {
	if pool == nil {
		l.logger.Warn("match skipped", logging.Error(ErrNilPool))
		return MatchResult{}
	}

	cfg := matchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	fields, err := checkFields(cfg.fields)
	if err != nil {
		l.logger.Warn("match skipped", logging.Pool(pool.Name()), logging.Error(err))
		return MatchResult{Pool: pool.Name()}
	}

	start := time.Now()
	idx := buildIndex(pool, fields)
	result := MatchResult{Pool: pool.Name(), Fields: fields}

	for p, exc := range l.exchanges {
		if exc.Linked() {
			continue
		}
		if len(cfg.kinds) > 0 && !slices.Contains(cfg.kinds, exc.Type) {
			continue
		}
		result.Candidates++

		k := inventory.ExchangeKey(exc, fields)
		n := idx.count[k]
		if n == 1 && idx.first[k].Code == "" {
			n = 0
		}
		switch n {
		case 1:
			key := idx.first[k].Key
			exc.Input = &key
			result.Linked++
		case 0:
			result.Missing++
			result.Unresolved = append(result.Unresolved, Unresolved{Process: p, Exchange: exc, Cause: ErrUnlinkedReference})
		default:
			result.Ambiguous++
			result.Unresolved = append(result.Unresolved, Unresolved{Process: p, Exchange: exc, Cause: ErrAmbiguousMatch, Candidates: n})
			l.logger.Debug("ambiguous match left unlinked",
				logging.Pool(result.Pool),
				logging.String("exchange", exc.Name),
				logging.Int("candidates", n),
			)
		}
	}
	result.Duration = time.Since(start)

	unlinked := l.countUnlinked()
	l.metrics.RecordMatchPass(result.Pool, result.Linked, result.Ambiguous, result.Missing, result.Duration)
	l.metrics.SetUnlinked(l.database, unlinked)
	l.logger.Info("match pass",
		logging.Pool(result.Pool),
		logging.Strings("fields", fieldNames(fields)),
		logging.Int("linked", result.Linked),
		logging.Int("ambiguous", result.Ambiguous),
		logging.Int("missing", result.Missing),
		logging.Int("unlinked", unlinked),
		logging.Latency(result.Duration),
	)
	return result
}

// MatchSelf links exchanges against the batch itself
func (l *Linker) MatchSelf(opts ...MatchOption) MatchResult {
	return l.Match(l.SelfPool(), opts...)
}

// checkFields normalizes the configured fields. Without a known field every
// key would be empty and every entry would match.
func checkFields(fields []inventory.Field) ([]inventory.Field, error) {
	if len(fields) == 0 {
		return inventory.NormalizeFields(inventory.DefaultFields), nil
	}
	parsed := make([]inventory.Field, len(fields))
	for i, f := range fields {
		p, err := inventory.ParseField(string(f))
		if err != nil {
			return nil, NewError("match").Kind(ErrUnknownField).Cause(err).Err()
		}
		parsed[i] = p
	}
	return inventory.NormalizeFields(parsed), nil
}

func fieldNames(fields []inventory.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
