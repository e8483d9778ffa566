package storage

import (
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// Database is a named, in-memory set of records keyed by code. A Database
// is a linker pool: its records can be linked to by code.
type Database struct {
	name string

	records map[string]*inventory.Process
	order   []string            // insertion order of codes
	byType  map[string][]string // node type -> codes
	search  *searchIndex

	mu sync.RWMutex
}

// NewDatabase creates a database holding deep copies of processes. Records
// without a code are skipped; a repeated code replaces the earlier record.
func NewDatabase(name string, processes []*inventory.Process) *Database {
	db := &Database{name: name}
	db.replace(processes)
	return db
}

// replace swaps the database contents (must be called with lock held or
// before the database is shared)
func (db *Database) replace(processes []*inventory.Process) {
	db.records = make(map[string]*inventory.Process, len(processes))
	db.order = make([]string, 0, len(processes))
	db.byType = make(map[string][]string)
	db.search = newSearchIndex()

	for _, p := range processes {
		if p == nil || p.Code == "" {
			continue
		}
		rec := p.Clone()
		rec.Database = db.name
		if _, exists := db.records[rec.Code]; !exists {
			db.order = append(db.order, rec.Code)
		}
		db.records[rec.Code] = rec
	}

	for _, code := range db.order {
		rec := db.records[code]
		db.byType[rec.Type] = append(db.byType[rec.Type], code)
		db.search.add(&rec.Flow)
	}
}

// Name returns the database name
func (db *Database) Name() string {
	return db.name
}

// Len returns the number of records
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.records)
}

// Get returns a copy of the record with the given code
func (db *Database) Get(code string) (*inventory.Process, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rec, ok := db.records[code]
	if !ok {
		return nil, RecordNotFoundError(db.name, code)
	}
	return rec.Clone(), nil
}

// Contains reports whether a record with the given code exists
func (db *Database) Contains(code string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.records[code]
	return ok
}

// Entries yields the flows of every record in insertion order. The flows
// are shared with the database and must not be modified.
func (db *Database) Entries() iter.Seq[*inventory.Flow] {
	db.mu.RLock()
	flows := make([]*inventory.Flow, len(db.order))
	for i, code := range db.order {
		flows[i] = &db.records[code].Flow
	}
	db.mu.RUnlock()

	return slices.Values(flows)
}

// Records returns deep copies of every record in insertion order
func (db *Database) Records() []*inventory.Process {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]*inventory.Process, len(db.order))
	for i, code := range db.order {
		out[i] = db.records[code].Clone()
	}
	return out
}

// ByType returns copies of the flows of the given node type
func (db *Database) ByType(nodeType string) []*inventory.Flow {
	db.mu.RLock()
	defer db.mu.RUnlock()

	codes := db.byType[nodeType]
	out := make([]*inventory.Flow, len(codes))
	for i, code := range codes {
		out[i] = db.records[code].Flow.Clone()
	}
	return out
}

// Types returns the node types present in the database, sorted
func (db *Database) Types() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Sorted(maps.Keys(db.byType))
}

// Search returns up to limit records whose name, reference product,
// location or categories contain every term of query, ranked by TF-IDF.
// A non-positive limit returns every match.
func (db *Database) Search(query string, limit int) []SearchResult {
	db.mu.RLock()
	defer db.mu.RUnlock()

	scored := db.search.search(query)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]SearchResult, len(scored))
	for i, s := range scored {
		results[i] = SearchResult{
			Flow:  db.records[s.code].Flow.Clone(),
			Score: s.score,
		}
	}
	return results
}
