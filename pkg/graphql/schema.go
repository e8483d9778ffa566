// Package graphql exposes an import graph and its reference databases
// through a read-only GraphQL API.
package graphql

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/storage"
)

// ErrNoImport is returned by fields that need an import graph when the
// schema was built without one
var ErrNoImport = errors.New("no import loaded")

// NewSchema builds the query schema over l and c with default limits.
// Either may be nil.
func NewSchema(l *linker.Linker, c *storage.Catalog) (graphql.Schema, error) {
	return NewSchemaWithLimits(l, c, DefaultLimits)
}

// NewSchemaWithLimits builds the query schema with custom result limits
func NewSchemaWithLimits(l *linker.Linker, c *storage.Catalog, limits LimitConfig) (graphql.Schema, error) {
	if err := ValidateLimitConfig(&limits); err != nil {
		return graphql.Schema{}, err
	}

	t := newTypes()
	r := &resolver{linker: l, catalog: c, limits: limits}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": {
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"statistics": {
				Type:    t.statistics,
				Resolve: r.statistics,
			},
			"unlinked": {
				Type: graphql.NewList(t.unlinked),
				Args: graphql.FieldConfigArgument{
					"type":   {Type: graphql.String},
					"unique": {Type: graphql.Boolean, DefaultValue: false},
					"limit":  {Type: graphql.Int, DefaultValue: -1},
				},
				Resolve: r.unlinked,
			},
			"processes": {
				Type: graphql.NewList(t.process),
				Args: graphql.FieldConfigArgument{
					"limit": {Type: graphql.Int, DefaultValue: -1},
				},
				Resolve: r.processes,
			},
			"databases": {
				Type:    graphql.NewList(t.database),
				Resolve: r.databases,
			},
			"database": {
				Type: t.database,
				Args: graphql.FieldConfigArgument{
					"name": {Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.database,
			},
			"record": {
				Type: t.process,
				Args: graphql.FieldConfigArgument{
					"key": {Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.record,
			},
			"search": {
				Type: graphql.NewList(t.searchResult),
				Args: graphql.FieldConfigArgument{
					"database": {Type: graphql.NewNonNull(graphql.String)},
					"term":     {Type: graphql.NewNonNull(graphql.String)},
					"limit":    {Type: graphql.Int, DefaultValue: -1},
				},
				Resolve: r.search,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

type resolver struct {
	linker  *linker.Linker
	catalog *storage.Catalog
	limits  LimitConfig
}

func (r *resolver) statistics(p graphql.ResolveParams) (any, error) {
	if r.linker == nil {
		return nil, ErrNoImport
	}
	return r.linker.Statistics(), nil
}

func (r *resolver) unlinked(p graphql.ResolveParams) (any, error) {
	if r.linker == nil {
		return nil, ErrNoImport
	}
	excType, _ := p.Args["type"].(string)
	unique, _ := p.Args["unique"].(bool)
	limit := r.limit(p)

	out := []unlinkedEntry{}
	add := func(proc *inventory.Process, exc *inventory.Exchange) bool {
		if excType != "" && exc.Type != excType {
			return true
		}
		if len(out) >= limit {
			return false
		}
		out = append(out, unlinkedEntry{Process: proc, Exchange: exc})
		return true
	}

	if unique {
		for exc := range r.linker.UnlinkedUnique() {
			if !add(nil, exc) {
				break
			}
		}
		return out, nil
	}
	for proc, exc := range r.linker.UnlinkedWithProcess() {
		if !add(proc, exc) {
			break
		}
	}
	return out, nil
}

func (r *resolver) processes(p graphql.ResolveParams) (any, error) {
	if r.linker == nil {
		return nil, ErrNoImport
	}
	procs := r.linker.Processes()
	return procs[:min(len(procs), r.limit(p))], nil
}

func (r *resolver) databases(p graphql.ResolveParams) (any, error) {
	if r.catalog == nil {
		return []databaseEntry{}, nil
	}
	names := r.catalog.Names()
	out := make([]databaseEntry, 0, len(names))
	for _, name := range names {
		db, err := r.catalog.Database(name)
		if err != nil {
			// deleted concurrently
			continue
		}
		out = append(out, databaseEntry{db: db, stats: db.Stats()})
	}
	return out, nil
}

func (r *resolver) database(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	db, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return databaseEntry{db: db, stats: db.Stats()}, nil
}

func (r *resolver) record(p graphql.ResolveParams) (any, error) {
	s, _ := p.Args["key"].(string)
	key, err := inventory.ParseKey(s)
	if err != nil {
		return nil, err
	}

	if r.linker != nil && key.Database == r.linker.Database() {
		for _, proc := range r.linker.Processes() {
			if proc.Code == key.Code {
				return proc, nil
			}
		}
		return nil, nil
	}

	db, err := r.lookup(key.Database)
	if err != nil {
		return nil, err
	}
	rec, err := db.Get(key.Code)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	return rec, err
}

func (r *resolver) search(p graphql.ResolveParams) (any, error) {
	name, _ := p.Args["database"].(string)
	term, _ := p.Args["term"].(string)

	db, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return db.Search(term, r.limit(p)), nil
}

func (r *resolver) lookup(name string) (*storage.Database, error) {
	if r.catalog == nil {
		return nil, storage.DatabaseNotFoundError(name)
	}
	return r.catalog.Database(name)
}

func (r *resolver) limit(p graphql.ResolveParams) int {
	requested, ok := p.Args["limit"].(int)
	if !ok {
		requested = -1
	}
	return applyLimit(requested, &r.limits)
}
