package graphql

import (
	"cmp"
	"maps"
	"slices"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/storage"
)

// unlinkedEntry is an unlinked exchange with the process that owns it.
// Process is nil for de-duplicated listings.
type unlinkedEntry struct {
	Process  *inventory.Process
	Exchange *inventory.Exchange
}

// databaseEntry pairs a database with its statistics
type databaseEntry struct {
	db    *storage.Database
	stats storage.DatabaseStats
}

// count is one entry of a map-valued statistic
type count struct {
	Key   string
	Count int
}

func counts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, count{Key: k, Count: m[k]})
	}
	slices.SortStableFunc(out, func(a, b count) int { return cmp.Compare(b.Count, a.Count) })
	return out
}

// resolveFrom adapts a getter on a known source type into a resolver
func resolveFrom[T any](get func(T) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		src, ok := p.Source.(T)
		if !ok {
			return nil, nil
		}
		return get(src), nil
	}
}

// asFlow accepts both flows and processes as a flow source
func asFlow(src any) *inventory.Flow {
	switch v := src.(type) {
	case *inventory.Flow:
		return v
	case *inventory.Process:
		return &v.Flow
	}
	return nil
}

func flowField(t graphql.Output, get func(*inventory.Flow) any) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			f := asFlow(p.Source)
			if f == nil {
				return nil, nil
			}
			return get(f), nil
		},
	}
}

// flowFields returns the descriptive fields shared by flows and processes
func flowFields() graphql.Fields {
	return graphql.Fields{
		"database":         flowField(graphql.String, func(f *inventory.Flow) any { return f.Database }),
		"code":             flowField(graphql.ID, func(f *inventory.Flow) any { return f.Code }),
		"key":              flowField(graphql.String, func(f *inventory.Flow) any { return f.Key.String() }),
		"name":             flowField(graphql.String, func(f *inventory.Flow) any { return f.Name }),
		"unit":             flowField(graphql.String, func(f *inventory.Flow) any { return f.Unit }),
		"location":         flowField(graphql.String, func(f *inventory.Flow) any { return f.Location }),
		"categories":       flowField(graphql.NewList(graphql.String), func(f *inventory.Flow) any { return f.Categories }),
		"referenceProduct": flowField(graphql.String, func(f *inventory.Flow) any { return f.ReferenceProduct }),
		"type":             flowField(graphql.String, func(f *inventory.Flow) any { return f.Type }),
	}
}

func newTypes() *types {
	t := &types{}

	t.flow = graphql.NewObject(graphql.ObjectConfig{
		Name:   "Flow",
		Fields: flowFields(),
	})

	t.exchange = graphql.NewObject(graphql.ObjectConfig{
		Name: "Exchange",
		Fields: graphql.Fields{
			"type":             {Type: graphql.String, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Type })},
			"name":             {Type: graphql.String, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Name })},
			"amount":           {Type: graphql.Float, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Amount })},
			"unit":             {Type: graphql.String, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Unit })},
			"location":         {Type: graphql.String, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Location })},
			"categories":       {Type: graphql.NewList(graphql.String), Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Categories })},
			"referenceProduct": {Type: graphql.String, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.ReferenceProduct })},
			"comment":          {Type: graphql.String, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Comment })},
			"linked":           {Type: graphql.Boolean, Resolve: resolveFrom(func(e *inventory.Exchange) any { return e.Linked() })},
			"input": {Type: graphql.String, Resolve: resolveFrom(func(e *inventory.Exchange) any {
				if e.Input == nil {
					return nil
				}
				return e.Input.String()
			})},
		},
	})

	processFields := flowFields()
	processFields["comment"] = &graphql.Field{
		Type:    graphql.String,
		Resolve: resolveFrom(func(p *inventory.Process) any { return p.Comment }),
	}
	processFields["exchanges"] = &graphql.Field{
		Type:    graphql.NewList(t.exchange),
		Resolve: resolveFrom(func(p *inventory.Process) any { return p.Exchanges }),
	}
	t.process = graphql.NewObject(graphql.ObjectConfig{
		Name:   "Process",
		Fields: processFields,
	})

	t.unlinked = graphql.NewObject(graphql.ObjectConfig{
		Name: "UnlinkedExchange",
		Fields: graphql.Fields{
			"process":  {Type: t.flow, Resolve: resolveFrom(func(u unlinkedEntry) any { return flowOrNil(u.Process) })},
			"exchange": {Type: t.exchange, Resolve: resolveFrom(func(u unlinkedEntry) any { return u.Exchange })},
		},
	})

	t.count = graphql.NewObject(graphql.ObjectConfig{
		Name: "Count",
		Fields: graphql.Fields{
			"key":   {Type: graphql.String, Resolve: resolveFrom(func(c count) any { return c.Key })},
			"count": {Type: graphql.Int, Resolve: resolveFrom(func(c count) any { return c.Count })},
		},
	})

	t.statistics = graphql.NewObject(graphql.ObjectConfig{
		Name: "Statistics",
		Fields: graphql.Fields{
			"nodes":            {Type: graphql.Int, Resolve: resolveFrom(func(s linker.Statistics) any { return s.Nodes })},
			"edges":            {Type: graphql.Int, Resolve: resolveFrom(func(s linker.Statistics) any { return s.Edges })},
			"unlinked":         {Type: graphql.Int, Resolve: resolveFrom(func(s linker.Statistics) any { return s.Unlinked })},
			"uniqueUnlinked":   {Type: graphql.Int, Resolve: resolveFrom(func(s linker.Statistics) any { return s.UniqueUnlinked })},
			"complete":         {Type: graphql.Boolean, Resolve: resolveFrom(func(s linker.Statistics) any { return s.Complete() })},
			"unlinkedByType":   {Type: graphql.NewList(t.count), Resolve: resolveFrom(func(s linker.Statistics) any { return counts(s.UnlinkedByType) })},
			"linkedByDatabase": {Type: graphql.NewList(t.count), Resolve: resolveFrom(func(s linker.Statistics) any { return counts(s.LinkedByDatabase) })},
		},
	})

	t.searchResult = graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"flow":  {Type: t.flow, Resolve: resolveFrom(func(r storage.SearchResult) any { return r.Flow })},
			"score": {Type: graphql.Float, Resolve: resolveFrom(func(r storage.SearchResult) any { return r.Score })},
		},
	})

	t.database = graphql.NewObject(graphql.ObjectConfig{
		Name: "Database",
		Fields: graphql.Fields{
			"name":      {Type: graphql.String, Resolve: resolveFrom(func(d databaseEntry) any { return d.stats.Name })},
			"records":   {Type: graphql.Int, Resolve: resolveFrom(func(d databaseEntry) any { return d.stats.Records })},
			"exchanges": {Type: graphql.Int, Resolve: resolveFrom(func(d databaseEntry) any { return d.stats.Exchanges })},
			"unlinked":  {Type: graphql.Int, Resolve: resolveFrom(func(d databaseEntry) any { return d.stats.Unlinked })},
			"byType":    {Type: graphql.NewList(t.count), Resolve: resolveFrom(func(d databaseEntry) any { return counts(d.stats.ByType) })},
			"record": {
				Type: t.process,
				Args: graphql.FieldConfigArgument{
					"code": {Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					d, ok := p.Source.(databaseEntry)
					if !ok {
						return nil, nil
					}
					code, _ := p.Args["code"].(string)
					rec, err := d.db.Get(code)
					if storage.IsNotFound(err) {
						return nil, nil
					}
					return rec, err
				},
			},
		},
	})

	return t
}

type types struct {
	flow         *graphql.Object
	process      *graphql.Object
	exchange     *graphql.Object
	unlinked     *graphql.Object
	count        *graphql.Object
	statistics   *graphql.Object
	database     *graphql.Object
	searchResult *graphql.Object
}

func flowOrNil(p *inventory.Process) any {
	if p == nil {
		return nil
	}
	return &p.Flow
}
