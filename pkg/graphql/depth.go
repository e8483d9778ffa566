package graphql

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth bounds nesting of queries served over HTTP
const DefaultMaxDepth = 6

// calculateQueryDepth calculates the maximum depth of a GraphQL query
func calculateQueryDepth(document *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, definition := range document.Definitions {
		if frag, ok := definition.(*ast.FragmentDefinition); ok && frag.Name != nil {
			fragments[frag.Name.Value] = frag
		}
	}

	maxDepth := 0
	for _, definition := range document.Definitions {
		if def, ok := definition.(*ast.OperationDefinition); ok {
			maxDepth = max(maxDepth, selectionSetDepth(def.SelectionSet, 1, fragments, map[string]bool{}))
		}
	}
	return maxDepth
}

// selectionSetDepth recursively calculates the depth of a selection set.
// Fields without a selection set are leaves and add no depth.
func selectionSetDepth(selectionSet *ast.SelectionSet, currentDepth int, fragments map[string]*ast.FragmentDefinition, visiting map[string]bool) int {
	if selectionSet == nil || len(selectionSet.Selections) == 0 {
		return currentDepth
	}

	maxDepth := currentDepth
	for _, selection := range selectionSet.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name.Value, "__") {
				continue
			}
			if sel.SelectionSet != nil {
				maxDepth = max(maxDepth, selectionSetDepth(sel.SelectionSet, currentDepth+1, fragments, visiting))
			}

		case *ast.InlineFragment:
			maxDepth = max(maxDepth, selectionSetDepth(sel.SelectionSet, currentDepth, fragments, visiting))

		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := fragments[name]
			if !ok || visiting[name] {
				continue
			}
			visiting[name] = true
			maxDepth = max(maxDepth, selectionSetDepth(frag.SelectionSet, currentDepth, fragments, visiting))
			delete(visiting, name)
		}
	}
	return maxDepth
}

// ValidateQueryDepth validates a query against the depth limit
func ValidateQueryDepth(query string, maxDepth int) error {
	document, err := parser.Parse(parser.ParseParams{
		Source: query,
	})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}

	if depth := calculateQueryDepth(document); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}

// ExecuteWithDepthLimit executes a query after validating its depth
func ExecuteWithDepthLimit(ctx context.Context, schema graphql.Schema, query string, maxDepth int, variables map[string]any) *graphql.Result {
	if err := ValidateQueryDepth(query, maxDepth); err != nil {
		return &graphql.Result{
			Errors: []gqlerrors.FormattedError{
				gqlerrors.FormatError(err),
			},
		}
	}
	return ExecuteWithVariables(ctx, schema, query, variables)
}
