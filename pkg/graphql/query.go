package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
)

// Execute runs a query against a schema
func Execute(ctx context.Context, schema graphql.Schema, query string) *graphql.Result {
	return ExecuteWithVariables(ctx, schema, query, nil)
}

// ExecuteWithVariables runs a query with variables
func ExecuteWithVariables(ctx context.Context, schema graphql.Schema, query string, variables map[string]any) *graphql.Result {
	params := graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       ctx,
	}
	if len(variables) > 0 {
		params.VariableValues = variables
	}
	return graphql.Do(params)
}
