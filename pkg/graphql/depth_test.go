package graphql

import (
	"context"
	"strings"
	"testing"
)

func TestValidateQueryDepth(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		max     int
		wantErr bool
	}{
		{"leaf only", `{ health }`, 1, false},
		{"one level", `{ statistics { nodes } }`, 2, false},
		{"too deep", `{ database(name: "x") { record(code: "y") { exchanges { name } } } }`, 3, true},
		{"introspection ignored", `{ __schema { types { name } } health }`, 1, false},
		{
			"fragments expanded",
			`query { database(name: "x") { ...Rec } } fragment Rec on Database { record(code: "y") { exchanges { name } } }`,
			3,
			true,
		},
		{"parse error", `{ statistics {`, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQueryDepth(tt.query, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQueryDepth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExecuteWithDepthLimit(t *testing.T) {
	schema, err := NewSchema(newTestLinker(t), newTestCatalog(t))
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	result := ExecuteWithDepthLimit(context.Background(), schema, `{ processes { name exchanges { name } } }`, 3, nil)
	if result.HasErrors() {
		t.Fatalf("Expected query within limit to succeed, got errors: %v", result.Errors)
	}

	result = ExecuteWithDepthLimit(context.Background(), schema, `{ processes { name exchanges { name } } }`, 2, nil)
	if !result.HasErrors() {
		t.Fatal("Expected deep query to be rejected")
	}
	if !strings.Contains(result.Errors[0].Message, "exceeds maximum allowed depth") {
		t.Errorf("unexpected error: %s", result.Errors[0].Message)
	}
}
