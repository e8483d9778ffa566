package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-lci/pkg/logging"
)

// Request represents a GraphQL HTTP request
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response represents a GraphQL HTTP response
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Error represents a GraphQL error
type Error struct {
	Message string `json:"message"`
}

// Handler serves queries over HTTP
type Handler struct {
	schema   graphql.Schema
	maxDepth int
	logger   logging.Logger
}

// NewHandler creates a GraphQL HTTP handler
func NewHandler(schema graphql.Schema, logger logging.Logger) *Handler {
	return &Handler{
		schema:   schema,
		maxDepth: DefaultMaxDepth,
		logger:   logging.OrDefault(logger).With(logging.Component("graphql")),
	}
}

// ServeHTTP handles HTTP requests for GraphQL queries
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := ExecuteWithDepthLimit(r.Context(), h.schema, req.Query, h.maxDepth, req.Variables)

	response := Response{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]Error, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = Error{Message: err.Message}
		}
		h.logger.Debug("query failed", logging.Int("errors", len(result.Errors)), logging.String("first", result.Errors[0].Message))
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Warn("failed to encode response", logging.Error(err))
	}
}
