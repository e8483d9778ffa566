package inventory

import (
	"fmt"
	"slices"
	"strings"
)

// Field names a descriptive attribute used to match exchanges to flows
type Field string

const (
	FieldName             Field = "name"
	FieldUnit             Field = "unit"
	FieldLocation         Field = "location"
	FieldCategories       Field = "categories"
	FieldReferenceProduct Field = "reference product"
)

// DefaultFields is the matching key used when none is configured
var DefaultFields = []Field{FieldName, FieldUnit, FieldCategories, FieldLocation}

// ParseField converts a field name to a Field. Both "reference product" and
// "reference_product" are accepted.
func ParseField(s string) (Field, error) {
	switch strings.ReplaceAll(strings.TrimSpace(s), "_", " ") {
	case "name":
		return FieldName, nil
	case "unit":
		return FieldUnit, nil
	case "location":
		return FieldLocation, nil
	case "categories":
		return FieldCategories, nil
	case "reference product":
		return FieldReferenceProduct, nil
	default:
		return "", fmt.Errorf("unknown match field %q", s)
	}
}

// ParseFields converts field names, rejecting unknown names
func ParseFields(names []string) ([]Field, error) {
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		f, err := ParseField(n)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// NormalizeFields sorts and deduplicates fields so that the order in which a
// caller lists them does not change the key.
func NormalizeFields(fields []Field) []Field {
	out := slices.Clone(fields)
	slices.Sort(out)
	return slices.Compact(out)
}

// Value returns the exchange's value for a field. Absent values are empty.
func (e *Exchange) Value(f Field) string {
	switch f {
	case FieldName:
		return e.Name
	case FieldUnit:
		return e.Unit
	case FieldLocation:
		return e.Location
	case FieldCategories:
		return joinCategories(e.Categories)
	case FieldReferenceProduct:
		return e.ReferenceProduct
	}
	return ""
}

// Value returns the flow's value for a field. Absent values are empty.
func (f *Flow) Value(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldUnit:
		return f.Unit
	case FieldLocation:
		return f.Location
	case FieldCategories:
		return joinCategories(f.Categories)
	case FieldReferenceProduct:
		return f.ReferenceProduct
	}
	return ""
}

// MatchKey is the tuple of field values an exchange and a flow are compared on
type MatchKey string

// unit separator keeps "a|b","c" distinct from "a","b|c"
const keySep = "\x1f"

// ExchangeKey builds the match key of an exchange over normalized fields
func ExchangeKey(e *Exchange, fields []Field) MatchKey {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = e.Value(f)
	}
	return MatchKey(strings.Join(parts, keySep))
}

// FlowKey builds the match key of a flow over normalized fields
func FlowKey(fl *Flow, fields []Field) MatchKey {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fl.Value(f)
	}
	return MatchKey(strings.Join(parts, keySep))
}

// categories are an ordered tuple
func joinCategories(c []string) string {
	return strings.Join(c, "\x1e")
}
