package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// ActivityRow is the relational form of a record
type ActivityRow struct {
	Database         string
	Code             string
	Position         int
	Name             string
	Unit             string
	Location         string
	Categories       string // JSON array
	ReferenceProduct string
	Type             string
	Comment          string
}

// ExchangeRow is the relational form of an exchange. InputDatabase and
// InputCode are nil for unlinked exchanges.
type ExchangeRow struct {
	Database         string
	ActivityCode     string
	Position         int
	Type             string
	Name             string
	Amount           float64
	Unit             string
	Location         string
	Categories       string // JSON array
	ReferenceProduct string
	Comment          string
	InputDatabase    *string
	InputCode        *string
}

// Flatten converts records into rows for a relational store. Records
// without a code are rejected since rows are keyed by code.
func Flatten(database string, processes []*inventory.Process) ([]ActivityRow, []ExchangeRow, error) {
	activities := make([]ActivityRow, 0, len(processes))
	var exchanges []ExchangeRow

	for i, p := range processes {
		if p.Code == "" {
			return nil, nil, NewError("flatten").Database(database).
				Context(fmt.Sprintf("record %d %q", i, p.Name)).
				Cause(ErrMissingCode).Err()
		}
		cats, err := encodeCategories(p.Categories)
		if err != nil {
			return nil, nil, err
		}
		activities = append(activities, ActivityRow{
			Database:         database,
			Code:             p.Code,
			Position:         i,
			Name:             p.Name,
			Unit:             p.Unit,
			Location:         p.Location,
			Categories:       cats,
			ReferenceProduct: p.ReferenceProduct,
			Type:             p.Type,
			Comment:          p.Comment,
		})

		for j, exc := range p.Exchanges {
			cats, err := encodeCategories(exc.Categories)
			if err != nil {
				return nil, nil, err
			}
			row := ExchangeRow{
				Database:         database,
				ActivityCode:     p.Code,
				Position:         j,
				Type:             exc.Type,
				Name:             exc.Name,
				Amount:           exc.Amount,
				Unit:             exc.Unit,
				Location:         exc.Location,
				Categories:       cats,
				ReferenceProduct: exc.ReferenceProduct,
				Comment:          exc.Comment,
			}
			if exc.Input != nil {
				db, code := exc.Input.Database, exc.Input.Code
				row.InputDatabase, row.InputCode = &db, &code
			}
			exchanges = append(exchanges, row)
		}
	}
	return activities, exchanges, nil
}

// Assemble rebuilds records from rows, ordered by position
func Assemble(activities []ActivityRow, exchanges []ExchangeRow) ([]*inventory.Process, error) {
	activities = slices.Clone(activities)
	slices.SortFunc(activities, func(a, b ActivityRow) int { return cmp.Compare(a.Position, b.Position) })

	byCode := make(map[string]*inventory.Process, len(activities))
	out := make([]*inventory.Process, 0, len(activities))
	for _, a := range activities {
		cats, err := decodeCategories(a.Categories)
		if err != nil {
			return nil, err
		}
		p := &inventory.Process{
			Flow: inventory.Flow{
				Key:              inventory.Key{Database: a.Database, Code: a.Code},
				Name:             a.Name,
				Unit:             a.Unit,
				Location:         a.Location,
				Categories:       cats,
				ReferenceProduct: a.ReferenceProduct,
				Type:             a.Type,
			},
			Comment: a.Comment,
		}
		byCode[a.Code] = p
		out = append(out, p)
	}

	exchanges = slices.Clone(exchanges)
	slices.SortFunc(exchanges, func(a, b ExchangeRow) int { return cmp.Compare(a.Position, b.Position) })
	for _, e := range exchanges {
		p, ok := byCode[e.ActivityCode]
		if !ok {
			return nil, RecordNotFoundError(e.Database, e.ActivityCode)
		}
		cats, err := decodeCategories(e.Categories)
		if err != nil {
			return nil, err
		}
		exc := &inventory.Exchange{
			Type:             e.Type,
			Name:             e.Name,
			Amount:           e.Amount,
			Unit:             e.Unit,
			Location:         e.Location,
			Categories:       cats,
			ReferenceProduct: e.ReferenceProduct,
			Comment:          e.Comment,
		}
		if e.InputDatabase != nil && e.InputCode != nil {
			exc.Input = &inventory.Key{Database: *e.InputDatabase, Code: *e.InputCode}
		}
		p.Exchanges = append(p.Exchanges, exc)
	}
	return out, nil
}

func encodeCategories(c []string) (string, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal categories: %w", err)
	}
	return string(data), nil
}

func decodeCategories(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var c []string
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}
	return c, nil
}
