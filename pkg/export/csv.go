// Package export writes reports of unlinked exchanges so they can be fixed
// by hand in a spreadsheet and fed back as overrides.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// Header is the first row of an unlinked exchange report
var Header = []string{"process", "type", "name", "amount", "unit", "location", "categories", "reference product"}

// CategorySeparator joins categories in a single report cell
const CategorySeparator = "::"

// WriteUnlinked writes one CSV row per exchange and returns the row count,
// header excluded. A nil process leaves the process column empty.
func WriteUnlinked(w io.Writer, exchanges iter.Seq2[*inventory.Process, *inventory.Exchange]) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	n := 0
	for p, exc := range exchanges {
		var process string
		if p != nil {
			process = p.Name
		}
		record := []string{
			process,
			exc.Type,
			exc.Name,
			strconv.FormatFloat(exc.Amount, 'g', -1, 64),
			exc.Unit,
			exc.Location,
			strings.Join(exc.Categories, CategorySeparator),
			exc.ReferenceProduct,
		}
		if err := cw.Write(record); err != nil {
			return n, fmt.Errorf("failed to write row %d: %w", n+1, err)
		}
		n++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("failed to flush report: %w", err)
	}
	return n, nil
}
