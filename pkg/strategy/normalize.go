package strategy

import (
	"slices"
	"strings"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

func stripWhitespace(processes []*inventory.Process) []*inventory.Process {
	for _, p := range processes {
		p.Name = strings.TrimSpace(p.Name)
		p.Unit = strings.TrimSpace(p.Unit)
		p.Location = strings.TrimSpace(p.Location)
		p.ReferenceProduct = strings.TrimSpace(p.ReferenceProduct)
		for _, exc := range p.Exchanges {
			exc.Name = strings.TrimSpace(exc.Name)
			exc.Unit = strings.TrimSpace(exc.Unit)
			exc.Location = strings.TrimSpace(exc.Location)
			exc.ReferenceProduct = strings.TrimSpace(exc.ReferenceProduct)
			if len(exc.Categories) > 0 {
				cats := make([]string, len(exc.Categories))
				for i, c := range exc.Categories {
					cats[i] = strings.TrimSpace(c)
				}
				exc.Categories = cats
			}
		}
	}
	return processes
}

// unitNames maps SimaPro unit abbreviations to the long names used by the
// reference databases
var unitNames = map[string]string{
	"kg":   "kilogram",
	"g":    "gram",
	"t":    "ton",
	"m3":   "cubic meter",
	"m2":   "square meter",
	"m2a":  "square meter-year",
	"m":    "meter",
	"km":   "kilometer",
	"l":    "litre",
	"kwh":  "kilowatt hour",
	"mj":   "megajoule",
	"kj":   "kilojoule",
	"wh":   "watt hour",
	"tkm":  "ton kilometer",
	"pkm":  "person kilometer",
	"p":    "unit",
	"unit": "unit",
	"ha":   "hectare",
	"h":    "hour",
	"kbq":  "kilo becquerel",
}

// NormalizeUnit returns the long unit name for a SimaPro abbreviation, or
// the input unchanged.
func NormalizeUnit(unit string) string {
	if long, ok := unitNames[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return long
	}
	return unit
}

func normalizeUnits(processes []*inventory.Process) []*inventory.Process {
	for _, p := range processes {
		p.Unit = NormalizeUnit(p.Unit)
		for _, exc := range p.Exchanges {
			exc.Unit = NormalizeUnit(exc.Unit)
		}
	}
	return processes
}

// NormalizeCategories lower-cases SimaPro compartments and drops the
// "(unspecified)" sub-compartment: ("Air", "(unspecified)") -> ("air").
func NormalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || c == "(unspecified)" || c == "unspecified" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func normalizeBiosphereCategories(processes []*inventory.Process) []*inventory.Process {
	for _, p := range processes {
		for _, exc := range p.Exchanges {
			if exc.Type != inventory.TypeBiosphere || exc.Linked() {
				continue
			}
			exc.Categories = NormalizeCategories(exc.Categories)
		}
	}
	return processes
}

func dropZeroAmounts(processes []*inventory.Process) []*inventory.Process {
	for _, p := range processes {
		if p.Exchanges == nil {
			continue
		}
		p.Exchanges = slices.DeleteFunc(p.Exchanges, func(e *inventory.Exchange) bool {
			return e.Amount == 0 && e.Type != inventory.TypeProduction
		})
	}
	return processes
}

func setCodesByActivityHash(processes []*inventory.Process) []*inventory.Process {
	for _, p := range processes {
		if p.Code != "" {
			continue
		}
		// The hash only fails on an invalid key, which is a constant
		if code, err := inventory.ActivityHash(&p.Flow); err == nil {
			p.Code = code
		}
	}
	return processes
}
