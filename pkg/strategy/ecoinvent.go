package strategy

import (
	"regexp"
	"strings"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// SimaPro names ecoinvent activities as
//
//	<reference product> {<location>}| <activity name> | <system model>, <U|S>
var ecoinventName = regexp.MustCompile(`^(?P<product>.+?)\s*\{(?P<location>[^}]+)\}\s*\|\s*(?P<name>.+?)\s*\|\s*(?P<model>[^|]+?)\s*$`)

// EcoinventName is a SimaPro ecoinvent name split into its parts
type EcoinventName struct {
	ReferenceProduct string
	Location         string
	Name             string
	SystemModel      string
}

// ParseEcoinventName splits a SimaPro ecoinvent activity name. The reference
// product is lower-cased on its first letter only, matching ecoinvent.
func ParseEcoinventName(s string) (EcoinventName, bool) {
	m := ecoinventName.FindStringSubmatch(s)
	if m == nil {
		return EcoinventName{}, false
	}
	get := func(group string) string {
		return strings.TrimSpace(m[ecoinventName.SubexpIndex(group)])
	}
	return EcoinventName{
		ReferenceProduct: lowerFirst(get("product")),
		Location:         get("location"),
		Name:             get("name"),
		SystemModel:      get("model"),
	}, true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func splitEcoinventNames(processes []*inventory.Process) []*inventory.Process {
	for _, p := range processes {
		for _, exc := range p.Exchanges {
			if exc.Type == inventory.TypeBiosphere || exc.Linked() {
				continue
			}
			parsed, ok := ParseEcoinventName(exc.Name)
			if !ok {
				continue
			}
			if exc.Comment == "" {
				exc.Comment = "SimaPro name: " + exc.Name
			}
			exc.Name = parsed.Name
			exc.ReferenceProduct = parsed.ReferenceProduct
			exc.Location = parsed.Location
		}
	}
	return processes
}
