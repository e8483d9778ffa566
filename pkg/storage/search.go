package storage

import (
	"math"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

// SearchResult is a record matching a search with its TF-IDF score
type SearchResult struct {
	Flow  *inventory.Flow
	Score float64
}

// searchIndex is an inverted index over the descriptive text of a
// database's records. Callers hold the database lock.
type searchIndex struct {
	// term -> code -> positions
	index map[string]map[string][]int

	// term -> number of records containing it
	docFreq map[string]int

	totalDocs int
}

func newSearchIndex() *searchIndex {
	return &searchIndex{
		index:   make(map[string]map[string][]int),
		docFreq: make(map[string]int),
	}
}

// searchText is the text a record is indexed under
func searchText(f *inventory.Flow) string {
	parts := []string{f.Name, f.ReferenceProduct, f.Location}
	parts = append(parts, f.Categories...)
	return strings.Join(parts, " ")
}

func (si *searchIndex) add(f *inventory.Flow) {
	tokens := tokenize(searchText(f))
	if len(tokens) == 0 {
		return
	}

	seen := make(map[string]bool)
	for pos, term := range tokens {
		if si.index[term] == nil {
			si.index[term] = make(map[string][]int)
		}
		si.index[term][f.Code] = append(si.index[term][f.Code], pos)

		if !seen[term] {
			si.docFreq[term]++
			seen[term] = true
		}
	}
	si.totalDocs++
}

// search returns the codes containing every term of query, best first.
// Multi-word queries are treated as AND.
func (si *searchIndex) search(query string) []scoredCode {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	var candidates map[string]bool
	for i, term := range terms {
		termCodes := make(map[string]bool)
		for code := range si.index[term] {
			termCodes[code] = true
		}

		if i == 0 {
			candidates = termCodes
			continue
		}
		for code := range candidates {
			if !termCodes[code] {
				delete(candidates, code)
			}
		}
	}

	results := make([]scoredCode, 0, len(candidates))
	for code := range candidates {
		results = append(results, scoredCode{code: code, score: si.score(code, terms)})
	}

	slices.SortFunc(results, func(a, b scoredCode) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.code, b.code)
	})
	return results
}

type scoredCode struct {
	code  string
	score float64
}

// score calculates the TF-IDF score of a record for the query terms
func (si *searchIndex) score(code string, terms []string) float64 {
	score := 0.0
	for _, term := range terms {
		tf := float64(len(si.index[term][code]))

		df := float64(si.docFreq[term])
		idf := 1.0
		if df > 0 && si.totalDocs > 0 {
			// +1 keeps terms present in every record from scoring zero
			idf = math.Log(float64(si.totalDocs+1) / (df + 1))
		}
		score += tf * (1.0 + idf)
	}
	return score
}

// tokenize lower-cases text and splits it on anything that is not a letter
// or digit
func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}
