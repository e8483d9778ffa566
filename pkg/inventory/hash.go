package inventory

import (
	"encoding/hex"
	"strings"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("cluso-lci:activity-hash:00000000")

// ActivityHash computes a deterministic code from the fields that identify a
// node: name, categories, unit, location and reference product. Values are
// lower-cased and trimmed before hashing.
func ActivityHash(f *Flow) (string, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", err
	}
	parts := []string{
		f.Name,
		strings.Join(f.Categories, ","),
		f.Unit,
		f.Location,
		f.ReferenceProduct,
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	if _, err := h.Write([]byte(strings.Join(parts, "|"))); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// EnsureCode assigns database and an activity-hash code to a process that
// has none. Existing codes are left untouched.
func EnsureCode(p *Process, database string) error {
	if p.Database == "" {
		p.Database = database
	}
	if p.Code != "" {
		return nil
	}
	code, err := ActivityHash(&p.Flow)
	if err != nil {
		return err
	}
	p.Code = code
	return nil
}
