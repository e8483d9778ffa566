// Package config loads workflow files: the steps that take an inventory from
// import to a written, linked database.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-lci/pkg/export"
	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/strategy"
	"github.com/dd0wney/cluso-lci/pkg/validation"
)

// Store kinds
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// StoreKinds lists the supported store kinds
var StoreKinds = []string{StoreMemory, StorePostgres, StoreSQLite}

// Workflow describes one import
type Workflow struct {
	Database      string      `yaml:"database" validate:"required"`
	Inventory     string      `yaml:"inventory" validate:"required"`
	References    []Reference `yaml:"references,omitempty" validate:"dive"`
	Strategies    []string    `yaml:"strategies,omitempty"`
	Passes        []Pass      `yaml:"passes,omitempty" validate:"dive"`
	Overrides     []Override  `yaml:"overrides,omitempty" validate:"dive"`
	Export        *Export     `yaml:"export,omitempty"`
	Store         Store       `yaml:"store"`
	AllowUnlinked bool        `yaml:"allow_unlinked,omitempty"`
	LogLevel      string      `yaml:"log_level,omitempty"`
}

// Reference is a database loaded from a snapshot before linking
type Reference struct {
	Name     string `yaml:"name" validate:"required"`
	Snapshot string `yaml:"snapshot" validate:"required"`
}

// Pass is one match pass. Pool is a reference name or "self".
type Pass struct {
	Pool   string   `yaml:"pool" validate:"required"`
	Fields []string `yaml:"fields,omitempty" validate:"dive,matchfield"`
	Kinds  []string `yaml:"kinds,omitempty" validate:"dive,oneof=production technosphere substitution biosphere"`
}

// Override links exchanges by hand. Exchanges are selected by type and
// name; Target is a database/code key.
type Override struct {
	Type   string `yaml:"type,omitempty" validate:"omitempty,oneof=production technosphere substitution biosphere"`
	Name   string `yaml:"name" validate:"required"`
	Target string `yaml:"target" validate:"required,key"`
	Rename bool   `yaml:"rename,omitempty"`
}

// Export sends the unlinked exchange report to a URL or an S3 bucket
type Export struct {
	URL  string           `yaml:"url,omitempty"`
	S3   *export.S3Config `yaml:"s3,omitempty"`
	Name string           `yaml:"name,omitempty"`
}

// Store selects where the linked database is written
type Store struct {
	Kind string `yaml:"kind,omitempty"`
	DSN  string `yaml:"dsn,omitempty"`
}

// Parse decodes a workflow, applies defaults and validates it
func Parse(data []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	w.ApplyDefaults()
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Load reads a workflow from any afs URL. Relative local paths inside the
// workflow are resolved against the workflow's directory.
func Load(ctx context.Context, fs afs.Service, url string) (*Workflow, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", url, err)
	}
	w, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	if dir, ok := localDir(url); ok {
		w.ResolvePaths(dir)
	}
	return w, nil
}

// ApplyDefaults fills unset fields
func (w *Workflow) ApplyDefaults() {
	if w.Strategies == nil {
		w.Strategies = append([]string(nil), strategy.DefaultStrategies...)
	}
	if len(w.Passes) == 0 {
		w.Passes = []Pass{{Pool: linker.SelfPoolName}}
	}
	w.Store.Kind = validation.DefaultOr(w.Store.Kind, StoreMemory)
	w.LogLevel = validation.DefaultOr(w.LogLevel, "info")
	if w.Export != nil {
		w.Export.Name = validation.DefaultOr(w.Export.Name, w.Database+"-unlinked.csv")
	}
}

// Validate checks struct tags, then cross-field rules
func (w *Workflow) Validate() error {
	if err := validation.Struct(w); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}

	refs := make([]string, len(w.References))
	for i, r := range w.References {
		refs[i] = r.Name
	}
	pools := append([]string{linker.SelfPoolName}, refs...)

	cv := validation.NewConfigValidator("workflow").
		Unique("references", refs).
		OneOf("store.kind", w.Store.Kind, StoreKinds).
		OneOf("log_level", strings.ToLower(w.LogLevel), []string{"debug", "info", "warn", "warning", "error"}).
		When(w.Store.Kind != StoreMemory, func(cv *validation.ConfigValidator) {
			cv.Required("store.dsn", w.Store.DSN)
		})

	for i, name := range w.Strategies {
		cv.Custom(fmt.Sprintf("strategies[%d]", i), func() error {
			if _, ok := strategy.Lookup(name); !ok {
				return fmt.Errorf("unknown strategy %q", name)
			}
			return nil
		})
	}
	for i, p := range w.Passes {
		cv.OneOf(fmt.Sprintf("passes[%d].pool", i), p.Pool, pools)
	}
	for i, r := range refs {
		cv.Custom(fmt.Sprintf("references[%d].name", i), func() error {
			if r == w.Database {
				return fmt.Errorf("reference %q has the same name as the imported database", r)
			}
			return nil
		})
	}
	if w.Export != nil {
		cv.Custom("export", func() error {
			if (w.Export.URL == "") == (w.Export.S3 == nil) {
				return fmt.Errorf("exactly one of url and s3 is required")
			}
			return nil
		})
	}
	return cv.Validate()
}

// ResolvePaths makes relative local paths absolute against dir
func (w *Workflow) ResolvePaths(dir string) {
	w.Inventory = resolve(dir, w.Inventory)
	for i := range w.References {
		w.References[i].Snapshot = resolve(dir, w.References[i].Snapshot)
	}
	if w.Export != nil && w.Export.URL != "" {
		w.Export.URL = resolve(dir, w.Export.URL)
	}
	if w.Store.Kind == StoreSQLite {
		w.Store.DSN = resolve(dir, w.Store.DSN)
	}
}

// Level returns the configured log level
func (w *Workflow) Level() logging.Level {
	return logging.ParseLevel(w.LogLevel)
}

// MatchFields converts a pass's field names
func (p Pass) MatchFields() ([]inventory.Field, error) {
	if len(p.Fields) == 0 {
		return inventory.DefaultFields, nil
	}
	return inventory.ParseFields(p.Fields)
}

// TargetKey parses an override target
func (o Override) TargetKey() (inventory.Key, error) {
	return inventory.ParseKey(o.Target)
}

// localDir returns the directory of a local workflow URL
func localDir(url string) (string, bool) {
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		return filepath.Dir(path), true
	}
	if strings.Contains(url, "://") {
		return "", false
	}
	return filepath.Dir(url), true
}

func resolve(dir, path string) string {
	if path == "" || strings.Contains(path, "://") || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
