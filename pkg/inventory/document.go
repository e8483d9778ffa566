package inventory

import (
	"bytes"
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Document is a parsed inventory: the processes of one import batch and the
// name of the database they will be written to. JSON documents decode too.
type Document struct {
	Database  string     `json:"database" yaml:"database" validate:"required"`
	Processes []*Process `json:"processes" yaml:"processes" validate:"dive"`
}

// DecodeDocument decodes a YAML or JSON inventory document
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode inventory document: %w", err)
	}
	for _, p := range doc.Processes {
		if p.Database == "" {
			p.Database = doc.Database
		}
	}
	return &doc, nil
}

// ReadDocument downloads and decodes an inventory document from any afs URL
// (plain path, file://, mem://, ...).
func ReadDocument(ctx context.Context, fs afs.Service, url string) (*Document, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", url, err)
	}
	return DecodeDocument(data)
}

// WriteDocument encodes a document as YAML and uploads it to url
func WriteDocument(ctx context.Context, fs afs.Service, url string, doc *Document) error {
	if fs == nil {
		fs = afs.New()
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode inventory document: %w", err)
	}
	if err := fs.Upload(ctx, url, 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write inventory %s: %w", url, err)
	}
	return nil
}
