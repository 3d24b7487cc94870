package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var schemaYAML []byte

// Catalog lists the tables the model may query.
type Catalog struct {
	Tables []Table `yaml:"tables"`
}

// Table is one queryable table.
type Table struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Columns     []Column `yaml:"columns"`
}

// Column is one queryable column.
type Column struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

var loadCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(schemaYAML)
})

// DefaultCatalog returns the embedded catalog. It is parsed once.
func DefaultCatalog() (*Catalog, error) {
	return loadCatalog()
}

// ParseCatalog decodes a catalog document and checks that every table has columns.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse schema catalog: %w", err)
	}
	if len(catalog.Tables) == 0 {
		return nil, fmt.Errorf("schema catalog has no tables")
	}
	for _, t := range catalog.Tables {
		if t.Name == "" || len(t.Columns) == 0 {
			return nil, fmt.Errorf("schema catalog table %q has no columns", t.Name)
		}
	}
	return &catalog, nil
}

// Render writes the catalog as a markdown section.
func (c *Catalog) Render() string {
	var sb strings.Builder
	for _, t := range c.Tables {
		sb.WriteString(fmt.Sprintf("### %s\n", t.Name))
		sb.WriteString(t.Description + "\n")
		for _, col := range t.Columns {
			sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", col.Name, col.Type, col.Description))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
