package pages

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type document struct {
	Pages []Page `yaml:"pages"`
}

// Load reads a page table from YAML.
func Load(r io.Reader) (Table, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Table{}, fmt.Errorf("decode page table: %w", err)
	}
	if len(doc.Pages) == 0 {
		return Table{}, fmt.Errorf("page table has no pages")
	}
	return NewTable(doc.Pages)
}

// LoadFile reads a page table from path. An empty path yields Default().
func LoadFile(path string) (Table, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open page table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// WriteYAML writes the table in the format Load accepts.
func (t Table) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Pages: t.pages}); err != nil {
		return fmt.Errorf("encode page table: %w", err)
	}
	return enc.Close()
}
