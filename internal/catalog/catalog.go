package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Category tags an instrument with the kind of asset it is
type Category string

// Known categories
const (
	CategoryIndex     Category = "index"
	CategoryCommodity Category = "commodity"
	CategoryCurrency  Category = "currency"
	CategoryStock     Category = "stock"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryIndex, CategoryCommodity, CategoryCurrency, CategoryStock:
		return true
	}
	return false
}

// Instrument is one catalog entry
type Instrument struct {
	Symbol   string   `yaml:"symbol" json:"symbol"`
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`
}

// Catalog is the canonical list of instruments offered to users
type Catalog struct {
	instruments []Instrument
	bySymbol    map[string]int
}

type document struct {
	Instruments []Instrument `yaml:"instruments"`
}

// Load returns the built-in catalog
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file, or the built-in one when path is empty
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Load()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{bySymbol: make(map[string]int, len(doc.Instruments))}
	for i, inst := range doc.Instruments {
		inst.Symbol = strings.TrimSpace(inst.Symbol)
		if inst.Symbol == "" {
			return nil, fmt.Errorf("catalog entry %d has no symbol", i)
		}
		if !inst.Category.Valid() {
			return nil, fmt.Errorf("catalog entry %s has unknown category %q", inst.Symbol, inst.Category)
		}
		if _, dup := c.bySymbol[inst.Symbol]; dup {
			return nil, fmt.Errorf("duplicate catalog symbol %s", inst.Symbol)
		}
		c.bySymbol[inst.Symbol] = len(c.instruments)
		c.instruments = append(c.instruments, inst)
	}
	return c, nil
}

// All returns every instrument in catalog order
func (c *Catalog) All() []Instrument {
	return append([]Instrument(nil), c.instruments...)
}

// ByCategory returns the instruments tagged with cat
func (c *Catalog) ByCategory(cat Category) []Instrument {
	var out []Instrument
	for _, inst := range c.instruments {
		if inst.Category == cat {
			out = append(out, inst)
		}
	}
	return out
}

// Lookup finds an instrument by symbol
func (c *Catalog) Lookup(symbol string) (Instrument, bool) {
	i, ok := c.bySymbol[symbol]
	if !ok {
		return Instrument{}, false
	}
	return c.instruments[i], true
}

// Symbols returns the symbols of a category
func (c *Catalog) Symbols(cat Category) []string {
	var out []string
	for _, inst := range c.ByCategory(cat) {
		out = append(out, inst.Symbol)
	}
	return out
}
