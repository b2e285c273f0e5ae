package game

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed items.yaml
var defaultItems []byte

// Item is something a player can buy at the store.
type Item struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Price       int    `yaml:"price"`
	Attack      int    `yaml:"attack,omitempty"`
	Defense     int    `yaml:"defense,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Catalog lists the purchasable items by slot.
type Catalog struct {
	Weapons []Item `yaml:"weapons"`
	Armor   []Item `yaml:"armor"`
}

// LoadCatalog parses the catalog bundled with the binary.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(defaultItems)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse item catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for _, slot := range []struct {
		name  string
		items []Item
	}{{"weapons", c.Weapons}, {"armor", c.Armor}} {
		for i, item := range slot.items {
			if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Name) == "" {
				return fmt.Errorf("%s[%d]: id and name are required", slot.name, i)
			}
			if item.Price < 0 {
				return fmt.Errorf("%s[%d] %s: negative price", slot.name, i, item.ID)
			}
			if seen[item.ID] {
				return fmt.Errorf("duplicate item id %q", item.ID)
			}
			seen[item.ID] = true
		}
	}
	return nil
}
