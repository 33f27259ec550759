package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
)

//go:embed data/pois.json
var poiData []byte

// Catalog implements ports.POICatalog over the embedded curated POI file.
type Catalog struct {
	pois []domain.CatalogPOI
}

// New parses the embedded catalog.
func New() (*Catalog, error) {
	var pois []domain.CatalogPOI
	if err := json.Unmarshal(poiData, &pois); err != nil {
		return nil, fmt.Errorf("parse poi catalog: %w", err)
	}
	return &Catalog{pois: pois}, nil
}

// All returns every catalog entry.
func (c *Catalog) All() []domain.CatalogPOI {
	return slices.Clone(c.pois)
}

// ByTheme returns entries whose theme list contains the given theme.
func (c *Catalog) ByTheme(theme string) []domain.CatalogPOI {
	var out []domain.CatalogPOI
	for _, poi := range c.pois {
		if slices.Contains(poi.Themes, theme) {
			out = append(out, poi)
		}
	}
	return out
}
