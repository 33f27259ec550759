package ports

import (
	"github.com/wayfarelabs/wayfare/internal/core/domain"
)

// POICatalog provides the curated point-of-interest catalog used when
// dynamic place search is disabled or comes up empty.
type POICatalog interface {
	// All returns every catalog entry.
	All() []domain.CatalogPOI

	// ByTheme returns entries whose theme list contains the given theme.
	ByTheme(theme string) []domain.CatalogPOI
}
