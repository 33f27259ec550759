package usecases

import (
	"context"
	"log/slog"
	"sort"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/ports"
)

const (
	// dynamicDwellMinutes is the dwell assumed for stops found via live
	// place search, which carry no curated duration.
	dynamicDwellMinutes = 15

	// catalogDwellMinutes is the dwell assumed for catalog entries that
	// don't record one.
	catalogDwellMinutes = 8

	// MinRatingRouteBuild filters low-rated places during full route
	// generation. Replanning is more permissive (MinRatingReplan) because
	// the user asked for something specific.
	MinRatingRouteBuild = 3.5
	MinRatingReplan     = 2.0
)

// CandidateService produces scored stop candidates from either live place
// search or the curated catalog.
type CandidateService struct {
	places  ports.PlaceSearcher
	catalog ports.POICatalog
}

// NewCandidateService creates a new CandidateService.
func NewCandidateService(places ports.PlaceSearcher, catalog ports.POICatalog) *CandidateService {
	return &CandidateService{places: places, catalog: catalog}
}

// Dynamic queries the place-search provider and maps results into stop
// candidates. Places with a known rating below minRating are discarded;
// unrated places are kept. A missing or failing provider yields an empty
// slice, never an error.
func (s *CandidateService) Dynamic(ctx context.Context, query string, near domain.GeoPoint, radiusMeters int, minRating float64) []domain.Candidate {
	if s.places == nil {
		return nil
	}

	places, err := s.places.SearchPlaces(ctx, query, near, radiusMeters, true)
	if err != nil {
		slog.Warn("place search failed, treating as empty", "query", query, "error", err)
		return nil
	}

	candidates := make([]domain.Candidate, 0, len(places))
	for _, p := range places {
		if p.Rating > 0 && p.Rating < minRating {
			continue
		}
		category := "point_of_interest"
		if len(p.Categories) > 0 {
			category = p.Categories[0]
		}
		candidates = append(candidates, domain.Candidate{
			Stop: domain.POIStop{
				ID:           p.PlaceID,
				Name:         p.Name,
				Location:     p.Location,
				Address:      p.Address,
				Category:     category,
				DwellMinutes: dynamicDwellMinutes,
				Themes:       []string{query},
			},
		})
	}
	return candidates
}

// Static scores the curated catalog against a theme and returns the top
// 3×maxStops candidates. Entries matching the theme are preferred; when
// nothing matches, the whole catalog is scored instead.
func (s *CandidateService) Static(theme string, maxStops int) []domain.Candidate {
	pois := s.catalog.ByTheme(theme)
	if len(pois) == 0 {
		pois = s.catalog.All()
	}

	candidates := make([]domain.Candidate, 0, len(pois))
	for _, poi := range pois {
		candidates = append(candidates, domain.Candidate{
			Stop:  catalogStop(poi),
			Score: scorePOI(poi, theme),
		})
	}

	// Stable sort keeps catalog order for equal scores, which in turn keeps
	// nearest-neighbor tie-breaking deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit := maxStops * 3; len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// scorePOI rates a catalog entry: base 1.0, +1.0 when the theme is the
// entry's primary theme, +0.1 per fact, +0.2 per interactive prompt.
func scorePOI(poi domain.CatalogPOI, theme string) float64 {
	score := 1.0
	if len(poi.Themes) > 0 && poi.Themes[0] == theme {
		score += 1.0
	}
	score += float64(len(poi.Facts)) * 0.1
	score += float64(len(poi.InteractivePrompts)) * 0.2
	return score
}

func catalogStop(poi domain.CatalogPOI) domain.POIStop {
	dwell := poi.DwellMinutes
	if dwell <= 0 {
		dwell = catalogDwellMinutes
	}
	return domain.POIStop{
		ID:           poi.ID,
		Name:         poi.Name,
		Location:     poi.Location,
		Address:      poi.Address,
		Category:     poi.Category,
		DwellMinutes: dwell,
		Themes:       append([]string(nil), poi.Themes...),
	}
}
