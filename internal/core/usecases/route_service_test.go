package usecases_test

import (
	"context"
	"testing"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/usecases"
	"github.com/wayfarelabs/wayfare/internal/pkg/geospatial"
)

// --- Mock DirectionsProvider ---

type mockDirections struct {
	walkingFn func(ctx context.Context, origin, destination domain.GeoPoint) (*domain.Directions, error)
}

func (m *mockDirections) WalkingDirections(ctx context.Context, origin, destination domain.GeoPoint) (*domain.Directions, error) {
	if m.walkingFn != nil {
		return m.walkingFn(ctx, origin, destination)
	}
	return nil, nil
}

var providenceStart = domain.GeoPoint{Lat: 41.8240, Lng: -71.4128}

func TestBuildRoute_RespectsTimeBudget(t *testing.T) {
	// 5 catalog POIs in a line, ~100m apart, 8 min dwell each.
	candidates := usecases.NewCandidateService(nil, catalogOf(5, "historical"))
	svc := usecases.NewRouteService(candidates, nil)

	route := svc.BuildRoute(context.Background(), usecases.BuildRequest{
		Start:         providenceStart,
		Theme:         "historical",
		BudgetMinutes: 60,
	})

	if len(route.Stops) == 0 {
		t.Fatal("expected a non-empty route")
	}

	// Replay the construction cost: total travel + dwell must fit the budget.
	consumed := 0.0
	current := providenceStart
	for _, stop := range route.Stops {
		d := geospatial.Haversine(current.Lat, current.Lng, stop.Location.Lat, stop.Location.Lng)
		consumed += geospatial.WalkingMinutes(d) + float64(stop.DwellMinutes)
		current = stop.Location
	}
	if consumed > 60 {
		t.Errorf("route consumes %.1f minutes, over the 60 minute budget", consumed)
	}
}

func TestBuildRoute_NearestNeighborOrder(t *testing.T) {
	candidates := usecases.NewCandidateService(nil, catalogOf(5, "historical"))
	svc := usecases.NewRouteService(candidates, nil)

	route := svc.BuildRoute(context.Background(), usecases.BuildRequest{
		Start:         providenceStart,
		Theme:         "historical",
		BudgetMinutes: 120,
	})

	// POIs lie on a line heading north from the start, so greedy
	// nearest-neighbor must visit them in catalog order.
	if len(route.Stops) != 5 {
		t.Fatalf("expected all 5 stops, got %d", len(route.Stops))
	}
	for i, stop := range route.Stops {
		want := "poi-" + string(rune('0'+i))
		if stop.ID != want {
			t.Errorf("stop[%d] = %s, want %s", i, stop.ID, want)
		}
	}
}

func TestBuildRoute_MaxStopsCap(t *testing.T) {
	candidates := usecases.NewCandidateService(nil, catalogOf(10, "historical"))
	svc := usecases.NewRouteService(candidates, nil)

	route := svc.BuildRoute(context.Background(), usecases.BuildRequest{
		Start:         providenceStart,
		Theme:         "historical",
		BudgetMinutes: 600,
		MaxStops:      3,
	})

	if len(route.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(route.Stops))
	}
}

func TestBuildRoute_InfeasibleNearestIsDroppedNotLooped(t *testing.T) {
	// The nearest candidate can never fit (huge dwell). A pure skip would
	// re-select it forever; it must be removed so the cheaper one is taken.
	catalog := &mockCatalog{pois: []domain.CatalogPOI{
		{ID: "greedy-trap", Name: "Trap", Location: domain.GeoPoint{Lat: 41.82401, Lng: -71.4128}, DwellMinutes: 1000, Themes: []string{"historical"}},
		{ID: "viable", Name: "Viable", Location: domain.GeoPoint{Lat: 41.8260, Lng: -71.4128}, DwellMinutes: 8, Themes: []string{"historical"}},
	}}
	svc := usecases.NewRouteService(usecases.NewCandidateService(nil, catalog), nil)

	route := svc.BuildRoute(context.Background(), usecases.BuildRequest{
		Start:         providenceStart,
		Theme:         "historical",
		BudgetMinutes: 60,
	})

	if len(route.Stops) != 1 || route.Stops[0].ID != "viable" {
		t.Fatalf("expected only the viable stop, got %+v", route.Stops)
	}
}

func TestBuildRoute_DynamicEmptyFallsBackToCatalog(t *testing.T) {
	places := &mockPlaces{
		searchFn: func(ctx context.Context, query string, near domain.GeoPoint, radius int, openNow bool) ([]domain.Place, error) {
			return nil, nil
		},
	}
	candidates := usecases.NewCandidateService(places, catalogOf(3, "historical"))
	svc := usecases.NewRouteService(candidates, nil)

	route := svc.BuildRoute(context.Background(), usecases.BuildRequest{
		Start:         providenceStart,
		Theme:         "historical",
		BudgetMinutes: 60,
		DynamicSearch: true,
	})

	if len(route.Stops) == 0 {
		t.Fatal("empty dynamic search should fall back to the curated catalog")
	}
	if route.Stops[0].ID != "poi-0" {
		t.Errorf("expected catalog stop, got %s", route.Stops[0].ID)
	}
}

func TestWalkingDirections_ProviderPreferred(t *testing.T) {
	provider := &mockDirections{
		walkingFn: func(ctx context.Context, origin, destination domain.GeoPoint) (*domain.Directions, error) {
			return &domain.Directions{DistanceMeters: 420, Polyline: "abc"}, nil
		},
	}
	svc := usecases.NewRouteService(usecases.NewCandidateService(nil, &mockCatalog{}), provider)

	dirs := svc.WalkingDirections(context.Background(), providenceStart, domain.GeoPoint{Lat: 41.83, Lng: -71.41})
	if dirs.Estimated {
		t.Error("provider result should not be marked estimated")
	}
	if dirs.DistanceMeters != 420 {
		t.Errorf("distance = %d, want provider value", dirs.DistanceMeters)
	}
}

func TestWalkingDirections_FallsBackToEstimate(t *testing.T) {
	// Provider unavailable (nil, nil) means estimate.
	svc := usecases.NewRouteService(usecases.NewCandidateService(nil, &mockCatalog{}), &mockDirections{})

	dirs := svc.WalkingDirections(context.Background(), domain.GeoPoint{Lat: 0, Lng: 0}, domain.GeoPoint{Lat: 0, Lng: 0.001})
	if !dirs.Estimated {
		t.Fatal("expected estimated directions")
	}
	if dirs.Instruction == "" {
		t.Error("estimate should carry a cardinal instruction")
	}
}

func TestEstimateDirections_CardinalAndDuration(t *testing.T) {
	// ~111m due east along the equator.
	dirs := usecases.EstimateDirections(domain.GeoPoint{Lat: 0, Lng: 0}, domain.GeoPoint{Lat: 0, Lng: 0.001})

	if dirs.DistanceMeters < 110 || dirs.DistanceMeters > 113 {
		t.Errorf("distance = %d, want ~111", dirs.DistanceMeters)
	}
	if dirs.Instruction != "Walk east for about 111 meters" {
		t.Errorf("instruction = %q", dirs.Instruction)
	}
	// 111m at 5 km/h is ~1.3 minutes.
	if dirs.DurationMinutes < 1.2 || dirs.DurationMinutes > 1.5 {
		t.Errorf("duration = %f", dirs.DurationMinutes)
	}
	if len(dirs.Steps) != 1 {
		t.Fatalf("expected a single estimated step, got %d", len(dirs.Steps))
	}
}
