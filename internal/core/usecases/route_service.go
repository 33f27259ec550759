package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/ports"
	"github.com/wayfarelabs/wayfare/internal/pkg/geospatial"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

const (
	// DefaultMaxStops caps full route construction.
	DefaultMaxStops = 8

	// minRemainingMinutes stops the builder once the budget is nearly spent.
	minRemainingMinutes = 10

	// dynamicSearchRadiusMeters is the place-search radius for route builds.
	dynamicSearchRadiusMeters = 2000
)

// BuildRequest describes a route construction job.
type BuildRequest struct {
	Start         domain.GeoPoint
	Theme         string
	BudgetMinutes int
	MaxStops      int
	Destination   *domain.GeoPoint
	DynamicSearch bool
}

// RouteService constructs time-budgeted walking routes.
type RouteService struct {
	candidates *CandidateService
	directions ports.DirectionsProvider
}

// NewRouteService creates a new RouteService.
func NewRouteService(candidates *CandidateService, directions ports.DirectionsProvider) *RouteService {
	return &RouteService{candidates: candidates, directions: directions}
}

// BuildRoute runs greedy nearest-neighbor construction under a hard time
// budget. Candidates that can't fit from the current position are removed
// from the pool entirely; merely skipping one iteration could loop forever
// on the same nearest-but-too-expensive stop.
func (s *RouteService) BuildRoute(ctx context.Context, req BuildRequest) domain.Route {
	if req.MaxStops <= 0 {
		req.MaxStops = DefaultMaxStops
	}

	var pool []domain.Candidate
	if req.DynamicSearch {
		pool = s.candidates.Dynamic(ctx, req.Theme, req.Start, dynamicSearchRadiusMeters, MinRatingRouteBuild)
		if len(pool) == 0 {
			slog.Info("dynamic search empty, falling back to curated catalog", "theme", req.Theme)
		}
	}
	if len(pool) == 0 {
		pool = s.candidates.Static(req.Theme, req.MaxStops)
	}

	var stops []domain.POIStop
	current := req.Start
	remaining := float64(req.BudgetMinutes)

	for len(pool) > 0 && len(stops) < req.MaxStops && remaining > minRemainingMinutes {
		bestIdx := -1
		bestDistance := math.Inf(1)
		for i, c := range pool {
			d := geospatial.Haversine(current.Lat, current.Lng, c.Stop.Location.Lat, c.Stop.Location.Lng)
			if d < bestDistance {
				bestDistance = d
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		candidate := pool[bestIdx].Stop
		travel := geospatial.WalkingMinutes(bestDistance)
		dwell := float64(candidate.DwellMinutes)

		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
		if travel+dwell > remaining {
			// Infeasible from here; a closer, cheaper candidate may still fit.
			continue
		}

		stops = append(stops, candidate)
		current = candidate.Location
		remaining -= travel + dwell
	}

	metrics.RoutesBuilt.WithLabelValues(req.Theme).Inc()
	return domain.Route{Stops: stops, Destination: req.Destination}
}

// WalkingDirections asks the directions provider for a walking route and
// falls back to a great-circle estimate with a cardinal instruction when the
// provider is missing or fails.
func (s *RouteService) WalkingDirections(ctx context.Context, origin, destination domain.GeoPoint) *domain.Directions {
	if s.directions != nil {
		dirs, err := s.directions.WalkingDirections(ctx, origin, destination)
		if err != nil {
			slog.Warn("directions provider failed, estimating", "error", err)
		} else if dirs != nil {
			return dirs
		}
	}
	return EstimateDirections(origin, destination)
}

// EstimateDirections builds walking directions from great-circle math alone.
func EstimateDirections(origin, destination domain.GeoPoint) *domain.Directions {
	distance := geospatial.Haversine(origin.Lat, origin.Lng, destination.Lat, destination.Lng)
	duration := geospatial.WalkingMinutes(distance)
	bearing := geospatial.BearingDegrees(origin.Lat, origin.Lng, destination.Lat, destination.Lng)
	cardinal := geospatial.Cardinal(bearing)
	meters := int(math.Round(distance))

	return &domain.Directions{
		DistanceMeters:  meters,
		DurationMinutes: math.Round(duration*10) / 10,
		BearingDegrees:  math.Round(bearing*10) / 10,
		Instruction:     fmt.Sprintf("Walk %s for about %d meters", cardinal, meters),
		Steps: []domain.DirectionStep{{
			Instruction:     "Head " + cardinal,
			DistanceMeters:  meters,
			DurationSeconds: int(math.Round(duration * 60)),
		}},
		Estimated: true,
	}
}
