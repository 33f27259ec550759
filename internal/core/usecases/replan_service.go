package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/ports"
	"github.com/wayfarelabs/wayfare/internal/pkg/geospatial"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

const (
	// replanSearchRadiusMeters is tighter than route builds: a detour
	// should not drag the user across town.
	replanSearchRadiusMeters = 1000

	// rerouteMaxStops caps theme-change regeneration below full builds.
	rerouteMaxStops = 5

	// rerouteMinBudgetMinutes floors the remaining budget for a reroute.
	rerouteMinBudgetMinutes = 20

	// detourDwellMinutes is the dwell assumed for a committed detour stop.
	detourDwellMinutes = 15

	// browseChoiceCount is how many ranked candidates a browse replan offers.
	browseChoiceCount = 3
)

// ReplanResult is the outcome of a replanning request.
type ReplanResult struct {
	Success      bool                  `json:"success"`
	Action       domain.IntentAction   `json:"action"`
	Message      string                `json:"message"`
	NewStops     []domain.POIStop      `json:"new_stops,omitempty"`
	Choices      []domain.DetourChoice `json:"choices,omitempty"`
	Skipped      bool                  `json:"skipped"`
	RouteUpdated bool                  `json:"route_updated"`
}

// ReplanService adapts an in-progress route to mid-tour requests: detour
// insertion, stop skipping, theme changes, and tour termination.
type ReplanService struct {
	generator    ports.TextGenerator
	places       ports.PlaceSearcher
	routes       *RouteService
	defaultStart domain.GeoPoint
}

// NewReplanService creates a new ReplanService.
func NewReplanService(generator ports.TextGenerator, places ports.PlaceSearcher, routes *RouteService, defaultStart domain.GeoPoint) *ReplanService {
	return &ReplanService{
		generator:    generator,
		places:       places,
		routes:       routes,
		defaultStart: defaultStart,
	}
}

// ExtractIntent asks the text model what the user wants and parses the
// answer. Any provider failure degrades to the find_place
// fallback carrying the raw utterance.
func (s *ReplanService) ExtractIntent(ctx context.Context, utterance string) domain.Intent {
	if s.generator == nil {
		return domain.ParseIntent("", utterance)
	}
	raw, err := s.generator.GenerateText(ctx, intentPrompt(utterance))
	if err != nil {
		slog.Warn("intent extraction failed, using fallback intent", "error", err)
		return domain.ParseIntent("", utterance)
	}
	intent := domain.ParseIntent(raw, utterance)
	if intent.Fallback {
		slog.Debug("unparseable intent output", "raw", raw)
	}
	return intent
}

// Replan handles one replanning utterance against a session. External calls
// (intent extraction, place search, route regeneration) run without the
// session lock; the route is only touched once they complete.
func (s *ReplanService) Replan(ctx context.Context, session *domain.TourSession, utterance string) (*ReplanResult, error) {
	intent := s.ExtractIntent(ctx, utterance)
	metrics.Replans.WithLabelValues(string(intent.Action)).Inc()

	result := &ReplanResult{Action: intent.Action}

	switch intent.Action {
	case domain.ActionChangeTheme:
		s.changeTheme(ctx, session, intent, result)
	case domain.ActionFindPlace:
		s.findPlace(ctx, session, intent, result)
	case domain.ActionSkipStop:
		result.Success = true
		result.Skipped = true
		result.Message = "No problem! Let's skip this stop and move to the next one."
	case domain.ActionEndTour:
		result.Success = true
		result.Message = "Alright, let's wrap up the tour here. Thanks for exploring with me!"
	default:
		result.Message = "I'm not sure what you'd like to do. Could you be more specific?"
	}

	return result, nil
}

// ConfirmInsertion commits one of the candidates offered by a previous
// browse-mode replan. Choices are invalidated by any route mutation since.
func (s *ReplanService) ConfirmInsertion(session *domain.TourSession, choice int) (*ReplanResult, error) {
	picked, err := session.TakePendingChoice(choice)
	if err != nil {
		return nil, err
	}

	stop := detourStop(picked.Place)
	if err := session.InsertStop(stop, picked.InsertIndex); err != nil {
		return nil, err
	}
	metrics.DetoursCommitted.Inc()

	return &ReplanResult{
		Success:      true,
		Action:       domain.ActionFindPlace,
		Message:      fmt.Sprintf("Great choice! I've added %s to your route.", picked.Place.Name),
		NewStops:     []domain.POIStop{stop},
		RouteUpdated: true,
	}, nil
}

// RankByInsertion evaluates every legal insertion position for each place
// and returns candidates sorted by minimum added walking distance. Legal
// positions run from just past the cursor through appending at the tail.
func RankByInsertion(route domain.Route, currentLocation domain.GeoPoint, places []domain.Place) []domain.DetourChoice {
	stops := route.Stops
	startIdx := route.CurrentIndex + 1

	var ranked []domain.DetourChoice
	for _, place := range places {
		bestIdx := -1
		minCost := math.Inf(1)

		for i := startIdx; i <= len(stops); i++ {
			// The first legal slot starts from wherever the user actually is;
			// later slots start from the preceding stop.
			prev := currentLocation
			if i != startIdx {
				prev = stops[i-1].Location
			}

			cost := geospatial.Haversine(prev.Lat, prev.Lng, place.Location.Lat, place.Location.Lng)
			if i < len(stops) {
				next := stops[i].Location
				cost += geospatial.Haversine(place.Location.Lat, place.Location.Lng, next.Lat, next.Lng)
				cost -= geospatial.Haversine(prev.Lat, prev.Lng, next.Lat, next.Lng)
			}

			if cost < minCost {
				minCost = cost
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			ranked = append(ranked, domain.DetourChoice{
				Place:           place,
				InsertIndex:     bestIdx,
				AddedCostMeters: minCost,
			})
		}
	}

	// Ascending: cheapest detour first.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AddedCostMeters < ranked[j].AddedCostMeters
	})
	return ranked
}

func (s *ReplanService) findPlace(ctx context.Context, session *domain.TourSession, intent domain.Intent, result *ReplanResult) {
	currentLoc := s.locationOrDefault(session)

	places := s.searchNearby(ctx, intent.Query, currentLoc)
	if len(places) == 0 {
		result.Message = fmt.Sprintf("Sorry, I couldn't find any open %q nearby.", intent.Query)
		return
	}

	ranked := RankByInsertion(session.RouteCopy(), currentLoc, places)
	if len(ranked) == 0 {
		result.Message = "I found some places, but couldn't fit them into your route."
		return
	}

	if intent.AutoAdd {
		best := ranked[0]
		stop := detourStop(best.Place)
		if err := session.InsertStop(stop, best.InsertIndex); err != nil {
			result.Message = "I found some places, but couldn't fit them into your route."
			return
		}
		metrics.DetoursCommitted.Inc()

		result.Success = true
		result.RouteUpdated = true
		result.NewStops = []domain.POIStop{stop}
		result.Message = fmt.Sprintf("I've added %s to your route! It's %s.",
			best.Place.Name, describeInsertion(session.RouteCopy(), best.InsertIndex))
		return
	}

	// Browse mode: offer the best few without touching the route.
	if len(ranked) > browseChoiceCount {
		ranked = ranked[:browseChoiceCount]
	}
	session.SetPendingChoices(ranked)

	lines := []string{fmt.Sprintf("I found a few good places for %q:", intent.Query)}
	for i, choice := range ranked {
		lines = append(lines, fmt.Sprintf("%d. %s - adds +%dm walking",
			i+1, choice.Place.Name, int(choice.AddedCostMeters)))
	}
	lines = append(lines, "Which one would you like to add?")

	result.Success = true
	result.Choices = ranked
	result.Message = strings.Join(lines, "\n")
}

func (s *ReplanService) changeTheme(ctx context.Context, session *domain.TourSession, intent domain.Intent, result *ReplanResult) {
	currentLoc := s.locationOrDefault(session)

	elapsed := int(time.Since(session.CreatedAt).Minutes())
	remaining := session.Preferences.BudgetMinutes - elapsed
	if remaining < rerouteMinBudgetMinutes {
		remaining = rerouteMinBudgetMinutes
	}

	segment := s.routes.BuildRoute(ctx, BuildRequest{
		Start:         currentLoc,
		Theme:         intent.Query,
		BudgetMinutes: remaining,
		MaxStops:      rerouteMaxStops,
		DynamicSearch: true,
	})

	if len(segment.Stops) == 0 {
		result.Message = fmt.Sprintf("I tried to find spots for %q nearby, but came up empty. Let's stick to our current path for now.", intent.Query)
		return
	}

	session.ReplaceTail(segment.Stops)

	names := make([]string, 0, 3)
	for _, stop := range segment.Stops {
		names = append(names, stop.Name)
		if len(names) == 3 {
			break
		}
	}

	result.Success = true
	result.RouteUpdated = true
	result.NewStops = segment.Stops
	result.Message = fmt.Sprintf("I've rerouted our tour to focus on %q! Next up we're visiting: %s...",
		intent.Query, strings.Join(names, ", "))
}

// searchNearby looks for places matching the request, preferring decently
// rated ones but falling back to everything found rather than nothing.
func (s *ReplanService) searchNearby(ctx context.Context, query string, near domain.GeoPoint) []domain.Place {
	if s.places == nil {
		return nil
	}
	places, err := s.places.SearchPlaces(ctx, query, near, replanSearchRadiusMeters, true)
	if err != nil {
		slog.Warn("replan place search failed", "query", query, "error", err)
		return nil
	}

	var rated []domain.Place
	for _, p := range places {
		if p.Rating >= MinRatingReplan {
			rated = append(rated, p)
		}
	}
	if len(rated) > 0 {
		return rated
	}
	return places
}

func (s *ReplanService) locationOrDefault(session *domain.TourSession) domain.GeoPoint {
	if loc, ok := session.Location(); ok {
		return loc
	}
	return s.defaultStart
}

func detourStop(place domain.Place) domain.POIStop {
	return domain.POIStop{
		ID:           uuid.NewString(),
		Name:         place.Name,
		Location:     place.Location,
		Address:      place.Address,
		Category:     "added_stop",
		DwellMinutes: detourDwellMinutes,
		Themes:       []string{"detour"},
	}
}

func describeInsertion(route domain.Route, idx int) string {
	if idx == route.CurrentIndex+1 {
		return "your next stop"
	}
	if idx-1 >= 0 && idx-1 < len(route.Stops) {
		return "after " + route.Stops[idx-1].Name
	}
	return "up ahead"
}

func intentPrompt(utterance string) string {
	return fmt.Sprintf(`The user is on a walking tour and said: %q

Extract their intent. Return a JSON object with:
- "action": one of ["find_place", "skip_stop", "end_tour", "change_theme"]
- "auto_add": boolean (true if the user names a specific place or says "pick for me", false for a generic search)
- "query": precise search keyword (e.g., "coffee shop", "modern art", "ghost stories")
- "reason": brief reason (optional)

Examples:
- "I want coffee": {"action": "find_place", "auto_add": false, "query": "coffee shop", "reason": "user is tired"}
- "Let's find a Starbucks": {"action": "find_place", "auto_add": true, "query": "Starbucks", "reason": "specific brand"}
- "Skip this stop": {"action": "skip_stop", "auto_add": false, "query": null, "reason": "not interested"}
- "I'm bored of history, show me art instead": {"action": "change_theme", "auto_add": true, "query": "art galleries", "reason": "theme change"}

Return ONLY the JSON, no other text.`, utterance)
}
