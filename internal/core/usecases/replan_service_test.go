package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/usecases"
)

// --- Mock TextGenerator ---

type mockGenerator struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
	calls      int
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return "", nil
}

func staticIntent(intentJSON string) *mockGenerator {
	return &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return intentJSON, nil
		},
	}
}

func lineSession(cursor int) *domain.TourSession {
	s := domain.NewTourSession(domain.Preferences{Theme: domain.ThemeHistorical, BudgetMinutes: 60})
	s.SetRoute(domain.Route{Stops: []domain.POIStop{
		{ID: "s0", Name: "Stop 0", Location: domain.GeoPoint{Lat: 0, Lng: 0}},
		{ID: "s1", Name: "Stop 1", Location: domain.GeoPoint{Lat: 0, Lng: 0.002}},
		{ID: "s2", Name: "Stop 2", Location: domain.GeoPoint{Lat: 0, Lng: 0.004}},
	}})
	for i := 0; i < cursor; i++ {
		s.Advance()
	}
	s.SetLocation(domain.GeoPoint{Lat: 0, Lng: 0.0005})
	return s
}

func newReplanService(generator *mockGenerator, places *mockPlaces) *usecases.ReplanService {
	routes := usecases.NewRouteService(usecases.NewCandidateService(places, &mockCatalog{}), nil)
	return usecases.NewReplanService(generator, places, routes, domain.GeoPoint{Lat: 0, Lng: 0})
}

func TestRankByInsertion_CheapestFirst(t *testing.T) {
	session := lineSession(0)
	places := []domain.Place{
		{PlaceID: "far", Name: "Far", Location: domain.GeoPoint{Lat: 0, Lng: 0.010}},
		{PlaceID: "onpath", Name: "On Path", Location: domain.GeoPoint{Lat: 0, Lng: 0.001}},
	}

	ranked := usecases.RankByInsertion(session.RouteCopy(), domain.GeoPoint{Lat: 0, Lng: 0.0005}, places)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked choices, got %d", len(ranked))
	}

	// The on-path place sits between the user and the next stop: near-zero
	// added distance, inserted right after the cursor.
	if ranked[0].Place.PlaceID != "onpath" {
		t.Fatalf("cheapest = %s, want onpath", ranked[0].Place.PlaceID)
	}
	if ranked[0].InsertIndex != 1 {
		t.Errorf("onpath insert index = %d, want 1", ranked[0].InsertIndex)
	}
	if ranked[0].AddedCostMeters > 5 {
		t.Errorf("onpath added cost = %f, want ~0", ranked[0].AddedCostMeters)
	}

	// The far place is cheapest appended at the tail.
	if ranked[1].InsertIndex != 3 {
		t.Errorf("far insert index = %d, want tail (3)", ranked[1].InsertIndex)
	}
	if ranked[1].AddedCostMeters <= ranked[0].AddedCostMeters {
		t.Error("ranking not ascending by added cost")
	}

	// Triangle inequality: inserting between two stops never saves distance.
	for _, choice := range ranked {
		if choice.AddedCostMeters < -1e-6 {
			t.Errorf("%s added cost %f is negative", choice.Place.PlaceID, choice.AddedCostMeters)
		}
	}
}

func TestRankByInsertion_NeverBeforeCursor(t *testing.T) {
	session := lineSession(1) // s0 visited, cursor on s1
	places := []domain.Place{
		// Right next to s0; the tempting slot is behind the cursor.
		{PlaceID: "behind", Name: "Behind", Location: domain.GeoPoint{Lat: 0, Lng: 0.0001}},
	}

	ranked := usecases.RankByInsertion(session.RouteCopy(), domain.GeoPoint{Lat: 0, Lng: 0.002}, places)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(ranked))
	}
	if ranked[0].InsertIndex < 2 {
		t.Errorf("insert index %d is not after the cursor", ranked[0].InsertIndex)
	}
}

func TestReplan_AutoAddInsertsBestCandidate(t *testing.T) {
	generator := staticIntent(`{"action": "find_place", "auto_add": true, "query": "coffee"}`)
	places := &mockPlaces{
		searchFn: func(ctx context.Context, query string, near domain.GeoPoint, radius int, openNow bool) ([]domain.Place, error) {
			return []domain.Place{
				{PlaceID: "cafe", Name: "Dave's Coffee", Rating: 4.4, Location: domain.GeoPoint{Lat: 0, Lng: 0.001}},
			}, nil
		},
	}
	svc := newReplanService(generator, places)
	session := lineSession(0)

	result, err := svc.Replan(context.Background(), session, "I need coffee")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !result.Success || !result.RouteUpdated {
		t.Fatalf("expected a committed route update, got %+v", result)
	}
	if !strings.Contains(result.Message, "Dave's Coffee") {
		t.Errorf("message should name the stop: %q", result.Message)
	}

	route := session.RouteCopy()
	if len(route.Stops) != 4 {
		t.Fatalf("expected 4 stops after insertion, got %d", len(route.Stops))
	}
	if route.Stops[1].Name != "Dave's Coffee" {
		t.Errorf("stop[1] = %s, want the inserted cafe", route.Stops[1].Name)
	}
	if route.Stops[1].DwellMinutes != 15 {
		t.Errorf("detour dwell = %d, want 15", route.Stops[1].DwellMinutes)
	}
}

func TestReplan_BrowseOffersChoicesWithoutMutating(t *testing.T) {
	generator := staticIntent(`{"action": "find_place", "auto_add": false, "query": "coffee"}`)
	places := &mockPlaces{
		searchFn: func(ctx context.Context, query string, near domain.GeoPoint, radius int, openNow bool) ([]domain.Place, error) {
			var out []domain.Place
			for i := 0; i < 5; i++ {
				out = append(out, domain.Place{
					PlaceID:  fmt.Sprintf("p%d", i),
					Name:     fmt.Sprintf("Cafe %d", i),
					Rating:   4.0,
					Location: domain.GeoPoint{Lat: 0, Lng: 0.001 + float64(i)*0.0002},
				})
			}
			return out, nil
		},
	}
	svc := newReplanService(generator, places)
	session := lineSession(0)

	result, err := svc.Replan(context.Background(), session, "find me somewhere for coffee")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !result.Success {
		t.Fatalf("browse should succeed: %+v", result)
	}
	if len(result.Choices) != 3 {
		t.Fatalf("expected top 3 choices, got %d", len(result.Choices))
	}
	if result.RouteUpdated {
		t.Error("browse must not touch the route")
	}
	if got := len(session.RouteCopy().Stops); got != 3 {
		t.Errorf("route mutated during browse: %d stops", got)
	}

	// The offered choices are committable.
	confirm, err := svc.ConfirmInsertion(session, 1)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !confirm.RouteUpdated {
		t.Error("confirm should update the route")
	}
	if got := len(session.RouteCopy().Stops); got != 4 {
		t.Errorf("expected 4 stops after confirm, got %d", got)
	}

	// Choices are single-use.
	if _, err := svc.ConfirmInsertion(session, 0); !errors.Is(err, domain.ErrNoPendingChoices) {
		t.Errorf("second confirm should fail, got %v", err)
	}
}

func TestConfirmInsertion_WithoutPendingChoices(t *testing.T) {
	svc := newReplanService(staticIntent(""), &mockPlaces{})
	session := lineSession(0)

	if _, err := svc.ConfirmInsertion(session, 0); !errors.Is(err, domain.ErrNoPendingChoices) {
		t.Fatalf("expected ErrNoPendingChoices, got %v", err)
	}
}

func TestReplan_SkipStop(t *testing.T) {
	svc := newReplanService(staticIntent(`{"action": "skip_stop"}`), &mockPlaces{})
	session := lineSession(0)

	result, err := svc.Replan(context.Background(), session, "skip this one")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !result.Skipped || !result.Success {
		t.Errorf("expected a skip result, got %+v", result)
	}
	// The replanner reports the skip; advancing the cursor is the caller's job.
	if got := session.RouteCopy().CurrentIndex; got != 0 {
		t.Errorf("replanner advanced the cursor itself: %d", got)
	}
}

func TestReplan_EndTour(t *testing.T) {
	svc := newReplanService(staticIntent(`{"action": "end_tour"}`), &mockPlaces{})
	session := lineSession(0)

	result, err := svc.Replan(context.Background(), session, "I'm done, thanks")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !result.Success || result.Action != domain.ActionEndTour {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestReplan_ChangeThemeReplacesTail(t *testing.T) {
	generator := staticIntent(`{"action": "change_theme", "query": "art galleries"}`)
	places := &mockPlaces{
		searchFn: func(ctx context.Context, query string, near domain.GeoPoint, radius int, openNow bool) ([]domain.Place, error) {
			return []domain.Place{
				{PlaceID: "g1", Name: "Gallery One", Rating: 4.5, Location: domain.GeoPoint{Lat: 0, Lng: 0.003}},
				{PlaceID: "g2", Name: "Gallery Two", Rating: 4.2, Location: domain.GeoPoint{Lat: 0, Lng: 0.005}},
			}, nil
		},
	}
	svc := newReplanService(generator, places)
	session := lineSession(1) // s0 behind us, cursor on s1

	result, err := svc.Replan(context.Background(), session, "show me art instead")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !result.Success || !result.RouteUpdated {
		t.Fatalf("expected a reroute, got %+v", result)
	}

	route := session.RouteCopy()
	// Visited prefix (s0, s1) survives; the tail is the new themed segment.
	if route.Stops[0].ID != "s0" || route.Stops[1].ID != "s1" {
		t.Fatalf("visited prefix lost: %+v", route.Stops)
	}
	if len(route.Stops) != 4 {
		t.Fatalf("expected 2 kept + 2 new stops, got %d", len(route.Stops))
	}
	for _, stop := range route.Stops[2:] {
		if !strings.HasPrefix(stop.Name, "Gallery") {
			t.Errorf("tail stop %q is not from the new theme", stop.Name)
		}
	}
}

func TestReplan_GeneratorFailureFallsBackToSearch(t *testing.T) {
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	searched := ""
	places := &mockPlaces{
		searchFn: func(ctx context.Context, query string, near domain.GeoPoint, radius int, openNow bool) ([]domain.Place, error) {
			searched = query
			return nil, nil
		},
	}
	svc := newReplanService(generator, places)
	session := lineSession(0)

	result, err := svc.Replan(context.Background(), session, "find me a bakery")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	// Fallback intent is find_place carrying the raw utterance.
	if result.Action != domain.ActionFindPlace {
		t.Errorf("action = %s, want find_place fallback", result.Action)
	}
	if searched != "find me a bakery" {
		t.Errorf("searched %q, want the raw utterance", searched)
	}
}

func TestReplan_NoCandidatesMessage(t *testing.T) {
	generator := staticIntent(`{"action": "find_place", "auto_add": true, "query": "submarine rides"}`)
	svc := newReplanService(generator, &mockPlaces{})
	session := lineSession(0)

	result, err := svc.Replan(context.Background(), session, "submarine rides please")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if result.Success || result.RouteUpdated {
		t.Errorf("expected a graceful failure, got %+v", result)
	}
	if result.Message == "" {
		t.Error("failure should carry an explanation for the user")
	}
}

func TestReplan_LowRatedFallbackWhenNothingRatedWell(t *testing.T) {
	generator := staticIntent(`{"action": "find_place", "auto_add": true, "query": "diner"}`)
	places := &mockPlaces{
		searchFn: func(ctx context.Context, query string, near domain.GeoPoint, radius int, openNow bool) ([]domain.Place, error) {
			return []domain.Place{
				{PlaceID: "meh", Name: "Roadside Diner", Rating: 1.5, Location: domain.GeoPoint{Lat: 0, Lng: 0.001}},
			}, nil
		},
	}
	svc := newReplanService(generator, places)
	session := lineSession(0)

	result, err := svc.Replan(context.Background(), session, "any diner will do")
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	// Everything is below the replan cutoff, so the unfiltered list is used
	// rather than telling the user nothing exists.
	if !result.Success {
		t.Fatalf("expected fallback to unrated results, got %+v", result)
	}
	if session.RouteCopy().Stops[1].Name != "Roadside Diner" {
		t.Error("low-rated fallback candidate was not inserted")
	}
}
