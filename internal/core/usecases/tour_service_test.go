package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/usecases"
)

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	TourID string
	Data   []byte
}

func (m *mockPublisher) PublishTourEvent(ctx context.Context, tourID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{TourID: tourID, Data: data})
	return nil
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

func (m *mockPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []string
	for _, e := range m.events {
		var payload struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(e.Data, &payload)
		types = append(types, payload.Type)
	}
	return types
}

func newTourService(publisher *mockPublisher) *usecases.TourService {
	routes := usecases.NewRouteService(usecases.NewCandidateService(nil, catalogOf(5, "historical")), nil)
	start := domain.GeoPoint{Lat: 41.8240, Lng: -71.4128}
	if publisher == nil {
		return usecases.NewTourService(routes, nil, start, 50, false)
	}
	return usecases.NewTourService(routes, publisher, start, 50, false)
}

func TestTourService_CreateAppliesDefaults(t *testing.T) {
	svc := newTourService(nil)

	session, err := svc.Create(context.Background(), usecases.CreateTourRequest{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Preferences.Theme != domain.ThemeHistorical {
		t.Errorf("theme = %s, want historical default", session.Preferences.Theme)
	}
	if session.Preferences.BudgetMinutes != 60 {
		t.Errorf("budget = %d, want 60", session.Preferences.BudgetMinutes)
	}
	if session.Preferences.Personality != domain.PersonalityFriendly {
		t.Errorf("personality = %s, want friendly default", session.Preferences.Personality)
	}
	if session.Status() != domain.StatusInitial {
		t.Errorf("status = %s, want initial", session.Status())
	}
	if len(session.RouteCopy().Stops) == 0 {
		t.Error("create should build an initial route")
	}
}

func TestTourService_GetAndDelete(t *testing.T) {
	svc := newTourService(nil)
	session, _ := svc.Create(context.Background(), usecases.CreateTourRequest{})

	got, err := svc.Get(session.ID)
	if err != nil || got.ID != session.ID {
		t.Fatalf("get: %v", err)
	}

	if err := svc.Delete(session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(session.ID); !errors.Is(err, domain.ErrTourNotFound) {
		t.Errorf("expected ErrTourNotFound after delete, got %v", err)
	}
	if err := svc.Delete(session.ID); !errors.Is(err, domain.ErrTourNotFound) {
		t.Errorf("double delete should report not found, got %v", err)
	}
}

func TestTourService_GetUnknownID(t *testing.T) {
	svc := newTourService(nil)
	if _, err := svc.Get("nope"); !errors.Is(err, domain.ErrTourNotFound) {
		t.Fatalf("expected ErrTourNotFound, got %v", err)
	}
}

func TestUpdateLocation_ProximityHint(t *testing.T) {
	svc := newTourService(nil)
	session, _ := svc.Create(context.Background(), usecases.CreateTourRequest{})
	stop := session.RouteCopy().Stops[0]

	// Standing 10m shy of the first stop.
	update, err := svc.UpdateLocation(context.Background(), session.ID, domain.GeoPoint{
		Lat: stop.Location.Lat + 0.00009,
		Lng: stop.Location.Lng,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if update.Proximity == nil {
		t.Fatal("expected a proximity hint within 50m")
	}
	if update.Proximity.POIID != stop.ID {
		t.Errorf("hint names %s, want %s", update.Proximity.POIID, stop.ID)
	}
	// The session is still initial, so the POI transition isn't legal yet.
	if update.Proximity.ShouldTransition {
		t.Error("should_transition must be false while the tour is initial")
	}

	// Once traveling, the same position makes the transition legal.
	if err := session.TransitionTo(domain.StatusTraveling); err != nil {
		t.Fatalf("transition: %v", err)
	}
	update, _ = svc.UpdateLocation(context.Background(), session.ID, domain.GeoPoint{
		Lat: stop.Location.Lat + 0.00009,
		Lng: stop.Location.Lng,
	})
	if update.Proximity == nil || !update.Proximity.ShouldTransition {
		t.Error("should_transition must be true while traveling")
	}
}

func TestUpdateLocation_FarAwayGetsDirections(t *testing.T) {
	svc := newTourService(nil)
	session, _ := svc.Create(context.Background(), usecases.CreateTourRequest{})
	stop := session.RouteCopy().Stops[0]

	update, err := svc.UpdateLocation(context.Background(), session.ID, domain.GeoPoint{
		Lat: stop.Location.Lat + 0.01,
		Lng: stop.Location.Lng,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if update.Proximity != nil {
		t.Error("no proximity hint expected a kilometer out")
	}
	if update.Directions == nil || !update.Directions.Estimated {
		t.Errorf("expected estimated directions, got %+v", update.Directions)
	}
}

func TestCheckProximity_ThresholdDefault(t *testing.T) {
	svc := newTourService(nil)
	a := domain.GeoPoint{Lat: 41.8240, Lng: -71.4128}
	near := domain.GeoPoint{Lat: 41.82403, Lng: -71.4128}  // ~3m
	far := domain.GeoPoint{Lat: 41.8250, Lng: -71.4128}    // ~111m

	if !svc.CheckProximity(a, near, 0) {
		t.Error("3m apart should be within the 50m default")
	}
	if svc.CheckProximity(a, far, 0) {
		t.Error("111m apart should be outside the 50m default")
	}
	if !svc.CheckProximity(a, far, 200) {
		t.Error("explicit 200m threshold should include 111m")
	}
}

func TestAdvance_ReportsCompletion(t *testing.T) {
	svc := newTourService(nil)
	session, _ := svc.Create(context.Background(), usecases.CreateTourRequest{BudgetMinutes: 600})
	total := len(session.RouteCopy().Stops)
	if total < 2 {
		t.Fatalf("test needs at least 2 stops, got %d", total)
	}

	for i := 1; i < total; i++ {
		result, err := svc.Advance(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if !result.Advanced {
			t.Fatalf("advance %d should move the cursor", i)
		}
		if result.CurrentIndex != i {
			t.Errorf("cursor = %d, want %d", result.CurrentIndex, i)
		}
		wantComplete := i == total-1
		if result.IsComplete != wantComplete {
			t.Errorf("advance %d: is_complete = %v, want %v", i, result.IsComplete, wantComplete)
		}
	}

	// Past the end: a no-op, never an error.
	result, err := svc.Advance(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("advance past end: %v", err)
	}
	if result.Advanced {
		t.Error("cursor advanced past the last stop")
	}
}

func TestTransition_PublishesEvents(t *testing.T) {
	publisher := &mockPublisher{}
	svc := newTourService(publisher)
	session, _ := svc.Create(context.Background(), usecases.CreateTourRequest{})

	if err := svc.Transition(context.Background(), session.ID, domain.StatusTraveling); err != nil {
		t.Fatalf("transition: %v", err)
	}

	types := publisher.eventTypes()
	if len(types) < 2 || types[0] != "tour_created" || types[1] != "status_changed" {
		t.Errorf("unexpected event stream: %v", types)
	}
}

func TestTransition_InvalidIsRejected(t *testing.T) {
	svc := newTourService(nil)
	session, _ := svc.Create(context.Background(), usecases.CreateTourRequest{})

	err := svc.Transition(context.Background(), session.ID, domain.StatusPOI)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if session.Status() != domain.StatusInitial {
		t.Errorf("rejected transition changed state to %s", session.Status())
	}
}

func TestTourService_ConcurrentAccess(t *testing.T) {
	svc := newTourService(nil)
	session, _ := svc.Create(context.Background(), usecases.CreateTourRequest{BudgetMinutes: 600})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_, _ = svc.UpdateLocation(context.Background(), session.ID, domain.GeoPoint{Lat: 41.82, Lng: -71.41})
			case 1:
				_, _ = svc.Advance(context.Background(), session.ID)
			default:
				_, _ = svc.Get(session.ID)
			}
		}(i)
	}
	wg.Wait()

	route := session.RouteCopy()
	if route.CurrentIndex < 0 || route.CurrentIndex >= len(route.Stops) {
		t.Errorf("cursor out of bounds after concurrent access: %d of %d", route.CurrentIndex, len(route.Stops))
	}
}
