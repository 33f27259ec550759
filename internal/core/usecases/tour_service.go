package usecases

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/ports"
	"github.com/wayfarelabs/wayfare/internal/pkg/geospatial"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

// DefaultProximityMeters is the radius that counts as "arrived" at a stop.
const DefaultProximityMeters = 50.0

// CreateTourRequest carries the preferences for a new tour.
type CreateTourRequest struct {
	BudgetMinutes int
	Theme         string
	SoundEffects  bool
	Personality   domain.GuidePersonality
	Interactive   bool
	Start         *domain.GeoPoint
	DynamicSearch bool
}

// ProximityHint reports that the user is close to the current stop. The
// engine never forces the POI transition itself; ShouldTransition tells the
// caller it would now be legal.
type ProximityHint struct {
	NearPOI          bool   `json:"near_poi"`
	POIID            string `json:"poi_id"`
	POIName          string `json:"poi_name"`
	ShouldTransition bool   `json:"should_transition"`
}

// LocationUpdate is the outcome of reporting a new position.
type LocationUpdate struct {
	Location   domain.GeoPoint    `json:"current_location"`
	Proximity  *ProximityHint     `json:"proximity,omitempty"`
	Directions *domain.Directions `json:"directions,omitempty"`
}

// AdvanceResult reports a cursor advancement.
type AdvanceResult struct {
	Advanced     bool   `json:"advanced"`
	IsComplete   bool   `json:"is_complete"`
	CurrentIndex int    `json:"current_index"`
	CurrentStop  string `json:"current_stop,omitempty"`
}

// TourService owns all active tour sessions. The registry map has its own
// lock; each session serializes its mutations internally, so two handlers
// hitting the same tour can't interleave route writes.
type TourService struct {
	mu    sync.RWMutex
	tours map[string]*domain.TourSession

	routes           *RouteService
	publisher        ports.EventPublisher
	defaultStart     domain.GeoPoint
	proximityMeters  float64
	dynamicByDefault bool
}

// NewTourService creates a new TourService. publisher may be nil.
// dynamicByDefault makes new tours use live place search unless the request
// asks otherwise.
func NewTourService(routes *RouteService, publisher ports.EventPublisher, defaultStart domain.GeoPoint, proximityMeters float64, dynamicByDefault bool) *TourService {
	if proximityMeters <= 0 {
		proximityMeters = DefaultProximityMeters
	}
	return &TourService{
		tours:            make(map[string]*domain.TourSession),
		routes:           routes,
		publisher:        publisher,
		defaultStart:     defaultStart,
		proximityMeters:  proximityMeters,
		dynamicByDefault: dynamicByDefault,
	}
}

// Create registers a new session and builds its initial route.
func (s *TourService) Create(ctx context.Context, req CreateTourRequest) (*domain.TourSession, error) {
	prefs := domain.Preferences{
		BudgetMinutes: req.BudgetMinutes,
		Theme:         req.Theme,
		SoundEffects:  req.SoundEffects,
		Personality:   req.Personality,
		Interactive:   req.Interactive,
	}
	if prefs.BudgetMinutes <= 0 {
		prefs.BudgetMinutes = 60
	}
	if prefs.Theme == "" {
		prefs.Theme = domain.ThemeHistorical
	}
	if prefs.Personality == "" {
		prefs.Personality = domain.PersonalityFriendly
	}

	start := s.defaultStart
	if req.Start != nil {
		start = *req.Start
	}

	session := domain.NewTourSession(prefs)
	session.SetLocation(start)

	// Route construction happens before the session is visible to anyone
	// else, so no other mutation can race it.
	route := s.routes.BuildRoute(ctx, BuildRequest{
		Start:         start,
		Theme:         prefs.Theme,
		BudgetMinutes: prefs.BudgetMinutes,
		DynamicSearch: req.DynamicSearch || s.dynamicByDefault,
	})
	session.SetRoute(route)

	s.mu.Lock()
	s.tours[session.ID] = session
	s.mu.Unlock()

	metrics.ActiveTours.Inc()
	s.publish(ctx, session.ID, "tour_created", session.View())
	return session, nil
}

// Get returns the session for an id.
func (s *TourService) Get(id string) (*domain.TourSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.tours[id]
	if !ok {
		return nil, domain.ErrTourNotFound
	}
	return session, nil
}

// Delete removes a session.
func (s *TourService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tours[id]; !ok {
		return domain.ErrTourNotFound
	}
	delete(s.tours, id)
	metrics.ActiveTours.Dec()
	return nil
}

// UpdateLocation records a position and reports either a proximity hint for
// the current stop or directions toward it.
func (s *TourService) UpdateLocation(ctx context.Context, id string, loc domain.GeoPoint) (*LocationUpdate, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	session.SetLocation(loc)

	update := &LocationUpdate{Location: loc}
	route := session.RouteCopy()
	stop := route.CurrentStop()
	if stop == nil {
		return update, nil
	}

	if s.CheckProximity(loc, stop.Location, s.proximityMeters) {
		update.Proximity = &ProximityHint{
			NearPOI:          true,
			POIID:            stop.ID,
			POIName:          stop.Name,
			ShouldTransition: session.Status() == domain.StatusTraveling,
		}
		s.publish(ctx, id, "proximity", update.Proximity)
	} else {
		update.Directions = s.routes.WalkingDirections(ctx, loc, stop.Location)
	}
	return update, nil
}

// CheckProximity reports whether two points are within thresholdMeters.
// A non-positive threshold uses the service default.
func (s *TourService) CheckProximity(current, poi domain.GeoPoint, thresholdMeters float64) bool {
	if thresholdMeters <= 0 {
		thresholdMeters = s.proximityMeters
	}
	return geospatial.Within(current.Lat, current.Lng, poi.Lat, poi.Lng, thresholdMeters)
}

// Transition applies a lifecycle transition to a session.
func (s *TourService) Transition(ctx context.Context, id string, next domain.TourStatus) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := session.TransitionTo(next); err != nil {
		return err
	}
	s.publish(ctx, id, "status_changed", map[string]string{"status": string(next)})
	return nil
}

// Advance moves the session's route cursor forward by one stop.
func (s *TourService) Advance(ctx context.Context, id string) (*AdvanceResult, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	advanced, isComplete := session.Advance()
	route := session.RouteCopy()
	result := &AdvanceResult{
		Advanced:     advanced,
		IsComplete:   isComplete,
		CurrentIndex: route.CurrentIndex,
	}
	if stop := route.CurrentStop(); stop != nil {
		result.CurrentStop = stop.Name
	}

	if advanced {
		s.publish(ctx, id, "advanced", result)
	}
	return result, nil
}

// publish sends a tour event to the broker, if one is wired.
func (s *TourService) publish(ctx context.Context, tourID, event string, payload any) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(map[string]any{"type": event, "tour_id": tourID, "data": payload})
	if err != nil {
		return
	}
	_ = s.publisher.PublishTourEvent(ctx, tourID, data)
}
