package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tour themes shipped with the curated catalog. Dynamic search accepts any
// free-form theme keyword.
const (
	ThemeHistorical = "historical"
	ThemeArt        = "art"
	ThemeGhost      = "ghost"
)

// GuidePersonality selects the narration voice and register.
type GuidePersonality string

const (
	PersonalityFunny    GuidePersonality = "funny"
	PersonalitySerious  GuidePersonality = "serious"
	PersonalityDramatic GuidePersonality = "dramatic"
	PersonalityFriendly GuidePersonality = "friendly"
)

// TourStatus is the lifecycle state of a tour session.
type TourStatus string

const (
	StatusInitial   TourStatus = "initial"
	StatusTraveling TourStatus = "traveling"
	StatusPOI       TourStatus = "poi"
	StatusComplete  TourStatus = "complete"
)

// validTransitions is the full lifecycle table. COMPLETE is terminal.
var validTransitions = map[TourStatus][]TourStatus{
	StatusInitial:   {StatusTraveling},
	StatusTraveling: {StatusPOI, StatusComplete},
	StatusPOI:       {StatusTraveling, StatusComplete},
	StatusComplete:  {},
}

// CanTransitionTo reports whether the lifecycle table allows s -> next.
func (s TourStatus) CanTransitionTo(next TourStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Preferences are fixed at tour creation.
type Preferences struct {
	BudgetMinutes int              `json:"budget_minutes"`
	Theme         string           `json:"theme"`
	SoundEffects  bool             `json:"sound_effects"`
	Personality   GuidePersonality `json:"personality"`
	Interactive   bool             `json:"interactive"`
}

// POIStop is a single stop on the tour route. Stops are never mutated in
// place; replanning only inserts new stops or replaces the route tail.
type POIStop struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Location     GeoPoint `json:"location"`
	Address      string   `json:"address"`
	Category     string   `json:"category"`
	DwellMinutes int      `json:"dwell_minutes"`
	Themes       []string `json:"themes"`
}

// Route is an ordered sequence of stops with a forward-only cursor.
type Route struct {
	Stops        []POIStop `json:"stops"`
	CurrentIndex int       `json:"current_index"`
	Destination  *GeoPoint `json:"destination,omitempty"`
}

// CurrentStop returns the stop under the cursor, or nil past the end.
func (r *Route) CurrentStop() *POIStop {
	if r.CurrentIndex >= 0 && r.CurrentIndex < len(r.Stops) {
		return &r.Stops[r.CurrentIndex]
	}
	return nil
}

// NextStop returns the stop after the cursor, or nil.
func (r *Route) NextStop() *POIStop {
	if next := r.CurrentIndex + 1; next < len(r.Stops) {
		return &r.Stops[next]
	}
	return nil
}

// Advance moves the cursor forward by one stop. At the last stop it reports
// false and leaves the cursor unchanged; it never errors.
func (r *Route) Advance() bool {
	if r.CurrentIndex < len(r.Stops)-1 {
		r.CurrentIndex++
		return true
	}
	return false
}

// Message is one turn of the tour conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NarrationProgress tracks the script state for the stop being narrated.
type NarrationProgress struct {
	StopID      string `json:"stop_id,omitempty"`
	Position    int    `json:"position"`
	Interrupted bool   `json:"interrupted"`
	Script      string `json:"script,omitempty"`
}

// DetourChoice is one ranked insertion candidate from a browse-mode replan.
type DetourChoice struct {
	Place           Place   `json:"place"`
	InsertIndex     int     `json:"insert_index"`
	AddedCostMeters float64 `json:"added_cost_meters"`
}

// TourSession is the full mutable state of one active tour. All reads and
// writes go through its methods; the internal mutex serializes them so at
// most one mutation is in flight per session. Callers must not hold results
// of external network calls against the lock: snapshot first, call, then
// commit.
type TourSession struct {
	ID          string
	CreatedAt   time.Time
	Preferences Preferences

	mu        sync.Mutex
	status    TourStatus
	route     Route
	location  *GeoPoint
	history   []Message
	narration NarrationProgress
	pending   []DetourChoice
}

// NewTourSession creates a session in the initial state.
func NewTourSession(prefs Preferences) *TourSession {
	return &TourSession{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Preferences: prefs,
		status:      StatusInitial,
	}
}

// Status returns the current lifecycle state.
func (t *TourSession) Status() TourStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// TransitionTo applies a lifecycle transition. Illegal transitions return
// ErrInvalidTransition and leave the status unchanged.
func (t *TourSession) TransitionTo(next TourStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	t.status = next
	return nil
}

// SetLocation records the latest reported user position.
func (t *TourSession) SetLocation(p GeoPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.location = &p
}

// Location returns the last reported position, if any.
func (t *TourSession) Location() (GeoPoint, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.location == nil {
		return GeoPoint{}, false
	}
	return *t.location, true
}

// RouteCopy returns a deep copy of the route so callers can evaluate
// insertions without holding the session lock.
func (t *TourSession) RouteCopy() Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := t.route
	cp.Stops = append([]POIStop(nil), t.route.Stops...)
	return cp
}

// SetRoute installs a freshly built route and resets any pending choices.
func (t *TourSession) SetRoute(r Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.route = r
	t.pending = nil
}

// InsertStop splices a stop into the route at idx. The index must lie
// strictly after the cursor and at most at the tail; anything else reports
// an infeasible insertion without mutating the route.
func (t *TourSession) InsertStop(stop POIStop, idx int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx <= t.route.CurrentIndex || idx > len(t.route.Stops) {
		return ErrInfeasibleInsertion
	}
	stops := make([]POIStop, 0, len(t.route.Stops)+1)
	stops = append(stops, t.route.Stops[:idx]...)
	stops = append(stops, stop)
	stops = append(stops, t.route.Stops[idx:]...)
	t.route.Stops = stops
	t.pending = nil
	return nil
}

// ReplaceTail keeps stops up to and including the cursor and replaces
// everything after with the given segment.
func (t *TourSession) ReplaceTail(stops []POIStop) {
	t.mu.Lock()
	defer t.mu.Unlock()
	keep := t.route.CurrentIndex + 1
	if keep > len(t.route.Stops) {
		keep = len(t.route.Stops)
	}
	t.route.Stops = append(t.route.Stops[:keep:keep], stops...)
	t.pending = nil
}

// Advance moves the route cursor forward. It reports whether the cursor
// moved and whether the tour has no further stop after the new position.
func (t *TourSession) Advance() (advanced, isComplete bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	advanced = t.route.Advance()
	isComplete = t.route.NextStop() == nil
	return advanced, isComplete
}

// AppendHistory records one turn of conversation.
func (t *TourSession) AppendHistory(role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, Message{Role: role, Content: content})
}

// RecentHistory returns up to n most recent conversation turns.
func (t *TourSession) RecentHistory(n int) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.history) {
		n = len(t.history)
	}
	return append([]Message(nil), t.history[len(t.history)-n:]...)
}

// SetNarration updates the narration progress marker.
func (t *TourSession) SetNarration(p NarrationProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.narration = p
}

// Narration returns the current narration progress marker.
func (t *TourSession) Narration() NarrationProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.narration
}

// SetPendingChoices stashes browse-mode candidates for a later confirm.
// Any subsequent route mutation clears them.
func (t *TourSession) SetPendingChoices(choices []DetourChoice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append([]DetourChoice(nil), choices...)
}

// TakePendingChoice removes and returns the pending choice at i.
func (t *TourSession) TakePendingChoice(i int) (DetourChoice, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.pending) {
		return DetourChoice{}, ErrNoPendingChoices
	}
	choice := t.pending[i]
	t.pending = nil
	return choice, nil
}

// TourView is the wire representation of a session.
type TourView struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Preferences Preferences `json:"preferences"`
	Route       Route       `json:"route"`
	Status      TourStatus  `json:"status"`
	Location    *GeoPoint   `json:"current_location,omitempty"`
	CurrentStop string      `json:"current_stop,omitempty"`
}

// View returns a consistent snapshot for serialization.
func (t *TourSession) View() TourView {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := TourView{
		ID:          t.ID,
		CreatedAt:   t.CreatedAt,
		Preferences: t.Preferences,
		Status:      t.status,
	}
	v.Route = t.route
	v.Route.Stops = append([]POIStop(nil), t.route.Stops...)
	if t.location != nil {
		loc := *t.location
		v.Location = &loc
	}
	if cur := t.route.CurrentStop(); cur != nil {
		v.CurrentStop = cur.Name
	}
	return v
}
