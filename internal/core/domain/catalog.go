package domain

// CatalogPOI is one entry in the curated point-of-interest catalog. Facts and
// interactive prompts feed both candidate scoring and narration.
type CatalogPOI struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Location           GeoPoint `json:"location"`
	Address            string   `json:"address"`
	Category           string   `json:"category"`
	DwellMinutes       int      `json:"dwell_minutes"`
	Themes             []string `json:"themes"`
	Facts              []string `json:"facts,omitempty"`
	InteractivePrompts []string `json:"interactive_prompts,omitempty"`
}

// Place is a raw result from the external place-search provider.
type Place struct {
	PlaceID      string   `json:"place_id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Rating       float64  `json:"rating"`
	RatingsTotal int      `json:"ratings_total"`
	Categories   []string `json:"categories"`
	Location     GeoPoint `json:"location"`
}

// Candidate is a scored stop candidate ready for route construction.
type Candidate struct {
	Stop  POIStop
	Score float64
}

// DirectionStep is one leg of a walking instruction set.
type DirectionStep struct {
	Instruction     string `json:"instruction"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Directions describes a walking route between two points. Polyline is empty
// when the estimate came from great-circle math rather than a provider.
type Directions struct {
	DistanceMeters  int             `json:"distance_meters"`
	DurationMinutes float64         `json:"duration_minutes"`
	BearingDegrees  float64         `json:"bearing_degrees,omitempty"`
	Instruction     string          `json:"instruction,omitempty"`
	Steps           []DirectionStep `json:"steps,omitempty"`
	Polyline        string          `json:"polyline,omitempty"`
	Estimated       bool            `json:"estimated"`
}
