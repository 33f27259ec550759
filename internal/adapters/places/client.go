package places

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

const (
	placesBaseURL     = "https://maps.googleapis.com/maps/api/place"
	directionsBaseURL = "https://maps.googleapis.com/maps/api/directions"

	// maxResults caps how many places one search returns.
	maxResults = 5
)

// Client talks to the Google Maps Platform for place search and walking
// directions. An empty API key disables the client: searches return empty
// results and directions return nil, letting callers fall back to the
// curated catalog and great-circle estimates.
type Client struct {
	apiKey string
	http   *http.Client
}

// New creates a Maps client. An empty key is allowed.
func New(apiKey string) *Client {
	if apiKey == "" {
		slog.Warn("no Google Maps API key configured, dynamic place search disabled")
	}
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchPlaces runs a Places text search around a location.
func (c *Client) SearchPlaces(ctx context.Context, query string, near domain.GeoPoint, radiusMeters int, openNow bool) ([]domain.Place, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	params := url.Values{
		"query":    {query},
		"location": {fmt.Sprintf("%f,%f", near.Lat, near.Lng)},
		"radius":   {fmt.Sprintf("%d", radiusMeters)},
		"key":      {c.apiKey},
	}
	if openNow {
		params.Set("opennow", "true")
	}

	body, err := c.get(ctx, placesBaseURL+"/textsearch/json?"+params.Encode())
	if err != nil {
		metrics.PlaceSearchErrors.Inc()
		return nil, fmt.Errorf("places text search: %w", err)
	}

	if status := gjson.GetBytes(body, "status").String(); status != "OK" {
		if status == "ZERO_RESULTS" {
			return nil, nil
		}
		metrics.PlaceSearchErrors.Inc()
		slog.Warn("places API error", "status", status,
			"message", gjson.GetBytes(body, "error_message").String())
		return nil, nil
	}

	var results []domain.Place
	for _, item := range gjson.GetBytes(body, "results").Array() {
		if len(results) >= maxResults {
			break
		}
		var categories []string
		for _, t := range item.Get("types").Array() {
			categories = append(categories, t.String())
		}
		results = append(results, domain.Place{
			PlaceID:      item.Get("place_id").String(),
			Name:         item.Get("name").String(),
			Address:      item.Get("formatted_address").String(),
			Rating:       item.Get("rating").Float(),
			RatingsTotal: int(item.Get("user_ratings_total").Int()),
			Categories:   categories,
			Location: domain.GeoPoint{
				Lat: item.Get("geometry.location.lat").Float(),
				Lng: item.Get("geometry.location.lng").Float(),
			},
		})
	}
	return results, nil
}

// WalkingDirections fetches a walking route. A nil result with nil error
// means the provider is unavailable.
func (c *Client) WalkingDirections(ctx context.Context, origin, destination domain.GeoPoint) (*domain.Directions, error) {
	if c.apiKey == "" {
		return nil, nil
	}

	params := url.Values{
		"origin":      {fmt.Sprintf("%f,%f", origin.Lat, origin.Lng)},
		"destination": {fmt.Sprintf("%f,%f", destination.Lat, destination.Lng)},
		"mode":        {"walking"},
		"key":         {c.apiKey},
	}

	body, err := c.get(ctx, directionsBaseURL+"/json?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}

	leg := gjson.GetBytes(body, "routes.0.legs.0")
	if !leg.Exists() {
		return nil, nil
	}

	dirs := &domain.Directions{
		DistanceMeters:  int(leg.Get("distance.value").Int()),
		DurationMinutes: leg.Get("duration.value").Float() / 60,
		Polyline:        gjson.GetBytes(body, "routes.0.overview_polyline.points").String(),
	}
	for _, step := range leg.Get("steps").Array() {
		dirs.Steps = append(dirs.Steps, domain.DirectionStep{
			Instruction:     step.Get("html_instructions").String(),
			DistanceMeters:  int(step.Get("distance.value").Int()),
			DurationSeconds: int(step.Get("duration.value").Int()),
		})
	}
	if len(dirs.Steps) > 0 {
		dirs.Instruction = dirs.Steps[0].Instruction
	}
	return dirs, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
