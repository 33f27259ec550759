package ports

import (
	"context"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
)

// PlaceSearcher finds real-world places near a location. Implementations
// must return an empty slice, not an error, when the provider is not
// configured; callers treat empty results as a normal outcome and fall
// through to the curated catalog.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string, near domain.GeoPoint, radiusMeters int, openNow bool) ([]domain.Place, error)
}

// DirectionsProvider returns turn-by-turn walking directions. A nil result
// with a nil error means the provider is unavailable; callers fall back to
// great-circle estimation.
type DirectionsProvider interface {
	WalkingDirections(ctx context.Context, origin, destination domain.GeoPoint) (*domain.Directions, error)
}

// TextGenerator produces free-form text from a prompt (intent extraction,
// narration, Q&A).
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// KnowledgeSearcher fetches an encyclopedic summary for a topic. Failures
// degrade to an empty string.
type KnowledgeSearcher interface {
	Summary(ctx context.Context, topic string) (string, error)
}

// SpeechSynthesizer converts narration text to audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	SelectVoice(gender, tone string) string
}

// CacheService provides read-through caching with TTL eviction.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher pushes tour events to a message broker for realtime relay.
type EventPublisher interface {
	PublishTourEvent(ctx context.Context, tourID string, data []byte) error
	PublishBroadcast(ctx context.Context, data []byte) error
}
