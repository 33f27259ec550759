package usecases

import (
	"context"
	"fmt"

	"github.com/wayfarelabs/wayfare/internal/core/ports"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

// audioCacheTTLSeconds matches the narration cache window. Synthesis is the
// most expensive external call, so cached audio is reused aggressively.
const audioCacheTTLSeconds = 3 * 60 * 60

// SpeechService converts narration text to audio, caching bytes by content
// hash so a replayed script never re-invokes the synthesizer.
type SpeechService struct {
	tts   ports.SpeechSynthesizer
	cache ports.CacheService
}

// NewSpeechService creates a new SpeechService. cache may be nil.
func NewSpeechService(tts ports.SpeechSynthesizer, cache ports.CacheService) *SpeechService {
	return &SpeechService{tts: tts, cache: cache}
}

// Speak synthesizes text with a voice chosen for the given gender and tone.
func (s *SpeechService) Speak(ctx context.Context, text, gender, tone string) ([]byte, error) {
	if s.tts == nil {
		return nil, fmt.Errorf("speech synthesizer not configured")
	}

	voiceID := s.tts.SelectVoice(gender, tone)
	key := "audio:" + contentHash(text, voiceID)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && len(data) > 0 {
			metrics.AudioCacheHits.Inc()
			return data, nil
		}
	}
	metrics.AudioCacheMisses.Inc()

	audio, err := s.tts.Synthesize(ctx, text, voiceID)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, audio, audioCacheTTLSeconds)
	}
	return audio, nil
}
