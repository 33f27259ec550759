package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ttsURL  = "https://api.elevenlabs.io/v1/text-to-speech/"
	modelID = "eleven_turbo_v2_5"
)

// voice is one entry in the built-in voice library. Tags describe delivery
// style and are matched against the requested tone.
type voice struct {
	id     string
	gender string
	tags   []string
}

var voices = []voice{
	{id: "21m00Tcm4TlvDq8ikWAM", gender: "female", tags: []string{"calm", "warm", "narration"}},
	{id: "AZnzlk1XvdvUeBnXmlld", gender: "female", tags: []string{"energetic", "bright", "young"}},
	{id: "EXAVITQu4vr4xnSDxMaL", gender: "female", tags: []string{"soft", "gentle", "soothing"}},
	{id: "ErXwobaYiN019PkySvjV", gender: "male", tags: []string{"deep", "authoritative", "narration"}},
	{id: "TxGEqnHWrfWFTfGW9XjX", gender: "male", tags: []string{"deep", "dramatic", "spooky"}},
	{id: "VR6AewLTigWG4xSOukaG", gender: "male", tags: []string{"crisp", "energetic", "enthusiastic"}},
}

// defaultVoiceID is used when nothing in the library matches.
const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// Client synthesizes speech through the ElevenLabs API.
type Client struct {
	apiKey string
	http   *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SelectVoice picks the library voice that best matches the requested
// gender and tone. Matching is keyword-based: gender equality scores
// highest, then each tone word found among the voice's tags.
func (c *Client) SelectVoice(gender, tone string) string {
	gender = strings.ToLower(strings.TrimSpace(gender))
	words := strings.Fields(strings.ToLower(tone))

	bestID := defaultVoiceID
	bestScore := 0
	for _, v := range voices {
		score := 0
		if gender != "" && v.gender == gender {
			score += 2
		}
		for _, w := range words {
			for _, tag := range v.tags {
				if tag == w {
					score++
				}
			}
		}
		if score > bestScore {
			bestScore = score
			bestID = v.id
		}
	}
	return bestID
}

// Synthesize converts text to MP3 audio using the given voice.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: API key not configured")
	}
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": modelID,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ttsURL+voiceID, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
