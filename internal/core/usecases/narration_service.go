package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/ports"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

// unavailableNarration is returned when the text provider can't be reached.
// There is no fallback for generation itself, only a neutral placeholder.
const unavailableNarration = "I'm having trouble finding my words right now - let's keep walking and I'll try again at the next stop."

// narrationCacheTTLSeconds keeps scripts around for the length of a long
// tour; the cache backend owns eviction.
const narrationCacheTTLSeconds = 3 * 60 * 60

var personaPrompts = map[domain.GuidePersonality]string{
	domain.PersonalityFriendly: "You are a chill local guide. Casual tone, like talking to a friend. Don't oversell anything.",
	domain.PersonalitySerious:  "You are a historian. Thoughtful and knowledgeable, but not preachy. Keep it conversational.",
	domain.PersonalityFunny:    "You are an upbeat explorer. Crack a light joke when something's genuinely interesting, otherwise just be helpful.",
	domain.PersonalityDramatic: "You are a storyteller. A hint of drama when it fits, but mostly straightforward.",
}

// NarrationService generates tour narration, answers questions about stops,
// and classifies chat messages. Scripts are cached by content hash so
// revisits and reconnects don't re-spend generation credits.
type NarrationService struct {
	generator ports.TextGenerator
	knowledge ports.KnowledgeSearcher
	cache     ports.CacheService
}

// NewNarrationService creates a new NarrationService. knowledge and cache
// may be nil.
func NewNarrationService(generator ports.TextGenerator, knowledge ports.KnowledgeSearcher, cache ports.CacheService) *NarrationService {
	return &NarrationService{generator: generator, knowledge: knowledge, cache: cache}
}

// Intro generates the welcome message played at tour start.
func (s *NarrationService) Intro(ctx context.Context, prefs domain.Preferences) string {
	prompt := fmt.Sprintf(`%s
The user has chosen a %s themed walking tour.

Generate a brief, engaging welcome message (2-3 sentences max).
Introduce yourself and get them excited about the tour.
Do not mention stop numbers or directions yet, just a warm welcome.`,
		persona(prefs.Personality), prefs.Theme)

	return s.generate(ctx, prompt)
}

// ForStop generates (or recalls) the narration script for a stop.
func (s *NarrationService) ForStop(ctx context.Context, prefs domain.Preferences, stop domain.POIStop) string {
	key := "narration:" + contentHash(stop.ID, prefs.Theme, string(prefs.Personality))
	if cached, ok := s.cached(ctx, key); ok {
		metrics.NarrationCacheHits.Inc()
		return cached
	}
	metrics.NarrationCacheMisses.Inc()

	facts := s.lookup(ctx, stop.Name)

	prompt := fmt.Sprintf(`%s
The user has arrived at: %s (%s).
This stop is part of a %s themed tour.

Background knowledge (use to stay accurate):
%s

Write a short, engaging narration script (3-4 paragraphs max) for this stop.
Focus on the %q aspect where possible. Plain text only, no markdown.`,
		persona(prefs.Personality), stop.Name, stop.Address, prefs.Theme, facts, prefs.Theme)

	script := s.generate(ctx, prompt)
	if script != unavailableNarration {
		s.store(ctx, key, script)
	}
	return script
}

// Answer responds to a question using background knowledge about the
// current stop and recent conversation turns.
func (s *NarrationService) Answer(ctx context.Context, session *domain.TourSession, question string) string {
	route := session.RouteCopy()

	topic := question
	setting := "Walking between stops."
	if stop := route.CurrentStop(); stop != nil {
		topic = stop.Name
		setting = "At: " + stop.Name
	}
	facts := s.lookup(ctx, topic)

	var history strings.Builder
	for _, msg := range session.RecentHistory(6) {
		fmt.Fprintf(&history, "%s: %s\n", msg.Role, msg.Content)
	}

	prompt := fmt.Sprintf(`%s
%s
The user asked: %q

Background knowledge:
%s

Recent conversation:
%s
Answer in 2-3 sentences, conversational, accurate.`,
		persona(session.Preferences.Personality), setting, question, facts, history.String())

	answer := s.generate(ctx, prompt)
	session.AppendHistory("user", question)
	session.AppendHistory("guide", answer)
	return answer
}

// Classify decides whether a chat message is a replanning request or plain
// conversation. Unparseable output defaults to chat.
func (s *NarrationService) Classify(ctx context.Context, message string) (replan bool) {
	prompt := fmt.Sprintf(`Analyze the user's message during a walking tour.
Message: %q

Classify into one of these categories:
- "REPLAN": the user wants to visit a specific place, find food or coffee, change topic, or skip the current stop.
- "CHAT": the user is asking a question, making a comment, or chatting.

Return ONLY the category name (REPLAN or CHAT).`, message)

	if s.generator == nil {
		return false
	}
	out, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		slog.Warn("message classification failed, treating as chat", "error", err)
		return false
	}
	return strings.Contains(strings.ToUpper(out), "REPLAN")
}

func (s *NarrationService) generate(ctx context.Context, prompt string) string {
	if s.generator == nil {
		return unavailableNarration
	}
	out, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		slog.Warn("narration generation failed", "error", err)
		return unavailableNarration
	}
	return strings.TrimSpace(out)
}

func (s *NarrationService) lookup(ctx context.Context, topic string) string {
	if s.knowledge == nil {
		return ""
	}
	summary, err := s.knowledge.Summary(ctx, topic)
	if err != nil {
		slog.Debug("knowledge lookup failed", "topic", topic, "error", err)
		return ""
	}
	return summary
}

func (s *NarrationService) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (s *NarrationService) store(ctx context.Context, key, value string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, []byte(value), narrationCacheTTLSeconds)
}

func persona(p domain.GuidePersonality) string {
	if prompt, ok := personaPrompts[p]; ok {
		return prompt
	}
	return fmt.Sprintf("You are a tour guide with a %s personality.", p)
}

// contentHash builds a stable cache key from its parts.
func contentHash(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:16])
}
