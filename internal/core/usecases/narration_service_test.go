package usecases_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/usecases"
)

// --- Mock CacheService ---

type mockCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.store[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

// --- Mock KnowledgeSearcher ---

type mockKnowledge struct {
	summaryFn func(ctx context.Context, topic string) (string, error)
}

func (m *mockKnowledge) Summary(ctx context.Context, topic string) (string, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, topic)
	}
	return "", nil
}

func narrationPrefs() domain.Preferences {
	return domain.Preferences{
		Theme:       domain.ThemeHistorical,
		Personality: domain.PersonalityFriendly,
	}
}

func TestForStop_CachesByContent(t *testing.T) {
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "Welcome to the Athenaeum, where Poe once loitered.", nil
		},
	}
	svc := usecases.NewNarrationService(generator, nil, newMockCache())
	stop := domain.POIStop{ID: "athenaeum", Name: "Providence Athenaeum"}

	first := svc.ForStop(context.Background(), narrationPrefs(), stop)
	second := svc.ForStop(context.Background(), narrationPrefs(), stop)

	if first != second {
		t.Error("cached script differs from generated one")
	}
	if generator.calls != 1 {
		t.Errorf("generator called %d times, want 1", generator.calls)
	}
}

func TestForStop_CacheKeyedByPersonality(t *testing.T) {
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "script", nil
		},
	}
	svc := usecases.NewNarrationService(generator, nil, newMockCache())
	stop := domain.POIStop{ID: "athenaeum", Name: "Providence Athenaeum"}

	svc.ForStop(context.Background(), narrationPrefs(), stop)

	dramatic := narrationPrefs()
	dramatic.Personality = domain.PersonalityDramatic
	svc.ForStop(context.Background(), dramatic, stop)

	if generator.calls != 2 {
		t.Errorf("different personalities should not share cache entries, calls = %d", generator.calls)
	}
}

func TestForStop_FailureNotCached(t *testing.T) {
	failing := true
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			if failing {
				return "", errors.New("model unavailable")
			}
			return "real script", nil
		},
	}
	svc := usecases.NewNarrationService(generator, nil, newMockCache())
	stop := domain.POIStop{ID: "s", Name: "Stop"}

	placeholder := svc.ForStop(context.Background(), narrationPrefs(), stop)
	if placeholder == "" || placeholder == "real script" {
		t.Fatalf("expected a placeholder, got %q", placeholder)
	}

	// Once the model recovers, the placeholder must not mask the real script.
	failing = false
	if got := svc.ForStop(context.Background(), narrationPrefs(), stop); got != "real script" {
		t.Errorf("placeholder was cached: %q", got)
	}
}

func TestForStop_UsesBackgroundKnowledge(t *testing.T) {
	var sawPrompt string
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			sawPrompt = prompt
			return "script", nil
		},
	}
	knowledge := &mockKnowledge{
		summaryFn: func(ctx context.Context, topic string) (string, error) {
			return "Founded in 1836, the library predates the Civil War.", nil
		},
	}
	svc := usecases.NewNarrationService(generator, knowledge, nil)

	svc.ForStop(context.Background(), narrationPrefs(), domain.POIStop{ID: "a", Name: "Athenaeum"})
	if !strings.Contains(sawPrompt, "Founded in 1836") {
		t.Error("background knowledge missing from the generation prompt")
	}
}

func TestAnswer_RecordsConversation(t *testing.T) {
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "It was built in 1838.", nil
		},
	}
	svc := usecases.NewNarrationService(generator, nil, nil)
	session := lineSession(0)

	answer := svc.Answer(context.Background(), session, "When was this built?")
	if answer != "It was built in 1838." {
		t.Fatalf("answer = %q", answer)
	}

	history := session.RecentHistory(2)
	if len(history) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "guide" {
		t.Errorf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		output string
		err    error
		want   bool
	}{
		{output: "REPLAN", want: true},
		{output: "replan", want: true},
		{output: "CHAT", want: false},
		{output: "This is CHAT I think", want: false},
		{err: errors.New("down"), want: false},
	}
	for _, tc := range cases {
		generator := &mockGenerator{
			generateFn: func(ctx context.Context, prompt string) (string, error) {
				return tc.output, tc.err
			},
		}
		svc := usecases.NewNarrationService(generator, nil, nil)
		if got := svc.Classify(context.Background(), "msg"); got != tc.want {
			t.Errorf("Classify with output %q err %v = %v, want %v", tc.output, tc.err, got, tc.want)
		}
	}
}

func TestIntro_NoGeneratorDegrades(t *testing.T) {
	svc := usecases.NewNarrationService(nil, nil, nil)
	if got := svc.Intro(context.Background(), narrationPrefs()); got == "" {
		t.Error("expected a placeholder intro, got empty string")
	}
}
