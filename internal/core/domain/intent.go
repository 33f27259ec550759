package domain

import (
	"strings"

	"github.com/tidwall/gjson"
)

// IntentAction is the typed action extracted from a tour utterance.
type IntentAction string

const (
	ActionFindPlace   IntentAction = "find_place"
	ActionSkipStop    IntentAction = "skip_stop"
	ActionEndTour     IntentAction = "end_tour"
	ActionChangeTheme IntentAction = "change_theme"
	ActionUnknown     IntentAction = "unknown"
)

// Intent is the parsed replanning request.
type Intent struct {
	Action  IntentAction `json:"action"`
	AutoAdd bool         `json:"auto_add"`
	Query   string       `json:"query,omitempty"`
	Reason  string       `json:"reason,omitempty"`

	// Fallback marks an intent recovered from unparseable provider output.
	Fallback bool `json:"-"`
}

// ParseIntent parses free-form provider output into an Intent.
// The provider is asked for bare JSON but routinely wraps it in markdown
// fences or prose. Anything unparseable degrades to a find_place intent
// carrying the original utterance, with Fallback set so tests and logs can
// tell recovered intents apart.
func ParseIntent(raw, utterance string) Intent {
	fallback := Intent{
		Action:   ActionFindPlace,
		Query:    utterance,
		Reason:   "parsed from message",
		Fallback: true,
	}

	cleaned := stripFences(raw)
	if !gjson.Valid(cleaned) {
		// Last resort: the provider may have buried a JSON object in prose.
		if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
			cleaned = cleaned[start : end+1]
		}
		if !gjson.Valid(cleaned) {
			return fallback
		}
	}

	action := IntentAction(gjson.Get(cleaned, "action").String())
	switch action {
	case ActionFindPlace, ActionSkipStop, ActionEndTour, ActionChangeTheme:
	default:
		return fallback
	}

	query := gjson.Get(cleaned, "query").String()
	if query == "" && action == ActionFindPlace {
		query = utterance
	}

	return Intent{
		Action:  action,
		AutoAdd: gjson.Get(cleaned, "auto_add").Bool(),
		Query:   query,
		Reason:  gjson.Get(cleaned, "reason").String(),
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
