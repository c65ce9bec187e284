// Package strategy implements the Strategy Planner (C7): a pure
// Plan(Query) -> Strategy function, replacing ad-hoc option bags with a
// typed Strategy record rather than a dynamic agent-config dispatch.
package strategy

import (
	"strings"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

const longOpenEndedThreshold = 120
const planningTriggerThreshold = 160

var objectiveMarkers = []string{
	"where", "which file", "which line", "what line", "what parameter", "which parameter",
	"what flag", "which flag", "what command", "which command",
}

var planningMarkers = []string{
	"pipeline", "flow", "steps", "decompose", "describe", "entire",
}

var definitionalPrefixes = []string{"what is ", "what's ", "define "}

// Plan derives a Strategy from an analyzed Query, applying the routing
// rules below in order.
func Plan(q ragtypes.Query) ragtypes.Strategy {
	s := baseStrategy(q)
	applyIntentAdjustments(&s, q.Intent)
	applyObjectiveAndLengthRules(&s, q.Raw)
	applyDefinitionalRule(&s, q.Raw)
	applyPlanningTrigger(&s, q.Raw)
	return s
}

// baseStrategy sets the default retriever mix and per-retriever budgets.
func baseStrategy(q ragtypes.Query) ragtypes.Strategy {
	return ragtypes.Strategy{
		Mode: ragtypes.ModeHybrid,

		TopK:           20,
		VectorNResults: 10,
		MemoryLimit:    20,
		MemoryConcepts: 3,
		KeywordLimit:   10,
		GraphLimit:     10,
		CodeLimit:      10,

		UseVector:   true,
		UseMemory:   true,
		UseKeywords: true,
		UseCode:     q.Intent == ragtypes.IntentCode,
		UseGraph:    q.Intent == ragtypes.IntentStatus || q.Intent == ragtypes.IntentExplain || q.Intent == ragtypes.IntentGeneral,
		UseRecent:   q.Temporal.Present,

		HalfLifeDays: 3,
	}
}

// applyIntentAdjustments narrows or widens the budgets by intent.
func applyIntentAdjustments(s *ragtypes.Strategy, intent ragtypes.Intent) {
	switch intent {
	case ragtypes.IntentCode:
		s.TopK = 12
		s.VectorNResults = 15
		s.CodeLimit = 15
	case ragtypes.IntentStatus, ragtypes.IntentConfig:
		s.TopK = 10
		s.VectorNResults = 6
		s.MemoryLimit = 10
	case ragtypes.IntentExplain:
		s.TopK = 30
		s.VectorNResults = 15
		s.MemoryLimit = 30
		s.KeywordLimit = 15
		s.GraphLimit = 15
	}
}

// applyObjectiveAndLengthRules tightens scope for pointed factual
// questions and widens it for long open-ended ones.
func applyObjectiveAndLengthRules(s *ragtypes.Strategy, raw string) {
	lower := strings.ToLower(raw)
	for _, marker := range objectiveMarkers {
		if strings.Contains(lower, marker) {
			if s.TopK > 8 {
				s.TopK = 8
			}
			s.UseGraph = false
			break
		}
	}
	if len(raw) > longOpenEndedThreshold {
		s.TopK += 10
		s.VectorNResults += 5
		s.MemoryLimit += 10
	}
}

// applyDefinitionalRule skips retrieval entirely for a generic
// "what is X" / "define X" query with no project-specific tokens.
func applyDefinitionalRule(s *ragtypes.Strategy, raw string) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, prefix := range definitionalPrefixes {
		if strings.HasPrefix(lower, prefix) && !hasProjectSpecificToken(raw) {
			s.Mode = ragtypes.ModeNone
			return
		}
	}
}

// hasProjectSpecificToken is a coarse heuristic: a token containing an
// underscore, a dot, or mixed case (beyond simple capitalization) reads
// as identifier-like rather than a plain English word.
func hasProjectSpecificToken(raw string) bool {
	for _, tok := range strings.Fields(raw) {
		tok = strings.Trim(tok, "?.,!")
		if strings.ContainsAny(tok, "_.") || hasInternalUppercase(tok) {
			return true
		}
	}
	return false
}

func hasInternalUppercase(tok string) bool {
	for i, r := range tok {
		if i == 0 {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

// applyPlanningTrigger flags long or decomposition-shaped queries for
// query-decomposition in the orchestrator.
func applyPlanningTrigger(s *ragtypes.Strategy, raw string) {
	if len(raw) > planningTriggerThreshold {
		s.UsePlanning = true
		return
	}
	lower := strings.ToLower(raw)
	for _, marker := range planningMarkers {
		if strings.Contains(lower, marker) {
			s.UsePlanning = true
			return
		}
	}
}
