package strategy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

func TestPlanDefaultsToHybridWithBaseBudgets(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "tell me about the widget module", Intent: ragtypes.IntentGeneral})
	assert.Equal(t, ragtypes.ModeHybrid, s.Mode)
	assert.True(t, s.UseVector)
	assert.True(t, s.UseMemory)
	assert.True(t, s.UseKeywords)
	assert.False(t, s.UseCode)
	assert.True(t, s.UseGraph)
}

func TestPlanCodeIntentNarrowsTopKAndWidensCodeLimit(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "why does this function panic?", Intent: ragtypes.IntentCode})
	assert.Equal(t, 12, s.TopK)
	assert.Equal(t, 15, s.CodeLimit)
	assert.True(t, s.UseCode)
	assert.False(t, s.UseGraph)
}

func TestPlanExplainIntentWidensBudgets(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "explain how caching works", Intent: ragtypes.IntentExplain})
	assert.Equal(t, 30, s.TopK)
	assert.Equal(t, 15, s.GraphLimit)
}

func TestPlanObjectiveMarkerTightensScopeAndDisablesGraph(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "which file defines the cache key?", Intent: ragtypes.IntentGeneral})
	assert.Equal(t, 8, s.TopK)
	assert.False(t, s.UseGraph)
}

func TestPlanLongOpenEndedQueryWidensBudgets(t *testing.T) {
	long := strings.Repeat("widget ", 30) + "describe everything about how they interact with each other across the system"
	s := Plan(ragtypes.Query{Raw: long, Intent: ragtypes.IntentGeneral})
	assert.Greater(t, s.TopK, 20)
	assert.Greater(t, s.VectorNResults, 10)
}

func TestPlanDefinitionalQueryWithNoProjectTokenSkipsRetrieval(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "What is a widget?", Intent: ragtypes.IntentGeneral})
	assert.Equal(t, ragtypes.ModeNone, s.Mode)
}

func TestPlanDefinitionalQueryWithProjectTokenKeepsRetrieval(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "What is WidgetStore.Get?", Intent: ragtypes.IntentGeneral})
	assert.NotEqual(t, ragtypes.ModeNone, s.Mode)
}

func TestPlanPlanningTriggerOnMarkerKeyword(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "walk me through the entire pipeline flow", Intent: ragtypes.IntentGeneral})
	assert.True(t, s.UsePlanning)
}

func TestPlanPlanningTriggerOnLongQuery(t *testing.T) {
	long := strings.Repeat("a", planningTriggerThreshold+1)
	s := Plan(ragtypes.Query{Raw: long, Intent: ragtypes.IntentGeneral})
	assert.True(t, s.UsePlanning)
}

func TestPlanNoPlanningTriggerOnShortPlainQuery(t *testing.T) {
	s := Plan(ragtypes.Query{Raw: "is it healthy?", Intent: ragtypes.IntentStatus})
	assert.False(t, s.UsePlanning)
}
