package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/llm"
	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

func TestSynthesizeEmptyContextReturnsSentinelWithoutLLMCall(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"should not be used"}}
	s := New(fake)

	result := s.Synthesize(context.Background(), ragtypes.Query{Raw: "what is a cache"}, "", 0, 0)
	assert.Equal(t, ragtypes.NoInformationSentinel, result.Answer)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, fake.Prompts)
}

func TestSynthesizeComputesConfidenceFromRerankedCount(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"the answer is [Doc 1]"}}
	s := New(fake)

	result := s.Synthesize(context.Background(), ragtypes.Query{Raw: "q", Intent: ragtypes.IntentGeneral}, "some context", 10, 40)
	assert.Equal(t, 80.0, result.Confidence)
	assert.Equal(t, "the answer is [Doc 1]", result.Answer)
}

func TestSynthesizeConfidenceCapsAt100(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"answer"}}
	s := New(fake)
	result := s.Synthesize(context.Background(), ragtypes.Query{Raw: "q"}, "ctx", 100, 80)
	assert.Equal(t, 100.0, result.Confidence)
}

func TestSynthesizeLLMFailureProducesErrorSentinel(t *testing.T) {
	fake := &llm.Fake{Err: assertError{}}
	s := New(fake)
	result := s.Synthesize(context.Background(), ragtypes.Query{Raw: "q"}, "ctx", 1, 1)
	assert.Contains(t, result.Answer, "Error generating answer")
	assert.Equal(t, 0.0, result.Confidence)
}

func TestSynthesizeWithoutContextYieldsConfidence50(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"generic answer"}}
	s := New(fake)
	result := s.SynthesizeWithoutContext(context.Background(), ragtypes.Query{Raw: "what is a cache"})
	assert.Equal(t, 50.0, result.Confidence)
	assert.Equal(t, "generic answer", result.Answer)
}

func TestScoreOverlapFullMatch(t *testing.T) {
	score := ScoreOverlap("the quick brown fox", "the quick brown fox")
	assert.Equal(t, 10.0, score)
}

func TestScoreOverlapPartialMatch(t *testing.T) {
	score := ScoreOverlap("the quick fox", "the quick brown fox")
	require.Greater(t, score, 0.0)
	require.Less(t, score, 10.0)
}

func TestBuildReportAveragesScores(t *testing.T) {
	report := BuildReport([]ScoredCase{{OverlapScore: 10}, {OverlapScore: 0}})
	assert.Equal(t, 5.0, report.AverageScore)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
