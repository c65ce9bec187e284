package memoryclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchWellFormedJSON(t *testing.T) {
	c := New(`echo '[{"content":"the deploy pipeline runs nightly","entity":"pipeline","type":"fact","updatedAt":"2026-07-01T00:00:00Z"}]'`, time.Second)
	docs := c.Search(context.Background(), "deploy", 5)
	require.Len(t, docs, 1)
	assert.Equal(t, "the deploy pipeline runs nightly", docs[0].Content)
	assert.Equal(t, "pipeline", docs[0].Metadata["entity"])
}

func TestSearchTruncatedJSONFallsBackToRegex(t *testing.T) {
	longObservation := "this is a long quoted observation string that goes on and on past one hundred characters to trigger the fallback path here"
	require.Greater(t, len(longObservation), 100)
	c := New(`printf '[{"content": "`+longObservation+`", truncated`, time.Second)
	docs := c.Search(context.Background(), "q", 5)
	require.Len(t, docs, 1)
	assert.Equal(t, longObservation, docs[0].Content)
}

func TestSearchTimeoutReturnsEmpty(t *testing.T) {
	c := New("sleep 2", 10*time.Millisecond)
	docs := c.Search(context.Background(), "q", 5)
	assert.Empty(t, docs)
}

func TestSearchNonZeroExitReturnsEmpty(t *testing.T) {
	c := New("exit 1", time.Second)
	docs := c.Search(context.Background(), "q", 5)
	assert.Empty(t, docs)
}

func TestSearchEmptyCommandReturnsEmpty(t *testing.T) {
	c := New("", time.Second)
	docs := c.Search(context.Background(), "q", 5)
	assert.Empty(t, docs)
}

func TestSearchRespectsLimit(t *testing.T) {
	c := New(`echo '[{"content":"a111111111111111111"},{"content":"b111111111111111111"},{"content":"c111111111111111111"}]'`, time.Second)
	docs := c.Search(context.Background(), "q", 2)
	assert.Len(t, docs, 2)
}
