package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

func TestNormalizeQueryIsIdempotentAndCollapsesWhitespace(t *testing.T) {
	a := NormalizeQuery("  What Is   A Cache?! ")
	b := NormalizeQuery(a)
	assert.Equal(t, a, b)
	assert.Equal(t, "what is a cache", a)
}

func TestKeyIsStableAcrossFieldConstructionOrder(t *testing.T) {
	in1 := KeyInput{Project: "p", NormalizedQuery: "q", Intent: "general", TopK: 10, ContextMaxChars: 1000, UseVector: true}
	in2 := KeyInput{UseVector: true, ContextMaxChars: 1000, TopK: 10, Intent: "general", NormalizedQuery: "q", Project: "p"}
	assert.Equal(t, Key(in1), Key(in2))
}

func TestSetThenGetRoundTripsWithinTTL(t *testing.T) {
	c := New(t.TempDir(), false, 100)
	payload := ragtypes.RunRecord{Query: "q", Answer: "a"}
	require.NoError(t, c.Set("key1", payload, 600))

	got, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestGetExpiredEntryIsRemovedAndTreatedAsMiss(t *testing.T) {
	c := New(t.TempDir(), false, 100)
	fixedNow := time.Now()
	c.now = func() time.Time { return fixedNow.Add(-1 * time.Hour) }
	require.NoError(t, c.Set("key1", ragtypes.RunRecord{Query: "q"}, 5))

	c.now = func() time.Time { return fixedNow }
	_, ok := c.Get("key1")
	assert.False(t, ok)

	_, err := os.Stat(filepath.Join(c.Dir, "key1.json"))
	assert.Error(t, err)
}

func TestDisabledCacheAlwaysMissesAndSetIsNoOp(t *testing.T) {
	c := New(t.TempDir(), true, 100)
	require.NoError(t, c.Set("key1", ragtypes.RunRecord{Query: "q"}, 600))
	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestSetPrunesToMaxEntries(t *testing.T) {
	c := New(t.TempDir(), false, 3)
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(string(rune('a'+i)), ragtypes.RunRecord{Query: "q"}, 600))
	}
	entries, err := os.ReadDir(c.Dir)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 3)
}
