package entitygraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `[
  {"name": "cache", "type": "component", "description": "stores query results keyed by sha256", "tags": ["storage", "ttl"]},
  {"name": "synthesizer", "type": "component", "description": "produces cited answers", "tags": ["llm"]}
]`

func TestLoadMissingFileYieldsEmptyUsableGraph(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, g.Search("cache", 10))
}

func TestSearchScoresByNameDescriptionAndTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	g, err := Load(path)
	require.NoError(t, err)

	docs := g.Search("cache ttl storage", 10)
	require.NotEmpty(t, docs)
	assert.Equal(t, "entity:cache", docs[0].ID)
	assert.Contains(t, docs[0].Content, "# Entity: cache")
}

func TestSearchRespectsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	g, err := Load(path)
	require.NoError(t, err)

	docs := g.Search("cache synthesizer", 1)
	assert.Len(t, docs, 1)
}
