package keyword

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestSearchFindsSalientTokenOccurrences(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc computeBackoff() {}\n")
	writeFile(t, root, "sub/b.go", "package sub\n// computeBackoff is used here too\n")

	s := New(root)
	docs := s.Search("how does computeBackoff work", 10)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Contains(t, d.Content, "# File:")
		assert.Contains(t, d.Content, "computeBackoff")
	}
}

func TestSearchNoSalientTokenReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	docs := s.Search("a is it ok", 10)
	assert.Empty(t, docs)
}

func TestSearchRespectsLimit(t *testing.T) {
	root := t.TempDir()
	var content string
	for i := 0; i < 10; i++ {
		content += "widgetFactory line\n"
	}
	writeFile(t, root, "a.go", content)

	s := New(root)
	docs := s.Search("widgetFactory", 3)
	assert.Len(t, docs, 3)
}

func TestSearchSkipsVendorAndGitDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "vendor/dep/c.go", "thingamajig\n")
	writeFile(t, root, ".git/objects/d", "thingamajig\n")
	writeFile(t, root, "real.go", "thingamajig\n")

	s := New(root)
	docs := s.Search("thingamajig", 10)
	require.Len(t, docs, 1)
	assert.Equal(t, "real.go", docs[0].Metadata["file"])
}
