package codeindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackScanFindsFunctionAndTypeSymbols(t *testing.T) {
	root := t.TempDir()
	src := `package sample

// Backoff computes retry delay.
func Backoff(attempt int) int {
	return attempt * 2
}

type RetryPolicy struct {
	MaxAttempts int
}

func (r *RetryPolicy) Allow() bool {
	return r.MaxAttempts > 0
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "sample.go"), []byte(src), 0o644))

	idx := &Index{root: root}
	assert.False(t, idx.Available())

	docs, err := idx.Search(context.Background(), []string{"Backoff"}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Contains(t, docs[0].Content, "# File: sample.go:")
	assert.Contains(t, docs[0].Content, "func Backoff")
}

func TestFallbackScanMethodUsesReceiverQualifiedName(t *testing.T) {
	root := t.TempDir()
	src := `package sample

type RetryPolicy struct{}

func (r *RetryPolicy) Allow() bool { return true }
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "sample.go"), []byte(src), 0o644))

	idx := &Index{root: root}
	docs, err := idx.Search(context.Background(), []string{"RetryPolicy.Allow"}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Contains(t, docs[0].Metadata["symbol"], "RetryPolicy.Allow")
}

func TestOpenMissingCacheIsUnavailableNotFatal(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "does-not-exist", "cache.db"), t.TempDir())
	require.Error(t, err)
	assert.False(t, idx.Available())
}
