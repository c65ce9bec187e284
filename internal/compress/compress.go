// Package compress implements the Context Compressor (C10): it packs a
// ranked list of Documents into a character budget, giving full or
// truncated content to high-priority documents and summaries to the
// rest. Grounded on the budget-bounded packing idiom in
// pkg/context/reranking/reranker.go's prompt-building helpers.
package compress

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultMaxChars is the default context budget.
	DefaultMaxChars = 120000

	fullContentRankThreshold  = 10
	fullContentScoreThreshold = 0.8
	summaryLen                = 1500
	minRemainingForTruncation = 500
)

// Doc is the minimal shape the compressor needs from a ranked
// Document: its content and final score.
type Doc struct {
	Content    string
	FinalScore float64
}

// Pack packs docs (already ranked by final_score descending) into
// maxChars, returning the joined context string. Empty
// input yields an empty string.
func Pack(docs []Doc, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	var b strings.Builder
	remaining := maxChars

	for i, d := range docs {
		if remaining <= 0 {
			break
		}
		rank := i
		label := "[Doc " + strconv.Itoa(i+1) + "] (Score: " + formatScore(d.FinalScore) + ")\n"

		if rank < fullContentRankThreshold || d.FinalScore > fullContentScoreThreshold {
			block := label + d.Content + "\n"
			if len(block) <= remaining {
				b.WriteString(block)
				remaining -= len(block)
				continue
			}
			if remaining-len(label) >= minRemainingForTruncation {
				avail := remaining - len(label) - len("... [truncated]\n")
				if avail < 0 {
					avail = 0
				}
				truncated := d.Content
				if len(truncated) > avail {
					truncated = truncated[:avail]
				}
				block = label + truncated + "... [truncated]\n"
				b.WriteString(block)
				remaining -= len(block)
			}
			break
		}

		summary := d.Content
		if len(summary) > summaryLen {
			summary = summary[:summaryLen]
		}
		summaryLabel := "[Doc " + strconv.Itoa(i+1) + "] (Summary)\n"
		block := summaryLabel + summary + "...\n"
		if len(block) > remaining {
			break
		}
		b.WriteString(block)
		remaining -= len(block)
	}

	return b.String()
}

func formatScore(s float64) string {
	return fmt.Sprintf("%.2f", s)
}
