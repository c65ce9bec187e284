// Package promptsafe strips common prompt-injection patterns from text
// before it is interpolated into an LLM prompt. Grounded on
// pkg/context/reranking/reranker.go's sanitizeInput.
package promptsafe

import "strings"

var replacements = []string{
	"SYSTEM:", "", "System:", "", "system:", "",
	"ASSISTANT:", "", "Assistant:", "", "assistant:", "",
	"USER:", "", "User:", "", "user:", "",
	"Ignore previous instructions", "", "ignore previous instructions", "",
	"Ignore all previous", "", "ignore all previous", "",
	"Disregard previous", "", "disregard previous", "",
	"---", "", "===", "", "***", "",
	"```", "",
}

var replacer = strings.NewReplacer(replacements...)

// Clean removes common system/role-override and delimiter-injection
// patterns from user-supplied text before it is embedded in a prompt.
func Clean(input string) string {
	return strings.TrimSpace(replacer.Replace(input))
}

// Truncate clamps s to at most n characters, matching the snippet
// truncation used when building rerank/synthesis prompts.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
