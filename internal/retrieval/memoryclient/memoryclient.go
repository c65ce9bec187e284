// Package memoryclient implements the Memory Search Client (C2): a
// subprocess wrapper around an external conversation/knowledge memory
// service. Grounded on pkg/tools/command.go's context.WithTimeout +
// exec.CommandContext + CombinedOutput idiom for running an external
// tool and capturing its output under a deadline.
//
// The client must tolerate a well-formed JSON response, a truncated one
// (regex fallback over quoted observations), a timeout, and a non-zero
// exit — none of these ever propagate as an error to the caller; they
// all degrade to an empty result.
package memoryclient

import (
	"context"
	"encoding/json"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

// quotedObservation matches a double-quoted string longer than 100
// characters, the regex fallback used when the subprocess's JSON output
// is truncated or otherwise malformed.
var quotedObservation = regexp.MustCompile(`"((?:[^"\\]|\\.){101,})"`)

// rawEntry is the shape of one memory hit in the subprocess's JSON
// output.
type rawEntry struct {
	Content   string `json:"content"`
	Entity    string `json:"entity"`
	Type      string `json:"type"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Client wraps an external memory service invoked as a subprocess.
// Command is a shell command template; "{{query}}" and "{{limit}}" are
// substituted with the search arguments before execution.
type Client struct {
	Command string
	Timeout time.Duration
}

// New constructs a Client. A zero Timeout defaults to 10s.
func New(command string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{Command: command, Timeout: timeout}
}

// Search runs the configured subprocess and parses its output into
// Documents. Every failure mode (timeout, non-zero exit, malformed
// JSON beyond what the regex fallback can salvage) returns an empty,
// non-error result — the memory service is treated as best-effort.
func (c *Client) Search(ctx context.Context, query string, limit int) []ragtypes.Document {
	if c.Command == "" {
		return nil
	}

	execCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	command := strings.NewReplacer(
		"{{query}}", query,
		"{{limit}}", strconv.Itoa(limit),
	).Replace(c.Command)

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	output, err := cmd.CombinedOutput()
	if execCtx.Err() != nil {
		// Timed out: no exception propagation, empty list.
		return nil
	}
	if err != nil {
		// Non-zero exit: empty list.
		return nil
	}

	docs := parseJSON(output, limit)
	if docs != nil {
		return docs
	}
	return parseTruncated(output, limit)
}

func parseJSON(output []byte, limit int) []ragtypes.Document {
	var entries []rawEntry
	if err := json.Unmarshal(output, &entries); err != nil {
		return nil
	}
	return toDocuments(entries, limit)
}

// parseTruncated salvages quoted observations >100 chars from output
// that failed to parse as well-formed JSON.
func parseTruncated(output []byte, limit int) []ragtypes.Document {
	matches := quotedObservation.FindAllSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}
	docs := make([]ragtypes.Document, 0, len(matches))
	for i, m := range matches {
		if i >= limit {
			break
		}
		content := strings.ReplaceAll(string(m[1]), `\"`, `"`)
		docs = append(docs, ragtypes.Document{
			ID:      hashID(content),
			Content: content,
			Source:  ragtypes.SourceMemory,
		})
	}
	return docs
}

func toDocuments(entries []rawEntry, limit int) []ragtypes.Document {
	docs := make([]ragtypes.Document, 0, len(entries))
	for i, e := range entries {
		if i >= limit {
			break
		}
		meta := map[string]any{}
		if e.Entity != "" {
			meta["entity"] = e.Entity
		}
		if e.Type != "" {
			meta["type"] = e.Type
		}
		if e.CreatedAt != "" {
			meta["createdAt"] = e.CreatedAt
		}
		if e.UpdatedAt != "" {
			meta["updatedAt"] = e.UpdatedAt
		}
		docs = append(docs, ragtypes.Document{
			ID:       hashID(e.Content),
			Content:  e.Content,
			Source:   ragtypes.SourceMemory,
			Metadata: meta,
		})
	}
	return docs
}

func hashID(content string) string {
	// 32-bit FNV-1a over the first 200 bytes, so identical memory hits
	// get the same ID. The orchestrator's dedup does not read this ID; it
	// hashes the content prefix itself with 64-bit FNV-1a.
	const prefixLen = 200
	s := content
	if len(s) > prefixLen {
		s = s[:prefixLen]
	}
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return "mem-" + strconv.FormatUint(uint64(h), 10)
}
