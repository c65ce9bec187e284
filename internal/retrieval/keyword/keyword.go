// Package keyword implements the Keyword Scanner (C3): a bounded,
// filesystem-walking literal/regex search over the project tree.
// Grounded on pkg/tools/grep_search.go's filepath.Walk + per-line regex
// match idiom, trimmed to a single salient token per query rather than
// a fully parameterized grep tool.
package keyword

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

// tokenPattern matches runs of ASCII letters, digits and underscores;
// salientToken picks the longest such run of length >3.
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Scanner scans a project tree for a single salient token extracted
// from the query.
type Scanner struct {
	// Root is the project tree to scan.
	Root string
	// MaxFileSize bounds which files are read; files larger than this
	// are skipped. Zero means unbounded.
	MaxFileSize int64
}

// New constructs a Scanner rooted at root.
func New(root string) *Scanner {
	return &Scanner{Root: root, MaxFileSize: 10 * 1024 * 1024}
}

// Search picks the single most salient token from query (the longest
// word-like token of length >3) and scans the project tree for
// occurrences, producing snippet Documents. Bounded by limit results
// and at most 3*limit raw matches examined. An external
// search tool is not required; absence of a salient token or of any
// match is a silent empty result, never an error.
func (s *Scanner) Search(query string, limit int) []ragtypes.Document {
	token := salientToken(query)
	if token == "" {
		return nil
	}

	maxRaw := 3 * limit
	pattern := regexp.MustCompile(regexp.QuoteMeta(token))

	var docs []ragtypes.Document
	rawSeen := 0

	_ = filepath.WalkDir(s.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(docs) >= limit || rawSeen >= maxRaw {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if isSkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.MaxFileSize > 0 {
			if info, ierr := d.Info(); ierr == nil && info.Size() > s.MaxFileSize {
				return nil
			}
		}

		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		rel, _ := filepath.Rel(s.Root, path)

		for i, line := range strings.Split(string(content), "\n") {
			if len(docs) >= limit || rawSeen >= maxRaw {
				break
			}
			if !pattern.MatchString(line) {
				continue
			}
			rawSeen++
			lineNo := strconv.Itoa(i + 1)
			docs = append(docs, ragtypes.Document{
				ID:      rel + ":" + lineNo,
				Content: "# File: " + rel + ":" + lineNo + "\n" + line,
				Source:  ragtypes.SourceKeyword,
				Metadata: map[string]any{
					"file": rel,
					"line": i + 1,
				},
			})
		}
		return nil
	})

	return docs
}

// salientToken returns the longest alphanumeric/underscore token of
// length >3 in query, or "" if none qualifies.
func salientToken(query string) string {
	best := ""
	for _, tok := range tokenPattern.FindAllString(query, -1) {
		if len(tok) > 3 && len(tok) > len(best) {
			best = tok
		}
	}
	return best
}

func isSkippedDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", ".cache", "dist", "build":
		return true
	default:
		return false
	}
}
