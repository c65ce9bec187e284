// Package codeindex implements the Code Symbol Index (C4): a SQLite-
// backed cache of Go symbols (functions, methods, types) searched by
// token occurrence, with a filesystem-scan fallback when the cache is
// unavailable. Grounded on dshills-gocontext-mcp's storage layer
// (internal/storage/migrations.go's symbols table and
// build_cgo.go/build_purego.go's dual sqlite driver) for the cache, and
// internal/parser/parser.go's go/ast-based symbol extraction for the
// fallback scan.
package codeindex

import (
	"context"
	"database/sql"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ragpipe/ragpipe/internal/ragtypes"
)

const (
	fallbackFileCap = 400
	contextLines    = 8
)

// Symbol is one row of the symbol cache.
type Symbol struct {
	Name        string
	PackageName string
	FilePath    string
	StartLine   int
	EndLine     int
}

// QualifiedName is the symbol's fully qualified form, package.Name.
func (s Symbol) QualifiedName() string {
	return s.PackageName + "." + s.Name
}

// Index is the Code Symbol Index. A nil or closed db means the cache
// is unavailable and callers should use the filesystem-scan fallback.
type Index struct {
	db   *sql.DB
	root string
}

// Open loads a pre-built symbol cache from dbPath. A missing or
// unreadable cache is not an error: it simply leaves the component
// unavailable, so the error return is informational only
// and safe to ignore.
func Open(dbPath, projectRoot string) (*Index, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return &Index{root: projectRoot}, fmt.Errorf("codeindex: cache %q not found: %w", dbPath, err)
	}
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return &Index{root: projectRoot}, fmt.Errorf("codeindex: opening cache %q: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return &Index{root: projectRoot}, fmt.Errorf("codeindex: cache %q unreachable: %w", dbPath, err)
	}
	return &Index{db: db, root: projectRoot}, nil
}

// Close releases the underlying database handle, if any.
func (idx *Index) Close() error {
	if idx.db == nil {
		return nil
	}
	return idx.db.Close()
}

// Available reports whether the symbol cache loaded successfully.
func (idx *Index) Available() bool {
	return idx.db != nil
}

// Search scores cached symbols against queries (token occurrence: +3
// exact name match, +2 qualified-name match, +1 path match) and
// returns the top-k as snippet Documents with ±8 lines of context.
// If the cache is unavailable, falls back to a bounded filesystem scan
// with the same output shape.
func (idx *Index) Search(ctx context.Context, queries []string, limit int) ([]ragtypes.Document, error) {
	if !idx.Available() {
		return idx.fallbackScan(queries, limit)
	}

	rows, err := idx.db.QueryContext(ctx, `SELECT s.name, s.package_name, f.file_path, s.start_line, s.end_line
		FROM symbols s JOIN files f ON f.id = s.file_id`)
	if err != nil {
		return nil, fmt.Errorf("codeindex: querying symbols: %w", err)
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		var sym Symbol
		if err := rows.Scan(&sym.Name, &sym.PackageName, &sym.FilePath, &sym.StartLine, &sym.EndLine); err != nil {
			return nil, fmt.Errorf("codeindex: scanning symbol row: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return idx.rankAndSnippet(symbols, queries, limit), nil
}

func (idx *Index) rankAndSnippet(symbols []Symbol, queries []string, limit int) []ragtypes.Document {
	type scored struct {
		sym   Symbol
		score int
	}
	tokens := tokenize(queries)

	var ranked []scored
	for _, sym := range symbols {
		score := 0
		for _, tok := range tokens {
			if tok == sym.Name {
				score += 3
			}
			if tok == sym.QualifiedName() {
				score += 2
			}
			if strings.Contains(sym.FilePath, tok) {
				score += 1
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{sym: sym, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	docs := make([]ragtypes.Document, 0, len(ranked))
	for _, r := range ranked {
		score := float64(r.score)
		docs = append(docs, ragtypes.Document{
			ID:      r.sym.FilePath + ":" + r.sym.QualifiedName(),
			Content: snippet(idx.root, r.sym),
			Source:  ragtypes.SourceCode,
			Score:   &score,
			Metadata: map[string]any{
				"file":   r.sym.FilePath,
				"symbol": r.sym.QualifiedName(),
			},
		})
	}
	return docs
}

func snippet(root string, sym Symbol) string {
	rel := sym.FilePath
	content, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return fmt.Sprintf("# File: %s:%d-%d\n", rel, sym.StartLine, sym.EndLine)
	}
	lines := strings.Split(string(content), "\n")
	from := sym.StartLine - contextLines
	if from < 1 {
		from = 1
	}
	to := sym.EndLine + contextLines
	if to > len(lines) {
		to = len(lines)
	}
	body := strings.Join(lines[from-1:to], "\n")
	return fmt.Sprintf("# File: %s:%d-%d\n%s", rel, sym.StartLine, sym.EndLine, body)
}

func tokenize(queries []string) []string {
	var out []string
	for _, q := range queries {
		out = append(out, strings.Fields(q)...)
	}
	return out
}

// fallbackScan walks the project tree (capped at fallbackFileCap Go
// files) extracting top-level function/method/type symbols via go/ast,
// producing the same output shape as the cache-backed path.
func (idx *Index) fallbackScan(queries []string, limit int) ([]ragtypes.Document, error) {
	var symbols []Symbol
	filesSeen := 0
	fset := token.NewFileSet()

	err := filepath.WalkDir(idx.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if filesSeen >= fallbackFileCap {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if d.Name() == "vendor" || d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		filesSeen++

		file, perr := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if perr != nil || file == nil {
			return nil
		}
		rel, _ := filepath.Rel(idx.root, path)
		pkgName := file.Name.Name

		ast.Inspect(file, func(n ast.Node) bool {
			switch decl := n.(type) {
			case *ast.FuncDecl:
				start := fset.Position(decl.Pos()).Line
				end := fset.Position(decl.End()).Line
				name := decl.Name.Name
				if decl.Recv != nil && len(decl.Recv.List) > 0 {
					name = receiverTypeName(decl.Recv.List[0].Type) + "." + name
				}
				symbols = append(symbols, Symbol{Name: name, PackageName: pkgName, FilePath: rel, StartLine: start, EndLine: end})
			case *ast.TypeSpec:
				start := fset.Position(decl.Pos()).Line
				end := fset.Position(decl.End()).Line
				symbols = append(symbols, Symbol{Name: decl.Name.Name, PackageName: pkgName, FilePath: rel, StartLine: start, EndLine: end})
			}
			return true
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("codeindex: fallback scan: %w", err)
	}

	return idx.rankAndSnippet(symbols, queries, limit), nil
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}
