//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package codeindex

// Compiled without CGO or with the purego tag, matching
// dshills-gocontext-mcp/internal/storage/build_purego.go: registers the
// pure-Go modernc.org/sqlite driver, suitable for cross-compiled
// deployments that can't rely on cgo.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...

import (
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver registered for this build.
const driverName = "sqlite"
