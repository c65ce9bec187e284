//go:build sqlite_vec
// +build sqlite_vec

package codeindex

// Compiled when building with CGO and the sqlite_vec tag, matching
// dshills-gocontext-mcp/internal/storage/build_cgo.go: registers the
// cgo-backed sqlite3 driver for production deployments.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver registered for this build.
const driverName = "sqlite3"
