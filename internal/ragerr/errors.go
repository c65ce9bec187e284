// Package ragerr defines the sentinel errors referenced by the query
// pipeline's error handling policy: configuration errors are fatal,
// retriever errors are absorbed, everything else degrades gracefully.
package ragerr

import "errors"

var (
	// ErrRetrieverUnavailable signals that a retriever could not run
	// (timeout, missing index, IPC failure). Callers must absorb this
	// into an empty result list, never propagate it as a pipeline
	// failure.
	ErrRetrieverUnavailable = errors.New("retriever unavailable")

	// ErrConfiguration signals a fatal startup problem: missing
	// credentials, an unreadable project root, or similarly
	// unrecoverable misconfiguration.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotImplemented is returned by hooks that exist for interface
	// completeness but whose implementation lives outside the core
	// (ingestion, distillation).
	ErrNotImplemented = errors.New("not implemented in core pipeline")

	// ErrInvariant signals a programmer error: an invariant the
	// pipeline depends on (e.g. a cross-encoder returning the wrong
	// number of scores) was violated. Unlike the errors above, this
	// one is meant to be fatal.
	ErrInvariant = errors.New("invariant violation")
)
