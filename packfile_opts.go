package packfile

import (
	"log/slog"

	"github.com/strategos/packfile/schema"
)

// Option configures an Archive session.
type Option func(*Archive)

// WithLogger attaches a logger for open, save, and lazy-resolution events.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithSchemas attaches the schema registry used by ReadTable, WriteTable,
// ReadLoc, and WriteLoc. The registry is shared, read-only state; the same
// registry may serve any number of sessions concurrently.
func WithSchemas(reg *schema.Registry) Option {
	return func(a *Archive) {
		a.schemas = reg
	}
}

// WithMaxEntrySize caps the uncompressed size the engine will resolve for
// a single entry, guarding against corrupt directories that declare
// absurd lengths. Zero (the default) disables the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(a *Archive) {
		a.maxEntrySize = limit
	}
}
