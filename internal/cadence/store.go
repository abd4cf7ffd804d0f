package cadence

import "context"

// Store persists the single cadence setting. The process is a single
// sequential run, so implementations need no concurrent-access guarantees;
// a write simply overwrites the prior value.
type Store interface {
	// Read returns the stored cadence. A missing backing store yields the
	// default. Corrupt or unrecognized contents are returned as-is
	// (uppercased) so the scheduler can fail closed on them.
	Read(ctx context.Context) (Cadence, error)

	// Write overwrites the stored cadence, normalized to uppercase.
	Write(ctx context.Context, c Cadence) error

	// Close releases any backing resources.
	Close() error
}
