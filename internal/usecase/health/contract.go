package health

import "context"

// Pinger is anything suntan can health-check: the target index, or a source that
// keeps a live connection.
type Pinger interface {
	Ping(ctx context.Context) error
}
