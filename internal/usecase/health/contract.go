package health

import "context"

// Pinger checks a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}
