package cache

import (
	"context"
	"time"
)

// DefaultTTL bounds how long cached platform data stays usable before the
// origin must be consulted again.
const DefaultTTL = time.Hour

// Store is a minimal key-value contract over the cache backend. Absence of a
// key is reported through the boolean, never as an error.
//
// Update applies a read-modify-write that is atomic with respect to other
// Update calls on the same key, so merge-style writers cannot lose each
// other's contributions. The apply function may be invoked more than once
// and must be side-effect free.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Update(ctx context.Context, key string, ttl time.Duration, apply func(current []byte, found bool) ([]byte, error)) error
	Delete(ctx context.Context, key string) error
}
