// Package id mints cycle identifiers. They are ULIDs, so ordering them as
// strings orders them by creation time.
package id

import (
	cryptorand "crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader = ulid.Monotonic(cryptorand.Reader, 0)
)

// New returns an id stamped with the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns an id stamped with t. Ids minted within the same
// millisecond still sort in creation order.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t.UTC()), entropy).String()
}

// Time extracts the creation time, at millisecond precision.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cycle id %q: %w", s, err)
	}
	return ulid.Time(u.Time()), nil
}
