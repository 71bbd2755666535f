package utils

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// ULIDGenerator generates monotonically increasing ULID values.
// Safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGenerator() *ULIDGenerator {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return &ULIDGenerator{entropy: entropy}
}

// Generate returns the next ULID. Within the same millisecond the entropy
// is incremented, so ids sort in generation order.
func (g *ULIDGenerator) Generate() (ulid.ULID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return ulid.ULID{}, errors.Wrap(err, "failed to generate ULID")
	}
	return id, nil
}

// MustGenerate is like Generate but panics on entropy exhaustion.
func (g *ULIDGenerator) MustGenerate() ulid.ULID {
	id, err := g.Generate()
	if err != nil {
		panic(err)
	}
	return id
}

// NewName returns a random UUID v4 string, used to name long-lived objects
// in diagnostics.
func NewName() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// crypto/rand failure; fall back to the time based variant
		return uuid.Must(uuid.NewUUID()).String()
	}
	return id.String()
}
