package store

import "github.com/google/uuid"

// RunIDGenerator produces unique run IDs.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates run IDs as UUIDv7 strings.
//
// UUIDv7 embeds a millisecond timestamp in its high bits, so IDs from one
// process sort in creation order.
//
// Panics if UUID generation fails (should never happen in practice).
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
