package types

import "github.com/google/uuid"

// NewID generates a unique identifier for an entity (request, sandbox,
// audit entry, ...).
func NewID() string {
	return uuid.NewString()
}
