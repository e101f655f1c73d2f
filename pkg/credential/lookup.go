// Package credential is a narrow facade over wherever an operator's
// secrets actually live: resolve an id to a cleartext value, and report
// whether the backing store is reachable. It does not implement
// cryptography or key management.
package credential

import (
	"context"
	"time"

	"github.com/meshgate/core/pkg/meshgate"
)

// Secret is a resolved credential value.
type Secret struct {
	ID        string
	Value     string
	ExpiresAt *time.Time
}

// HealthReport describes whether a Lookup's backing store is reachable.
type HealthReport struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
}

// Lookup resolves credential ids to secrets. A real deployment backs
// this with a secrets manager; FileStore is only a reference
// implementation for local development and tests.
type Lookup interface {
	Resolve(ctx context.Context, id string) (Secret, error)
	Health(ctx context.Context) HealthReport
}

// ErrMissing is the sentinel surfaced as CredentialMissing when an id
// has no corresponding secret.
var ErrMissing error = meshgate.Fault{
	Code:       "CREDENTIAL_MISSING",
	Message:    "no credential registered for this id",
	Suggestion: "register the credential with the backing store or correct the tool's requiredCredentials entry",
}
