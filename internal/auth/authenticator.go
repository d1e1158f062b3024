package auth

import (
	"context"

	"github.com/mmynk/tabkeeper/internal/models"
)

// Authenticator registers and verifies account holders. The ledger only
// needs the resulting user ID, which becomes the owner ID on every record.
type Authenticator interface {
	// Register creates an account. Emails are compared case-insensitively.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user when the credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks a credential before it is stored.
	ValidateCredential(credential string) error
}
