// Package identity resolves user roles and the designated signer. It is a
// narrow facade over the user table; authentication and sessions live
// elsewhere.
package identity

import (
	"context"
	"fmt"

	"github.com/gesdoc-gq/core/pkg/domain"
)

// User is the slice of a user record the workflow core needs.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Position  string
	Role      domain.Role
}

// FullName joins first and last name for display and audit payloads.
func (u User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// Provider looks up roles and the single designated signer. The designated
// signer is the highest-privilege identity allowed through the signature
// gate; it is resolved independently of ordinary role permissions.
type Provider interface {
	Role(ctx context.Context, userID string) (domain.Role, error)
	DesignatedSigner(ctx context.Context) (User, error)
}

// RequireAdmin is the capability check behind admin-only operations such
// as skipping or deleting stages. One call per privileged operation,
// always first.
func RequireAdmin(ctx context.Context, p Provider, userID string) error {
	role, err := p.Role(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve role for %s: %w", userID, err)
	}
	if role != domain.RoleAdmin {
		return fmt.Errorf("user %s: %w: admin role required", userID, domain.ErrUnauthorized)
	}
	return nil
}

// RequireDesignatedSigner is the capability check behind the signature
// gate. Only the one designated signer passes, regardless of role grants.
func RequireDesignatedSigner(ctx context.Context, p Provider, userID string) error {
	signer, err := p.DesignatedSigner(ctx)
	if err != nil {
		return fmt.Errorf("resolve designated signer: %w", err)
	}
	if signer.ID != userID {
		return fmt.Errorf("user %s: %w: only the designated signer may sign", userID, domain.ErrUnauthorized)
	}
	return nil
}
