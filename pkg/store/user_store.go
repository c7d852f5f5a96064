package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gesdoc-gq/core/pkg/domain"
	"github.com/gesdoc-gq/core/pkg/identity"
)

// UserStore implements identity.Provider over the users table.
type UserStore struct {
	db *sql.DB
}

var _ identity.Provider = (*UserStore)(nil)

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Role returns the role of a user or domain.ErrNotFound.
func (s *UserStore) Role(ctx context.Context, userID string) (domain.Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("role for %s: %w", userID, err)
	}
	return domain.Role(role), nil
}

// DesignatedSigner returns the single highest-privilege identity: the
// earliest-created ADMIN user.
func (s *UserStore) DesignatedSigner(ctx context.Context) (identity.User, error) {
	var (
		u        identity.User
		position sql.NullString
		role     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, position, role
		 FROM users WHERE role = 'ADMIN' ORDER BY created_at ASC LIMIT 1`).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &position, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.User{}, fmt.Errorf("designated signer: %w", domain.ErrNotFound)
		}
		return identity.User{}, fmt.Errorf("designated signer: %w", err)
	}
	u.Position = position.String
	u.Role = domain.Role(role)
	return u, nil
}
