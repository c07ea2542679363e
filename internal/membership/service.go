// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the membership service.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*Member, error)
	EnsureMember(ctx context.Context, email, name, password string) (*Member, bool, error)
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	ParseToken(token string) (uuid.UUID, error)
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	SetAvatar(ctx context.Context, id uuid.UUID, filename string) (*Member, error)
}

// Repository persists members and their credentials.
type Repository interface {
	// Create stores both records together; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, m *Member, c *Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	GetCredential(ctx context.Context, memberID uuid.UUID) (*Credential, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) error
}
