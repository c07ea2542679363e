// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"
)

// Roles a member can hold.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Member represents a library user.
type Member struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the member manages the catalog.
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// Credential represents a member's login credentials.
type Credential struct {
	MemberID     uuid.UUID `json:"-"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
}

// Session is returned by a successful login.
type Session struct {
	Member    *Member   `json:"member"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
