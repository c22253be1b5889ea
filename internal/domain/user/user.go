package user

import (
	"context"
	"errors"
	"time"

	"loan-engine/internal/domain/access"
)

var ErrNotFound = errors.New("user not found")

// User is a login account. CUSTOMER accounts carry the id of the customer
// record they are linked to; ADMIN accounts are unlinked.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         access.Role
	CustomerID   *int64
	CreatedAt    time.Time
}

func (u *User) Principal() access.Principal {
	return access.Principal{
		Username:   u.Username,
		Role:       u.Role,
		CustomerID: u.CustomerID,
	}
}

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
}
