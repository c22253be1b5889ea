package postgres

import (
	"context"
	"testing"
	"time"

	"loan-engine/internal/domain/access"
	"loan-engine/internal/domain/user"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserRepo(t *testing.T) (context.Context, *UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewUserRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func TestFindUserByUsername(t *testing.T) {
	ctx, repo, mockPool := setupUserRepo(t)
	defer mockPool.Close()

	customerID := int64(5)
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "username", "password_hash", "role", "customer_id", "created_at"}).
		AddRow(int64(2), "customer1", "$2a$10$hash", access.RoleCustomer, &customerID, now)

	mockPool.ExpectQuery(`SELECT id, username, password_hash, role, customer_id, created_at[\s\S]+WHERE username = \$1`).
		WithArgs("customer1").
		WillReturnRows(rows)

	u, err := repo.FindByUsername(ctx, "customer1")

	require.NoError(t, err)
	assert.Equal(t, "customer1", u.Username)
	assert.Equal(t, access.RoleCustomer, u.Role)
	require.NotNil(t, u.CustomerID)
	assert.Equal(t, int64(5), *u.CustomerID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestFindUserByUsernameNotFound(t *testing.T) {
	ctx, repo, mockPool := setupUserRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(`WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByUsername(ctx, "ghost")

	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
