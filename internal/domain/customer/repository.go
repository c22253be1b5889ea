package customer

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("customer not found")

	ErrUpdateConflict = errors.New("update conflict detected")
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	FindByName(ctx context.Context, name string) (*Customer, error)

	FindAll(ctx context.Context) ([]*Customer, error)

	// ReserveCreditInTx atomically moves amount from the customer's available
	// limit to the used limit, guarded by credit_limit >= amount in the same
	// statement. Returns apperrors.ErrInsufficientCredit when the guard fails.
	ReserveCreditInTx(ctx context.Context, tx pgx.Tx, customerID int64, amount decimal.Decimal) error

	// ReleaseCreditInTx is the inverse of ReserveCreditInTx, called once on
	// full loan payoff.
	ReleaseCreditInTx(ctx context.Context, tx pgx.Tx, customerID int64, amount decimal.Decimal) error
}
