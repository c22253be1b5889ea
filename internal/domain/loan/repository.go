package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// CreateLoanInTx inserts the loan and its full installment schedule as
	// one unit inside the supplied transaction.
	CreateLoanInTx(ctx context.Context, tx pgx.Tx, newLoan *Loan, schedule []Installment) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	// GetLoanForUpdateInTx locks the loan row for the duration of the
	// transaction, serializing concurrent payments against the same loan.
	GetLoanForUpdateInTx(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	GetLoanOwner(ctx context.Context, loanID int64) (customerID int64, err error)

	// QueryLoansByCustomer applies optional equality filters on term and
	// paid status; nil filters are ignored.
	QueryLoansByCustomer(ctx context.Context, customerID int64, termMonths *int, isPaid *bool) ([]*Loan, error)

	// GetInstallmentsByLoanID returns the schedule ordered by installment
	// number.
	GetInstallmentsByLoanID(ctx context.Context, loanID int64) ([]Installment, error)

	// GetUnpaidInstallmentsInTx returns unpaid installments ordered by due
	// date ascending, locked for update.
	GetUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) ([]Installment, error)

	MarkInstallmentPaidInTx(ctx context.Context, tx pgx.Tx, installment *Installment) error

	CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error)

	SetLoanPaidInTx(ctx context.Context, tx pgx.Tx, loanID int64, isPaid bool) error

	// CountOverdueInstallments counts unpaid installments whose due date is
	// before asOf, across all loans. Used by the overdue scan job.
	CountOverdueInstallments(ctx context.Context, asOf time.Time) (int, error)
}
