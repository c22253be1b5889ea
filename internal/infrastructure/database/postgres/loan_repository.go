package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

const loanColumns = "id, customer_id, loan_amount, number_of_installment, interest_rate, create_date, is_paid, created_at, updated_at"

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.CustomerID, &l.LoanAmount, &l.NumberOfInstallment,
		&l.InterestRate, &l.CreateDate, &l.IsPaid, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) CreateLoanInTx(ctx context.Context, tx pgx.Tx, newLoan *loan.Loan, schedule []loan.Installment) (*loan.Loan, error) {
	loanSQL := `
        INSERT INTO loans (customer_id, loan_amount, number_of_installment, interest_rate, create_date, is_paid, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING ` + loanColumns

	createdLoan, err := scanLoan(tx.QueryRow(ctx, loanSQL,
		newLoan.CustomerID, newLoan.LoanAmount, newLoan.NumberOfInstallment,
		newLoan.InterestRate, newLoan.CreateDate, newLoan.IsPaid,
	))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", createdLoan.ID)

	if len(schedule) > 0 {
		installmentSQL := `
            INSERT INTO installments (loan_id, installment_number, amount, paid_amount, due_date, is_paid, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

		batch := &pgx.Batch{}
		for _, entry := range schedule {
			batch.Queue(installmentSQL, createdLoan.ID, entry.InstallmentNumber, entry.Amount, entry.PaidAmount, entry.DueDate, entry.IsPaid)
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < len(schedule); i++ {
			if _, err = results.Exec(); err != nil {
				results.Close()
				r.logger.ErrorContext(ctx, "Failed executing installment batch insert", "error", err, "entry_index", i, "loan_id", createdLoan.ID)
				return nil, fmt.Errorf("%w: failed inserting installment %d: %w", apperrors.ErrDatabase, i+1, err)
			}
		}
		if err = results.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Failed closing installment batch results", "error", err, "loan_id", createdLoan.ID)
			return nil, fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
		}
	}
	r.logger.InfoContext(ctx, "Installment schedule created in DB", "loan_id", createdLoan.ID, "num_entries", len(schedule))

	createdLoan.Installments = schedule
	return createdLoan, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	startTime := time.Now()
	status := "success"

	l, err := scanLoan(r.db.QueryRow(ctx, query, loanID))
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) GetLoanForUpdateInTx(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	l, err := scanLoan(tx.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock loan row", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) GetLoanOwner(ctx context.Context, loanID int64) (int64, error) {
	query := `SELECT customer_id FROM loans WHERE id = $1`

	var customerID int64
	err := r.db.QueryRow(ctx, query, loanID).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to resolve loan owner", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return customerID, nil
}

func (r *LoanRepository) QueryLoansByCustomer(ctx context.Context, customerID int64, termMonths *int, isPaid *bool) ([]*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE customer_id = $1`
	args := []any{customerID}

	if termMonths != nil {
		args = append(args, *termMonths)
		query += fmt.Sprintf(" AND number_of_installment = $%d", len(args))
	}
	if isPaid != nil {
		args = append(args, *isPaid)
		query += fmt.Sprintf(" AND is_paid = $%d", len(args))
	}
	query += " ORDER BY id ASC"

	startTime := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("QueryLoansByCustomer", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

const installmentColumns = "id, loan_id, installment_number, amount, COALESCE(paid_amount, 0), due_date, payment_date, is_paid, created_at, updated_at"

func scanInstallment(row pgx.Row) (loan.Installment, error) {
	var inst loan.Installment
	err := row.Scan(
		&inst.ID, &inst.LoanID, &inst.InstallmentNumber, &inst.Amount,
		&inst.PaidAmount, &inst.DueDate, &inst.PaymentDate, &inst.IsPaid,
		&inst.CreatedAt, &inst.UpdatedAt,
	)
	return inst, err
}

func (r *LoanRepository) collectInstallments(ctx context.Context, rows pgx.Rows, queryErr error, queryName string) ([]loan.Installment, error) {
	if queryErr != nil {
		r.logger.ErrorContext(ctx, "Failed to query installments", "query", queryName, "error", queryErr)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, queryErr)
	}
	defer rows.Close()

	installments := make([]loan.Installment, 0)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "query", queryName, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return installments, nil
}

func (r *LoanRepository) GetInstallmentsByLoanID(ctx context.Context, loanID int64) ([]loan.Installment, error) {
	query := `
        SELECT ` + installmentColumns + `
        FROM installments
        WHERE loan_id = $1
        ORDER BY installment_number ASC`

	startTime := time.Now()
	rows, err := r.db.Query(ctx, query, loanID)
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetInstallmentsByLoanID", status, time.Since(startTime))

	return r.collectInstallments(ctx, rows, err, "GetInstallmentsByLoanID")
}

func (r *LoanRepository) GetUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) ([]loan.Installment, error) {
	query := `
        SELECT ` + installmentColumns + `
        FROM installments
        WHERE loan_id = $1 AND is_paid = FALSE
        ORDER BY due_date ASC
        FOR UPDATE`

	rows, err := tx.Query(ctx, query, loanID)
	return r.collectInstallments(ctx, rows, err, "GetUnpaidInstallmentsInTx")
}

func (r *LoanRepository) MarkInstallmentPaidInTx(ctx context.Context, tx pgx.Tx, installment *loan.Installment) error {
	updateSQL := `
        UPDATE installments
        SET is_paid = TRUE, paid_amount = $1, payment_date = $2, updated_at = NOW()
        WHERE id = $3 AND is_paid = FALSE`

	cmdTag, err := tx.Exec(ctx, updateSQL, installment.PaidAmount, installment.PaymentDate, installment.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark installment paid", "installment_id", installment.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: installment %d already paid or missing", apperrors.ErrConflict, installment.ID)
	}
	return nil
}

func (r *LoanRepository) CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error) {
	query := `SELECT COUNT(*) FROM installments WHERE loan_id = $1 AND is_paid = FALSE`

	var count int
	if err := tx.QueryRow(ctx, query, loanID).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count unpaid installments", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LoanRepository) SetLoanPaidInTx(ctx context.Context, tx pgx.Tx, loanID int64, isPaid bool) error {
	updateSQL := `UPDATE loans SET is_paid = $1, updated_at = NOW() WHERE id = $2`

	cmdTag, err := tx.Exec(ctx, updateSQL, isPaid, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan paid state", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) CountOverdueInstallments(ctx context.Context, asOf time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM installments WHERE is_paid = FALSE AND due_date < $1`

	startTime := time.Now()
	var count int
	err := r.db.QueryRow(ctx, query, asOf).Scan(&count)
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CountOverdueInstallments", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count overdue installments", "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}
