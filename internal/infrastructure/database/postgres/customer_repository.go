package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	return &CustomerRepository{
		db:     db,
		logger: logger.With("component", "CustomerRepository"),
	}
}

const customerColumns = "id, name, surname, credit_limit, used_credit_limit, create_date, updated_at"

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.CustomerID, &c.Name, &c.Surname,
		&c.CreditLimit, &c.UsedCreditLimit,
		&c.CreateDate, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	startTime := time.Now()
	status := "success"

	if cust.CustomerID == 0 {
		insertSQL := `
            INSERT INTO customers (name, surname, credit_limit, used_credit_limit, create_date, updated_at)
            VALUES ($1, $2, $3, $4, NOW(), NOW())
            RETURNING id, create_date, updated_at`
		err := r.db.QueryRow(ctx, insertSQL,
			cust.Name, cust.Surname, cust.CreditLimit, cust.UsedCreditLimit,
		).Scan(&cust.CustomerID, &cust.CreateDate, &cust.UpdatedAt)
		if err != nil {
			status = "error"
			r.logger.ErrorContext(ctx, "Failed to insert customer", "error", err)
		}
		monitoring.RecordDBQuery("SaveCustomerInsert", status, time.Since(startTime))
		if err != nil {
			return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		return nil
	}

	updateSQL := `
        UPDATE customers
        SET name = $1, surname = $2, credit_limit = $3, used_credit_limit = $4, updated_at = NOW()
        WHERE id = $5`
	cmdTag, err := r.db.Exec(ctx, updateSQL,
		cust.Name, cust.Surname, cust.CreditLimit, cust.UsedCreditLimit, cust.CustomerID,
	)
	if err != nil {
		status = "error"
		r.logger.ErrorContext(ctx, "Failed to update customer", "customer_id", cust.CustomerID, "error", err)
	}
	monitoring.RecordDBQuery("SaveCustomerUpdate", status, time.Since(startTime))
	if err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	startTime := time.Now()
	status := "success"

	cust, err := scanCustomer(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindCustomerByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Customer not found", "customer_id", customerID)
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get customer by ID", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cust, nil
}

func (r *CustomerRepository) FindByName(ctx context.Context, name string) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE name = $1`

	cust, err := scanCustomer(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get customer by name", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cust, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		cust, err := scanCustomer(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan customer row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		customers = append(customers, cust)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return customers, nil
}

// ReserveCreditInTx moves amount from the available to the used limit. The
// guard in the WHERE clause makes the limit check and the decrement one
// atomic statement, so two concurrent originations cannot both pass a
// stale limit check.
func (r *CustomerRepository) ReserveCreditInTx(ctx context.Context, tx pgx.Tx, customerID int64, amount decimal.Decimal) error {
	reserveSQL := `
        UPDATE customers
        SET credit_limit = credit_limit - $1,
            used_credit_limit = used_credit_limit + $1,
            updated_at = NOW()
        WHERE id = $2 AND credit_limit >= $1`

	startTime := time.Now()
	cmdTag, err := tx.Exec(ctx, reserveSQL, amount, customerID)
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("ReserveCredit", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to reserve credit", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Credit reservation rejected", "customer_id", customerID)
		return fmt.Errorf("%w: customer %d cannot cover requested amount", apperrors.ErrInsufficientCredit, customerID)
	}
	return nil
}

func (r *CustomerRepository) ReleaseCreditInTx(ctx context.Context, tx pgx.Tx, customerID int64, amount decimal.Decimal) error {
	releaseSQL := `
        UPDATE customers
        SET credit_limit = credit_limit + $1,
            used_credit_limit = used_credit_limit - $1,
            updated_at = NOW()
        WHERE id = $2`

	startTime := time.Now()
	cmdTag, err := tx.Exec(ctx, releaseSQL, amount, customerID)
	status := "success"
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("ReleaseCredit", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to release credit", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}
