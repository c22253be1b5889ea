package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"loan-engine/internal/pkg/apperrors"
)

// LoanOwnerResolver resolves a loan id to the id of its owning customer.
type LoanOwnerResolver interface {
	GetLoanOwner(ctx context.Context, loanID int64) (int64, error)
}

// Evaluator decides whether a principal may touch a given customer's or
// loan's data. It mutates nothing; the boundary layer consults it before
// any core flow runs.
type Evaluator struct {
	loans  LoanOwnerResolver
	logger *slog.Logger
}

func NewEvaluator(loans LoanOwnerResolver, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		loans:  loans,
		logger: logger.With("component", "accessEvaluator"),
	}
}

// CanAccessCustomer is true for admins, and for customer principals only
// when the target customer is their own.
func (e *Evaluator) CanAccessCustomer(p Principal, customerID int64) bool {
	if p.IsAdmin() {
		return true
	}
	if p.Role == RoleCustomer {
		return p.CustomerID != nil && *p.CustomerID == customerID
	}
	return false
}

// CanAccessLoan resolves the loan's owning customer and applies the same
// rule as CanAccessCustomer. Unknown loan ids surface as ErrNotFound.
func (e *Evaluator) CanAccessLoan(ctx context.Context, p Principal, loanID int64) (bool, error) {
	if p.IsAdmin() {
		return true, nil
	}
	if p.Role != RoleCustomer || p.CustomerID == nil {
		return false, nil
	}

	ownerID, err := e.loans.GetLoanOwner(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, fmt.Errorf("%w: loan %d not found", apperrors.ErrNotFound, loanID)
		}
		e.logger.ErrorContext(ctx, "Failed to resolve loan owner", "loanID", loanID, "error", err)
		return false, fmt.Errorf("failed to resolve owner of loan %d: %w", loanID, err)
	}

	return *p.CustomerID == ownerID, nil
}

// CurrentCustomerID returns the principal's linked customer id, or false
// for admins and unlinked principals.
func (e *Evaluator) CurrentCustomerID(p Principal) (int64, bool) {
	if p.CustomerID == nil {
		return 0, false
	}
	return *p.CustomerID, true
}
