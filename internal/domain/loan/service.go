package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/event"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type LoanService interface {
	// Originate validates a loan request, reserves credit and persists the
	// loan with its full installment schedule as one atomic unit.
	Originate(ctx context.Context, customerID int64, amount decimal.Decimal, interestRate decimal.Decimal, termMonths int) (*LoanProjection, error)

	// ListLoans returns a customer's loans, optionally filtered by term and
	// paid status.
	ListLoans(ctx context.Context, customerID int64, termMonths *int, isPaid *bool) (*LoanProjection, error)

	// PayInstallments allocates a payment to the earliest due unpaid
	// installments, at most MaxInstallmentsPerPayment per call, whole
	// installments only.
	PayInstallments(ctx context.Context, loanID int64, amount decimal.Decimal) (*PaymentResult, error)

	ListInstallments(ctx context.Context, loanID int64) ([]InstallmentView, error)
}

type loanServiceImpl struct {
	repo         Repository
	customerRepo customer.CustomerRepository
	pub          event.EventPublisher
	logger       *slog.Logger
}

func NewLoanService(r Repository, customerRepo customer.CustomerRepository, pub event.EventPublisher, logger *slog.Logger) LoanService {
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &loanServiceImpl{
		repo:         r,
		customerRepo: customerRepo,
		pub:          pub,
		logger:       logger.With("component", "loanService"),
	}
}

func (s *loanServiceImpl) Originate(ctx context.Context, customerID int64, amount decimal.Decimal, interestRate decimal.Decimal, termMonths int) (_ *LoanProjection, err error) {
	s.logger.InfoContext(ctx, "Originating loan", "customerID", customerID, "termMonths", termMonths)

	cust, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found", "customerID", customerID)
			return nil, fmt.Errorf("%w: customer %d not found", apperrors.ErrNotFound, customerID)
		}
		s.logger.ErrorContext(ctx, "Failed to look up customer", "error", err)
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}

	if !cust.HasEnoughLimit(amount) {
		s.logger.WarnContext(ctx, "Customer limit too low for requested amount", "customerID", customerID)
		return nil, fmt.Errorf("%w: customer %d cannot cover loan amount", apperrors.ErrInsufficientCredit, customerID)
	}

	newLoan, err := NewLoan(customerID, amount, interestRate, termMonths, time.Now())
	if err != nil {
		s.logger.WarnContext(ctx, "Loan request failed validation", "error", err)
		return nil, err
	}

	schedule, err := newLoan.GenerateSchedule()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to generate installment schedule", "error", err)
		return nil, fmt.Errorf("failed to generate schedule: %w", err)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	createdLoan, err := s.repo.CreateLoanInTx(ctx, tx, newLoan, schedule)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save loan and schedule", "error", err)
		return nil, err
	}

	// Reserve runs as a compare-and-decrement inside the same transaction,
	// so concurrent originations against the same customer cannot race past
	// the limit check done above.
	if err = s.customerRepo.ReserveCreditInTx(ctx, tx, customerID, amount); err != nil {
		s.logger.WarnContext(ctx, "Credit reservation failed", "customerID", customerID, "error", err)
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	monitoring.RecordLoanOriginated()
	s.logger.InfoContext(ctx, "Loan originated", "loanID", createdLoan.ID, "customerID", customerID)

	if pubErr := s.pub.PublishLoanOriginated(ctx, event.LoanOriginatedEvent{
		LoanID:              createdLoan.ID,
		CustomerID:          customerID,
		LoanAmount:          createdLoan.LoanAmount,
		NumberOfInstallment: createdLoan.NumberOfInstallment,
		InterestRate:        createdLoan.InterestRate,
		Timestamp:           time.Now(),
	}); pubErr != nil {
		s.logger.ErrorContext(ctx, "Loan originated, but failed to publish event", "error", pubErr)
	}

	cust.CreditLimit = cust.CreditLimit.Sub(amount)
	cust.UsedCreditLimit = cust.UsedCreditLimit.Add(amount)
	return NewLoanProjection(cust, createdLoan), nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context, customerID int64, termMonths *int, isPaid *bool) (*LoanProjection, error) {
	s.logger.InfoContext(ctx, "Listing loans", "customerID", customerID)

	cust, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d not found", apperrors.ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("failed to look up customer %d: %w", customerID, err)
	}

	loans, err := s.repo.QueryLoansByCustomer(ctx, customerID, termMonths, isPaid)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query loans", "customerID", customerID, "error", err)
		return nil, fmt.Errorf("failed to list loans for customer %d: %w", customerID, err)
	}

	for _, l := range loans {
		installments, err := s.repo.GetInstallmentsByLoanID(ctx, l.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to load installments", "loanID", l.ID, "error", err)
			return nil, fmt.Errorf("failed to load installments for loan %d: %w", l.ID, err)
		}
		l.Installments = installments
	}

	return NewLoanProjection(cust, loans...), nil
}

func (s *loanServiceImpl) PayInstallments(ctx context.Context, loanID int64, amount decimal.Decimal) (result *PaymentResult, err error) {
	s.logger.InfoContext(ctx, "Processing payment", "loanID", loanID)

	if !amount.IsPositive() {
		monitoring.RecordPayment("failure_amount")
		return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrInvalidAmount)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred during payment processing", "loanID", loanID, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if err != nil {
			monitoring.RecordPayment(paymentFailureStatus(err))
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	paidLoan, err := s.repo.GetLoanForUpdateInTx(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found for payment", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to load loan for payment", "loanID", loanID, "error", err)
		return nil, err
	}

	unpaid, err := s.repo.GetUnpaidInstallmentsInTx(ctx, tx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load unpaid installments", "loanID", loanID, "error", err)
		return nil, err
	}

	remaining := amount
	paidTotal := decimal.Zero
	payCount := 0
	now := time.Now()

	// Earliest due first, whole installments only. Stop at the first
	// installment the remaining amount cannot cover; never skip ahead.
	for i := range unpaid {
		if payCount == MaxInstallmentsPerPayment {
			break
		}
		inst := &unpaid[i]
		if remaining.LessThan(inst.Amount) {
			break
		}

		paymentDate := now
		inst.IsPaid = true
		inst.PaidAmount = inst.Amount
		inst.PaymentDate = &paymentDate
		inst.UpdatedAt = now

		if err = s.repo.MarkInstallmentPaidInTx(ctx, tx, inst); err != nil {
			s.logger.ErrorContext(ctx, "Failed to mark installment paid", "loanID", loanID, "installment", inst.InstallmentNumber, "error", err)
			return nil, err
		}

		remaining = remaining.Sub(inst.Amount)
		paidTotal = paidTotal.Add(inst.Amount)
		payCount++
	}

	unpaidLeft, err := s.repo.CountUnpaidInstallmentsInTx(ctx, tx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to recount unpaid installments", "loanID", loanID, "error", err)
		return nil, err
	}
	allPaid := unpaidLeft == 0

	if err = s.repo.SetLoanPaidInTx(ctx, tx, loanID, allPaid); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update loan paid state", "loanID", loanID, "error", err)
		return nil, err
	}

	// Release exactly once, on the transition to fully paid.
	payoff := allPaid && !paidLoan.IsPaid
	if payoff {
		if err = s.customerRepo.ReleaseCreditInTx(ctx, tx, paidLoan.CustomerID, paidLoan.LoanAmount); err != nil {
			s.logger.ErrorContext(ctx, "Failed to release customer credit", "loanID", loanID, "error", err)
			return nil, err
		}
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	monitoring.RecordPayment("success")
	monitoring.RecordInstallmentsPaid(payCount)
	s.logger.InfoContext(ctx, "Payment processed", "loanID", loanID, "payCount", payCount, "payAll", allPaid)

	if payoff {
		if pubErr := s.pub.PublishLoanPaidOff(ctx, event.LoanPaidOffEvent{
			LoanID:         loanID,
			CustomerID:     paidLoan.CustomerID,
			ReleasedAmount: paidLoan.LoanAmount,
			Timestamp:      time.Now(),
		}); pubErr != nil {
			s.logger.ErrorContext(ctx, "Loan paid off, but failed to publish event", "error", pubErr)
		}
	}

	return &PaymentResult{
		TotalAmount:  amount,
		PaidAmount:   paidTotal,
		UnpaidAmount: amount.Sub(paidTotal),
		PayCount:     payCount,
		PayAll:       allPaid,
	}, nil
}

func (s *loanServiceImpl) ListInstallments(ctx context.Context, loanID int64) ([]InstallmentView, error) {
	s.logger.InfoContext(ctx, "Listing installments", "loanID", loanID)

	if _, err := s.repo.GetLoanByID(ctx, loanID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %d not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to verify loan %d: %w", loanID, err)
	}

	installments, err := s.repo.GetInstallmentsByLoanID(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load installments", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to load installments for loan %d: %w", loanID, err)
	}

	views := make([]InstallmentView, 0, len(installments))
	for _, inst := range installments {
		views = append(views, NewInstallmentView(inst))
	}
	return views, nil
}

func paymentFailureStatus(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidAmount):
		return "failure_amount"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	default:
		return "failure_internal"
	}
}
