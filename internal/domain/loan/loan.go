package loan

import (
	"fmt"
	"time"

	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

const (
	// MaxInstallmentsPerPayment bounds how many installments a single
	// payment call may settle.
	MaxInstallmentsPerPayment = 3

	// MoneyScale is the minor-unit precision installment amounts are
	// rounded to.
	MoneyScale = 2
)

// ValidTerms is the enumerated set of allowed loan terms, in months.
var ValidTerms = []int{6, 9, 12, 24}

var (
	MinInterestRate = decimal.NewFromFloat(0.10)
	MaxInterestRate = decimal.NewFromFloat(0.50)
)

type Loan struct {
	ID                  int64
	CustomerID          int64
	LoanAmount          decimal.Decimal
	NumberOfInstallment int
	InterestRate        decimal.Decimal
	CreateDate          time.Time
	IsPaid              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Installments        []Installment
}

type Installment struct {
	ID                int64
	LoanID            int64
	InstallmentNumber int
	Amount            decimal.Decimal
	PaidAmount        decimal.Decimal
	DueDate           time.Time
	PaymentDate       *time.Time
	IsPaid            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewLoan validates the business rules for a loan request and builds the
// loan entity. Checks run in a fixed order: amount, term, rate.
func NewLoan(customerID int64, amount decimal.Decimal, interestRate decimal.Decimal, termMonths int, createDate time.Time) (*Loan, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be positive", apperrors.ErrInvalidAmount)
	}
	if !isValidTerm(termMonths) {
		return nil, fmt.Errorf("%w: must be one of %v", apperrors.ErrInvalidTerm, ValidTerms)
	}
	if interestRate.LessThan(MinInterestRate) || interestRate.GreaterThan(MaxInterestRate) {
		return nil, fmt.Errorf("%w: must be between %s and %s", apperrors.ErrInvalidRate, MinInterestRate, MaxInterestRate)
	}
	if createDate.IsZero() {
		createDate = time.Now()
	}

	return &Loan{
		CustomerID:          customerID,
		LoanAmount:          amount,
		NumberOfInstallment: termMonths,
		InterestRate:        interestRate,
		CreateDate:          createDate,
		IsPaid:              false,
	}, nil
}

func isValidTerm(termMonths int) bool {
	for _, t := range ValidTerms {
		if termMonths == t {
			return true
		}
	}
	return false
}

// GenerateSchedule materializes the full installment sequence for the loan.
// Every installment carries the same amount: total = principal * (1 + rate),
// divided by the term and rounded half-up to MoneyScale. The rounding
// remainder is not redistributed onto the last installment, so the schedule
// total can differ from the exact total by up to one rounding unit per
// installment. Installment i falls due on the first day of the month i
// months after the loan's create date.
func (l *Loan) GenerateSchedule() ([]Installment, error) {
	if l.NumberOfInstallment <= 0 {
		return nil, fmt.Errorf("%w: invalid loan terms for schedule generation", apperrors.ErrInvalidArgument)
	}

	total := l.LoanAmount.Mul(decimal.NewFromInt(1).Add(l.InterestRate))
	installmentAmount := total.DivRound(decimal.NewFromInt(int64(l.NumberOfInstallment)), MoneyScale)

	schedule := make([]Installment, 0, l.NumberOfInstallment)
	for i := 1; i <= l.NumberOfInstallment; i++ {
		schedule = append(schedule, Installment{
			InstallmentNumber: i,
			Amount:            installmentAmount,
			PaidAmount:        decimal.Zero,
			DueDate:           firstOfMonthAfter(l.CreateDate, i),
			IsPaid:            false,
		})
	}

	return schedule, nil
}

// TotalAmount is the principal plus interest owed over the loan's lifetime.
func (l *Loan) TotalAmount() decimal.Decimal {
	return l.LoanAmount.Mul(decimal.NewFromInt(1).Add(l.InterestRate))
}

func firstOfMonthAfter(from time.Time, months int) time.Time {
	return time.Date(from.Year(), from.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
}
