package event

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type LoanOriginatedEvent struct {
	LoanID              int64           `json:"loanId"`
	CustomerID          int64           `json:"customerId"`
	LoanAmount          decimal.Decimal `json:"loanAmount"`
	NumberOfInstallment int             `json:"numberOfInstallment"`
	InterestRate        decimal.Decimal `json:"interestRate"`
	Timestamp           time.Time       `json:"timestamp"`
}

type LoanPaidOffEvent struct {
	LoanID         int64           `json:"loanId"`
	CustomerID     int64           `json:"customerId"`
	ReleasedAmount decimal.Decimal `json:"releasedAmount"`
	Timestamp      time.Time       `json:"timestamp"`
}

type EventPublisher interface {
	PublishLoanOriginated(ctx context.Context, event LoanOriginatedEvent) error
	PublishLoanPaidOff(ctx context.Context, event LoanPaidOffEvent) error
}

// NoopPublisher is used when event publishing is disabled in configuration.
type NoopPublisher struct{}

func (NoopPublisher) PublishLoanOriginated(ctx context.Context, event LoanOriginatedEvent) error {
	return nil
}

func (NoopPublisher) PublishLoanPaidOff(ctx context.Context, event LoanPaidOffEvent) error {
	return nil
}
