package customer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer holds the revolving credit state loans are originated against.
// CreditLimit is the currently available capacity; UsedCreditLimit is the
// principal committed to outstanding loans. Both move together: reserving
// credit shifts amount from CreditLimit to UsedCreditLimit, releasing on
// payoff shifts it back.
type Customer struct {
	CustomerID      int64           `json:"customerId"`
	Name            string          `json:"name"`
	Surname         string          `json:"surname"`
	CreditLimit     decimal.Decimal `json:"creditLimit"`
	UsedCreditLimit decimal.Decimal `json:"usedCreditLimit"`
	CreateDate      time.Time       `json:"createDate"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func NewCustomer(name, surname string, creditLimit decimal.Decimal) *Customer {
	now := time.Now()
	return &Customer{
		Name:            name,
		Surname:         surname,
		CreditLimit:     creditLimit,
		UsedCreditLimit: decimal.Zero,
		CreateDate:      now,
		UpdatedAt:       now,
	}
}

// HasEnoughLimit reports whether amount fits within the available credit.
func (c *Customer) HasEnoughLimit(amount decimal.Decimal) bool {
	return c.CreditLimit.GreaterThanOrEqual(amount)
}
