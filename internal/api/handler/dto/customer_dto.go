package dto

import (
	"fmt"
	"strings"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	CreditLimit string `json:"creditLimit"`
}

func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.TrimSpace(r.Surname) == "" {
		return fmt.Errorf("surname cannot be empty")
	}
	limit, err := decimal.NewFromString(r.CreditLimit)
	if err != nil || limit.IsNegative() {
		return fmt.Errorf("creditLimit must be a non-negative decimal")
	}
	return nil
}

func (r *CreateCustomerRequest) Limit() decimal.Decimal {
	limit, _ := decimal.NewFromString(r.CreditLimit)
	return limit
}

type CustomerResponse struct {
	CustomerID      int64  `json:"customerId"`
	Name            string `json:"name"`
	Surname         string `json:"surname"`
	CreditLimit     string `json:"creditLimit"`
	UsedCreditLimit string `json:"usedCreditLimit"`
}

func NewCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		CustomerID:      c.CustomerID,
		Name:            c.Name,
		Surname:         c.Surname,
		CreditLimit:     c.CreditLimit.StringFixed(loan.MoneyScale),
		UsedCreditLimit: c.UsedCreditLimit.StringFixed(loan.MoneyScale),
	}
}
