package dto

import (
	"fmt"

	"loan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type PayInstallmentsRequest struct {
	Amount string `json:"amount"`
}

func (r *PayInstallmentsRequest) Validate() error {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || r.Amount == "" {
		return fmt.Errorf("invalid payment amount: %w", err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("payment amount must be positive")
	}
	return nil
}

type PaymentResultResponse struct {
	TotalAmount  string `json:"totalAmount"`
	PaidAmount   string `json:"paidAmount"`
	UnpaidAmount string `json:"unpaidAmount"`
	PayCount     int    `json:"payCount"`
	PayAll       bool   `json:"payAll"`
}

func NewPaymentResultResponse(result *loan.PaymentResult) PaymentResultResponse {
	return PaymentResultResponse{
		TotalAmount:  result.TotalAmount.StringFixed(loan.MoneyScale),
		PaidAmount:   result.PaidAmount.StringFixed(loan.MoneyScale),
		UnpaidAmount: result.UnpaidAmount.StringFixed(loan.MoneyScale),
		PayCount:     result.PayCount,
		PayAll:       result.PayAll,
	}
}
