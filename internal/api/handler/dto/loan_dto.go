package dto

import (
	"fmt"
	"time"

	"loan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type CreateLoanRequest struct {
	CustomerID          int64  `json:"customerId"`
	LoanAmount          string `json:"loanAmount"`
	InterestRate        string `json:"interestRate"`
	NumberOfInstallment int    `json:"numberOfInstallment"`
}

func (r *CreateLoanRequest) Validate() error {
	if r.CustomerID <= 0 {
		return fmt.Errorf("customerId must be positive")
	}
	amount, err := decimal.NewFromString(r.LoanAmount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("loanAmount must be a positive decimal")
	}
	if _, err := decimal.NewFromString(r.InterestRate); err != nil {
		return fmt.Errorf("invalid numeric format for interestRate: %w", err)
	}
	if r.NumberOfInstallment <= 0 {
		return fmt.Errorf("numberOfInstallment must be positive")
	}
	return nil
}

// Amounts decodes the validated monetary fields. Call only after Validate.
func (r *CreateLoanRequest) Amounts() (amount, rate decimal.Decimal) {
	amount, _ = decimal.NewFromString(r.LoanAmount)
	rate, _ = decimal.NewFromString(r.InterestRate)
	return amount, rate
}

type LoanProjectionResponse struct {
	CustomerName        string             `json:"customerName"`
	CustomerSurname     string             `json:"customerSurname"`
	CustomerCreditLimit string             `json:"customerCreditLimit"`
	LoanItems           []LoanItemResponse `json:"loanItems"`
}

type LoanItemResponse struct {
	ID                  int64                 `json:"id"`
	LoanAmount          string                `json:"loanAmount"`
	NumberOfInstallment int                   `json:"numberOfInstallment"`
	CreateDate          string                `json:"createDate"`
	InterestRate        string                `json:"interestRate"`
	IsPaid              bool                  `json:"isPaid"`
	Installments        []InstallmentResponse `json:"installments"`
}

type InstallmentResponse struct {
	ID                int64  `json:"id"`
	InstallmentNumber int    `json:"installmentNumber"`
	Amount            string `json:"amount"`
	PaidAmount        string `json:"paidAmount"`
	DueDate           string `json:"dueDate"`
	PaymentDate       string `json:"paymentDate,omitempty"`
	IsPaid            bool   `json:"isPaid"`
}

var dateLayout = time.RFC3339[:10]

func NewLoanProjectionResponse(p *loan.LoanProjection) LoanProjectionResponse {
	items := make([]LoanItemResponse, 0, len(p.LoanItems))
	for _, item := range p.LoanItems {
		items = append(items, NewLoanItemResponse(item))
	}
	return LoanProjectionResponse{
		CustomerName:        p.CustomerName,
		CustomerSurname:     p.CustomerSurname,
		CustomerCreditLimit: p.CustomerCreditLimit.StringFixed(loan.MoneyScale),
		LoanItems:           items,
	}
}

func NewLoanItemResponse(item loan.LoanItem) LoanItemResponse {
	installments := make([]InstallmentResponse, 0, len(item.Installments))
	for _, inst := range item.Installments {
		installments = append(installments, NewInstallmentResponse(inst))
	}
	return LoanItemResponse{
		ID:                  item.ID,
		LoanAmount:          item.LoanAmount.StringFixed(loan.MoneyScale),
		NumberOfInstallment: item.NumberOfInstallment,
		CreateDate:          item.CreateDate.Format(dateLayout),
		InterestRate:        item.InterestRate.String(),
		IsPaid:              item.IsPaid,
		Installments:        installments,
	}
}

func NewInstallmentResponse(view loan.InstallmentView) InstallmentResponse {
	resp := InstallmentResponse{
		ID:                view.ID,
		InstallmentNumber: view.InstallmentNumber,
		Amount:            view.Amount.StringFixed(loan.MoneyScale),
		PaidAmount:        view.PaidAmount.StringFixed(loan.MoneyScale),
		DueDate:           view.DueDate.Format(dateLayout),
		IsPaid:            view.IsPaid,
	}
	if view.PaymentDate != nil {
		resp.PaymentDate = view.PaymentDate.Format(dateLayout)
	}
	return resp
}
