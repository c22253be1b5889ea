package loan

import (
	"time"

	"loan-engine/internal/domain/customer"

	"github.com/shopspring/decimal"
)

// LoanProjection is the shape origination and listing return to the
// boundary layer: the customer's identity and current limit alongside the
// selected loans.
type LoanProjection struct {
	CustomerName        string          `json:"customerName"`
	CustomerSurname     string          `json:"customerSurname"`
	CustomerCreditLimit decimal.Decimal `json:"customerCreditLimit"`
	LoanItems           []LoanItem      `json:"loanItems"`
}

type LoanItem struct {
	ID                  int64             `json:"id"`
	LoanAmount          decimal.Decimal   `json:"loanAmount"`
	NumberOfInstallment int               `json:"numberOfInstallment"`
	CreateDate          time.Time         `json:"createDate"`
	InterestRate        decimal.Decimal   `json:"interestRate"`
	IsPaid              bool              `json:"isPaid"`
	Installments        []InstallmentView `json:"installments"`
}

type InstallmentView struct {
	ID                int64           `json:"id"`
	InstallmentNumber int             `json:"installmentNumber"`
	Amount            decimal.Decimal `json:"amount"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	DueDate           time.Time       `json:"dueDate"`
	PaymentDate       *time.Time      `json:"paymentDate,omitempty"`
	IsPaid            bool            `json:"isPaid"`
}

// PaymentResult summarizes one payment allocation call. TotalAmount is the
// amount the caller supplied; PaidAmount the portion actually applied.
type PaymentResult struct {
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	UnpaidAmount decimal.Decimal `json:"unpaidAmount"`
	PayCount     int             `json:"payCount"`
	PayAll       bool            `json:"payAll"`
}

func NewInstallmentView(inst Installment) InstallmentView {
	return InstallmentView{
		ID:                inst.ID,
		InstallmentNumber: inst.InstallmentNumber,
		Amount:            inst.Amount,
		PaidAmount:        inst.PaidAmount,
		DueDate:           inst.DueDate,
		PaymentDate:       inst.PaymentDate,
		IsPaid:            inst.IsPaid,
	}
}

func NewLoanItem(l *Loan) LoanItem {
	installments := make([]InstallmentView, 0, len(l.Installments))
	for _, inst := range l.Installments {
		installments = append(installments, NewInstallmentView(inst))
	}
	return LoanItem{
		ID:                  l.ID,
		LoanAmount:          l.LoanAmount,
		NumberOfInstallment: l.NumberOfInstallment,
		CreateDate:          l.CreateDate,
		InterestRate:        l.InterestRate,
		IsPaid:              l.IsPaid,
		Installments:        installments,
	}
}

func NewLoanProjection(cust *customer.Customer, loans ...*Loan) *LoanProjection {
	items := make([]LoanItem, 0, len(loans))
	for _, l := range loans {
		items = append(items, NewLoanItem(l))
	}
	return &LoanProjection{
		CustomerName:        cust.Name,
		CustomerSurname:     cust.Surname,
		CustomerCreditLimit: cust.CreditLimit,
		LoanItems:           items,
	}
}
