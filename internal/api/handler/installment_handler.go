package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/access"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type InstallmentHandler struct {
	service   loan.LoanService
	evaluator *access.Evaluator
	logger    *slog.Logger
}

func NewInstallmentHandler(s loan.LoanService, e *access.Evaluator, l *slog.Logger) *InstallmentHandler {
	return &InstallmentHandler{
		service:   s,
		evaluator: e,
		logger:    l.With("component", "InstallmentHandler"),
	}
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("loanID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// checkLoanAccess runs the access evaluator for the loan, writing the
// error response on denial.
func (h *InstallmentHandler) checkLoanAccess(w http.ResponseWriter, r *http.Request, principal access.Principal, loanID int64) bool {
	allowed, err := h.evaluator.CanAccessLoan(r.Context(), principal, loanID)
	if err != nil {
		respondError(w, err)
		return false
	}
	if !allowed {
		h.logger.Warn("Principal denied loan access", "username", principal.Username, "loanID", loanID)
		respondError(w, apperrors.ErrForbidden)
		return false
	}
	return true
}

// ListInstallments returns a loan's installment schedule.
//
// @Summary List a loan's installments
// @Description Returns the loan's installments ordered by installment number. Customers may only view installments of their own loans.
// @Tags Installments
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {array} dto.InstallmentResponse "Installments successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 403 {object} dto.ErrorResponse "Principal may not access this loan"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /api/installments/loan/{loanID} [get]
// @Security BearerAuth
func (h *InstallmentHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if !h.checkLoanAccess(w, r, principal, loanID) {
		return
	}

	views, err := h.service.ListInstallments(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	installments := make([]dto.InstallmentResponse, 0, len(views))
	for _, view := range views {
		installments = append(installments, dto.NewInstallmentResponse(view))
	}
	respondJSON(w, http.StatusOK, installments)
}

// PayInstallments allocates a payment across a loan's unpaid installments.
//
// @Summary Pay installments of a loan
// @Description Applies the payment to the earliest due unpaid installments, settling at most 3 whole installments per call. Customers may only pay their own loans.
// @Tags Installments
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.PayInstallmentsRequest true "Payment request payload"
// @Success 200 {object} dto.PaymentResultResponse "Payment successfully processed"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID, payload or payment amount"
// @Failure 403 {object} dto.ErrorResponse "Principal may not access this loan"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /api/installments/loan/{loanID} [post]
// @Security BearerAuth
func (h *InstallmentHandler) PayInstallments(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.PayInstallmentsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidAmount, err))
		return
	}

	if !h.checkLoanAccess(w, r, principal, loanID) {
		return
	}

	amount, _ := decimal.NewFromString(req.Amount)
	result, err := h.service.PayInstallments(r.Context(), loanID, amount)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPaymentResultResponse(result))
}
