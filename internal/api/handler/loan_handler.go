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
)

type LoanHandler struct {
	service   loan.LoanService
	evaluator *access.Evaluator
	logger    *slog.Logger
}

func NewLoanHandler(s loan.LoanService, e *access.Evaluator, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service:   s,
		evaluator: e,
		logger:    l.With("component", "LoanHandler"),
	}
}

// CreateLoan originates a new loan for a customer.
//
// @Summary Originate a new loan
// @Description Validates the loan request, reserves the customer's credit and creates the loan with its full installment schedule. Customers may only originate loans for themselves.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request payload"
// @Success 201 {object} dto.LoanProjectionResponse "Loan successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 403 {object} dto.ErrorResponse "Principal may not act on this customer"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /api/loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if !h.evaluator.CanAccessCustomer(principal, req.CustomerID) {
		h.logger.Warn("Principal denied loan creation", "username", principal.Username, "customerID", req.CustomerID)
		respondError(w, apperrors.ErrForbidden)
		return
	}

	amount, rate := req.Amounts()
	projection, err := h.service.Originate(r.Context(), req.CustomerID, amount, rate, req.NumberOfInstallment)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanProjectionResponse(projection))
}

// ListLoans returns a customer's loans with optional filters.
//
// @Summary List a customer's loans
// @Description Returns all loans of a customer, optionally filtered by number of installments and paid status. Customers may only list their own loans.
// @Tags Loans
// @Produce json
// @Param customerId query int true "Customer ID"
// @Param numberOfInstallment query int false "Filter by term"
// @Param isPaid query bool false "Filter by paid status"
// @Success 200 {object} dto.LoanProjectionResponse "Loans successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 403 {object} dto.ErrorResponse "Principal may not act on this customer"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /api/loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	customerID, err := strconv.ParseInt(r.URL.Query().Get("customerId"), 10, 64)
	if err != nil {
		respondError(w, fmt.Errorf("%w: customerId query parameter is required", apperrors.ErrInvalidArgument))
		return
	}

	var termFilter *int
	if raw := r.URL.Query().Get("numberOfInstallment"); raw != "" {
		term, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, fmt.Errorf("%w: invalid numberOfInstallment filter", apperrors.ErrInvalidArgument))
			return
		}
		termFilter = &term
	}

	var paidFilter *bool
	if raw := r.URL.Query().Get("isPaid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, fmt.Errorf("%w: invalid isPaid filter", apperrors.ErrInvalidArgument))
			return
		}
		paidFilter = &paid
	}

	if !h.evaluator.CanAccessCustomer(principal, customerID) {
		h.logger.Warn("Principal denied loan listing", "username", principal.Username, "customerID", customerID)
		respondError(w, apperrors.ErrForbidden)
		return
	}

	projection, err := h.service.ListLoans(r.Context(), customerID, termFilter, paidFilter)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanProjectionResponse(projection))
}
