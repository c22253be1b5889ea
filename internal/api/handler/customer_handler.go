package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/access"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type CustomerHandler struct {
	service   customer.CustomerService
	evaluator *access.Evaluator
	logger    *slog.Logger
}

func NewCustomerHandler(s customer.CustomerService, e *access.Evaluator, l *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		service:   s,
		evaluator: e,
		logger:    l.With("component", "CustomerHandler"),
	}
}

// CreateCustomer onboards a new customer with an initial credit limit.
//
// @Summary Create a new customer
// @Description Admin-only onboarding endpoint.
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.CreateCustomerRequest true "Customer creation request payload"
// @Success 201 {object} dto.CustomerResponse "Customer successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Router /api/customers [post]
// @Security BearerAuth
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.IsAdmin() {
		respondError(w, apperrors.ErrForbidden)
		return
	}

	var req dto.CreateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	cust, err := h.service.CreateNewCustomer(r.Context(), req.Name, req.Surname, req.Limit())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewCustomerResponse(cust))
}

// GetCustomer returns a single customer.
//
// @Summary Retrieve customer details
// @Description Customers may only view their own record; admins may view any.
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID"
// @Success 200 {object} dto.CustomerResponse "Customer successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 403 {object} dto.ErrorResponse "Principal may not access this customer"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /api/customers/{customerID} [get]
// @Security BearerAuth
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid customer ID", apperrors.ErrInvalidArgument))
		return
	}

	if !h.evaluator.CanAccessCustomer(principal, customerID) {
		h.logger.Warn("Principal denied customer access", "username", principal.Username, "customerID", customerID)
		respondError(w, apperrors.ErrForbidden)
		return
	}

	cust, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(cust))
}

// ListCustomers returns all customers.
//
// @Summary List customers
// @Description Admin-only listing of all customers.
// @Tags Customers
// @Produce json
// @Success 200 {array} dto.CustomerResponse "Customers successfully retrieved"
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Router /api/customers [get]
// @Security BearerAuth
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.IsAdmin() {
		respondError(w, apperrors.ErrForbidden)
		return
	}

	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	responses := make([]dto.CustomerResponse, 0, len(customers))
	for _, cust := range customers {
		responses = append(responses, dto.NewCustomerResponse(cust))
	}
	respondJSON(w, http.StatusOK, responses)
}
