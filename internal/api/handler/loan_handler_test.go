package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/access"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Originate(ctx context.Context, customerID int64, amount, interestRate decimal.Decimal, termMonths int) (*loan.LoanProjection, error) {
	args := m.Called(ctx, customerID, amount, interestRate, termMonths)
	if projection, ok := args.Get(0).(*loan.LoanProjection); ok {
		return projection, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, customerID int64, termMonths *int, isPaid *bool) (*loan.LoanProjection, error) {
	args := m.Called(ctx, customerID, termMonths, isPaid)
	if projection, ok := args.Get(0).(*loan.LoanProjection); ok {
		return projection, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) PayInstallments(ctx context.Context, loanID int64, amount decimal.Decimal) (*loan.PaymentResult, error) {
	args := m.Called(ctx, loanID, amount)
	if result, ok := args.Get(0).(*loan.PaymentResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListInstallments(ctx context.Context, loanID int64) ([]loan.InstallmentView, error) {
	args := m.Called(ctx, loanID)
	if views, ok := args.Get(0).([]loan.InstallmentView); ok {
		return views, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ loan.LoanService = (*MockLoanService)(nil)

// MockOwnerResolver backs the access evaluator in handler tests.
type MockOwnerResolver struct {
	mock.Mock
}

func (m *MockOwnerResolver) GetLoanOwner(ctx context.Context, loanID int64) (int64, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(int64), args.Error(1)
}

var testLogger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

var adminPrincipal = access.Principal{Username: "admin", Role: access.RoleAdmin}

func customerPrincipal(customerID int64) access.Principal {
	return access.Principal{Username: "customer1", Role: access.RoleCustomer, CustomerID: &customerID}
}

func asPrincipal(req *http.Request, p access.Principal) *http.Request {
	return req.WithContext(access.ContextWithPrincipal(req.Context(), p))
}

func sampleProjection() *loan.LoanProjection {
	return &loan.LoanProjection{
		CustomerName:        "Michael",
		CustomerSurname:     "Johnson",
		CustomerCreditLimit: decimal.RequireFromString("497600.00"),
		LoanItems: []loan.LoanItem{{
			ID:                  7,
			LoanAmount:          decimal.RequireFromString("2000.00"),
			NumberOfInstallment: 6,
			CreateDate:          time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
			InterestRate:        decimal.RequireFromString("0.2"),
			Installments: []loan.InstallmentView{{
				ID:                1,
				InstallmentNumber: 1,
				Amount:            decimal.RequireFromString("400.00"),
				PaidAmount:        decimal.Zero,
				DueDate:           time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
			}},
		}},
	}
}

func TestLoanHandlerCreateLoan(t *testing.T) {
	validBody := `{"customerId":2,"loanAmount":"2000.00","interestRate":"0.2","numberOfInstallment":6}`

	newHandler := func() (*LoanHandler, *MockLoanService) {
		mockService := new(MockLoanService)
		evaluator := access.NewEvaluator(new(MockOwnerResolver), testLogger)
		return NewLoanHandler(mockService, evaluator, testLogger), mockService
	}

	t.Run("successfully originates a loan", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("Originate", mock.Anything, int64(2),
			decimal.RequireFromString("2000.00"), decimal.RequireFromString("0.2"), 6).
			Return(sampleProjection(), nil)

		req := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(validBody))
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.LoanProjectionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Michael", resp.CustomerName)
		assert.Equal(t, "497600.00", resp.CustomerCreditLimit)
		require.Len(t, resp.LoanItems, 1)
		assert.Equal(t, "2000.00", resp.LoanItems[0].LoanAmount)
		assert.Equal(t, "2025-03-15", resp.LoanItems[0].CreateDate)
		require.Len(t, resp.LoanItems[0].Installments, 1)
		assert.Equal(t, "2025-04-01", resp.LoanItems[0].Installments[0].DueDate)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects request without a principal", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(validBody))
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		mockService.AssertNotCalled(t, "Originate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("forbids customers from originating for another customer", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(validBody))
		req = asPrincipal(req, customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "You can only access your own data.", resp.Error.Message)
		mockService.AssertNotCalled(t, "Originate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a malformed amount", func(t *testing.T) {
		handler, mockService := newHandler()

		body := `{"customerId":2,"loanAmount":"not-a-number","interestRate":"0.2","numberOfInstallment":6}`
		req := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(body))
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Originate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("maps insufficient credit to bad request", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("Originate", mock.Anything, int64(2), mock.Anything, mock.Anything, 6).
			Return((*loan.LoanProjection)(nil), apperrors.ErrInsufficientCredit)

		req := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(validBody))
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("maps unknown customer to not found", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("Originate", mock.Anything, int64(2), mock.Anything, mock.Anything, 6).
			Return((*loan.LoanProjection)(nil), apperrors.ErrNotFound)

		req := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(validBody))
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.CreateLoan(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandlerListLoans(t *testing.T) {
	newHandler := func() (*LoanHandler, *MockLoanService) {
		mockService := new(MockLoanService)
		evaluator := access.NewEvaluator(new(MockOwnerResolver), testLogger)
		return NewLoanHandler(mockService, evaluator, testLogger), mockService
	}

	t.Run("lists loans with filters", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("ListLoans", mock.Anything, int64(2),
			mock.MatchedBy(func(term *int) bool { return term != nil && *term == 6 }),
			mock.MatchedBy(func(paid *bool) bool { return paid != nil && !*paid })).
			Return(sampleProjection(), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/loans?customerId=2&numberOfInstallment=6&isPaid=false", nil)
		req = asPrincipal(req, customerPrincipal(2))
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanProjectionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Michael", resp.CustomerName)
		mockService.AssertExpectations(t)
	})

	t.Run("lists loans without filters", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("ListLoans", mock.Anything, int64(2), (*int)(nil), (*bool)(nil)).
			Return(sampleProjection(), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/loans?customerId=2", nil)
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("requires the customerId query parameter", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "ListLoans", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a malformed isPaid filter", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/loans?customerId=2&isPaid=maybe", nil)
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "ListLoans", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("forbids listing another customer's loans", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/loans?customerId=2", nil)
		req = asPrincipal(req, customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockService.AssertNotCalled(t, "ListLoans", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
