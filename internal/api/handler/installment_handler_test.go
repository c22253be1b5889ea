package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/access"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func withLoanID(req *http.Request, loanID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{"loanID"}, Values: []string{loanID}},
	}))
}

func TestInstallmentHandlerListInstallments(t *testing.T) {
	newHandler := func() (*InstallmentHandler, *MockLoanService, *MockOwnerResolver) {
		mockService := new(MockLoanService)
		resolver := new(MockOwnerResolver)
		evaluator := access.NewEvaluator(resolver, testLogger)
		return NewInstallmentHandler(mockService, evaluator, testLogger), mockService, resolver
	}

	t.Run("successfully lists a loan's installments", func(t *testing.T) {
		handler, mockService, _ := newHandler()
		views := []loan.InstallmentView{
			{
				ID:                1,
				InstallmentNumber: 1,
				Amount:            decimal.RequireFromString("400.00"),
				PaidAmount:        decimal.Zero,
				DueDate:           time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:                2,
				InstallmentNumber: 2,
				Amount:            decimal.RequireFromString("400.00"),
				PaidAmount:        decimal.Zero,
				DueDate:           time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
			},
		}
		mockService.On("ListInstallments", mock.Anything, int64(7)).Return(views, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/installments/loan/7", nil)
		req = asPrincipal(withLoanID(req, "7"), adminPrincipal)
		rec := httptest.NewRecorder()

		handler.ListInstallments(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.InstallmentResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, "400.00", resp[0].Amount)
		assert.Equal(t, "2025-04-01", resp[0].DueDate)
		assert.Empty(t, resp[0].PaymentDate)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects a non-numeric loan ID", func(t *testing.T) {
		handler, mockService, _ := newHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/installments/loan/abc", nil)
		req = asPrincipal(withLoanID(req, "abc"), adminPrincipal)
		rec := httptest.NewRecorder()

		handler.ListInstallments(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "ListInstallments", mock.Anything, mock.Anything)
	})

	t.Run("forbids viewing another customer's loan", func(t *testing.T) {
		handler, mockService, resolver := newHandler()
		resolver.On("GetLoanOwner", mock.Anything, int64(7)).Return(int64(6), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/installments/loan/7", nil)
		req = asPrincipal(withLoanID(req, "7"), customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.ListInstallments(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockService.AssertNotCalled(t, "ListInstallments", mock.Anything, mock.Anything)
	})

	t.Run("surfaces an unknown loan as not found", func(t *testing.T) {
		handler, mockService, resolver := newHandler()
		resolver.On("GetLoanOwner", mock.Anything, int64(404)).Return(int64(0), apperrors.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/installments/loan/404", nil)
		req = asPrincipal(withLoanID(req, "404"), customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.ListInstallments(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertNotCalled(t, "ListInstallments", mock.Anything, mock.Anything)
	})
}

func TestInstallmentHandlerPayInstallments(t *testing.T) {
	newHandler := func() (*InstallmentHandler, *MockLoanService, *MockOwnerResolver) {
		mockService := new(MockLoanService)
		resolver := new(MockOwnerResolver)
		evaluator := access.NewEvaluator(resolver, testLogger)
		return NewInstallmentHandler(mockService, evaluator, testLogger), mockService, resolver
	}

	t.Run("successfully applies a payment", func(t *testing.T) {
		handler, mockService, resolver := newHandler()
		resolver.On("GetLoanOwner", mock.Anything, int64(7)).Return(int64(5), nil)
		mockService.On("PayInstallments", mock.Anything, int64(7), decimal.RequireFromString("800.00")).
			Return(&loan.PaymentResult{
				TotalAmount:  decimal.RequireFromString("800.00"),
				PaidAmount:   decimal.RequireFromString("800.00"),
				UnpaidAmount: decimal.Zero,
				PayCount:     2,
				PayAll:       false,
			}, nil)

		body := `{"amount":"800.00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/installments/loan/7", strings.NewReader(body))
		req = asPrincipal(withLoanID(req, "7"), customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.PayInstallments(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.PaymentResultResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "800.00", resp.TotalAmount)
		assert.Equal(t, "800.00", resp.PaidAmount)
		assert.Equal(t, "0.00", resp.UnpaidAmount)
		assert.Equal(t, 2, resp.PayCount)
		assert.False(t, resp.PayAll)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects a non-positive payment amount", func(t *testing.T) {
		handler, mockService, _ := newHandler()

		body := `{"amount":"-100.00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/installments/loan/7", strings.NewReader(body))
		req = asPrincipal(withLoanID(req, "7"), adminPrincipal)
		rec := httptest.NewRecorder()

		handler.PayInstallments(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "PayInstallments", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		handler, mockService, _ := newHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/installments/loan/7", strings.NewReader(`{"amount":`))
		req = asPrincipal(withLoanID(req, "7"), adminPrincipal)
		rec := httptest.NewRecorder()

		handler.PayInstallments(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "PayInstallments", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("forbids paying another customer's loan", func(t *testing.T) {
		handler, mockService, resolver := newHandler()
		resolver.On("GetLoanOwner", mock.Anything, int64(7)).Return(int64(6), nil)

		body := `{"amount":"800.00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/installments/loan/7", strings.NewReader(body))
		req = asPrincipal(withLoanID(req, "7"), customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.PayInstallments(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockService.AssertNotCalled(t, "PayInstallments", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("maps an unknown loan to not found", func(t *testing.T) {
		handler, mockService, resolver := newHandler()
		resolver.On("GetLoanOwner", mock.Anything, int64(404)).Return(int64(5), nil)
		mockService.On("PayInstallments", mock.Anything, int64(404), decimal.RequireFromString("800.00")).
			Return((*loan.PaymentResult)(nil), apperrors.ErrNotFound)

		body := `{"amount":"800.00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/installments/loan/404", strings.NewReader(body))
		req = asPrincipal(withLoanID(req, "404"), customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.PayInstallments(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})
}
