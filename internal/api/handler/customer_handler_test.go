package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/access"
	"loan-engine/internal/domain/customer"
	"loan-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) CreateNewCustomer(ctx context.Context, name, surname string, creditLimit decimal.Decimal) (*customer.Customer, error) {
	args := m.Called(ctx, name, surname, creditLimit)
	if cust, ok := args.Get(0).(*customer.Customer); ok {
		return cust, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if cust, ok := args.Get(0).(*customer.Customer); ok {
		return cust, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	args := m.Called(ctx)
	if customers, ok := args.Get(0).([]*customer.Customer); ok {
		return customers, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ customer.CustomerService = (*MockCustomerService)(nil)

func withCustomerID(req *http.Request, customerID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{"customerID"}, Values: []string{customerID}},
	}))
}

func sampleCustomer(customerID int64) *customer.Customer {
	cust := customer.NewCustomer("John", "Doe", decimal.RequireFromString("100000.00"))
	cust.CustomerID = customerID
	return cust
}

func TestCustomerHandlerCreateCustomer(t *testing.T) {
	newHandler := func() (*CustomerHandler, *MockCustomerService) {
		mockService := new(MockCustomerService)
		evaluator := access.NewEvaluator(new(MockOwnerResolver), testLogger)
		return NewCustomerHandler(mockService, evaluator, testLogger), mockService
	}

	t.Run("admin successfully creates a customer", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("CreateNewCustomer", mock.Anything, "John", "Doe", decimal.RequireFromString("100000.00")).
			Return(sampleCustomer(1), nil)

		body := `{"name":"John","surname":"Doe","creditLimit":"100000.00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(body))
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.CreateCustomer(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CustomerResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(1), resp.CustomerID)
		assert.Equal(t, "John", resp.Name)
		assert.Equal(t, "100000.00", resp.CreditLimit)
		assert.Equal(t, "0.00", resp.UsedCreditLimit)
		mockService.AssertExpectations(t)
	})

	t.Run("forbids non-admin principals", func(t *testing.T) {
		handler, mockService := newHandler()

		body := `{"name":"John","surname":"Doe","creditLimit":"100000.00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(body))
		req = asPrincipal(req, customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.CreateCustomer(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockService.AssertNotCalled(t, "CreateNewCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a negative credit limit", func(t *testing.T) {
		handler, mockService := newHandler()

		body := `{"name":"John","surname":"Doe","creditLimit":"-1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(body))
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.CreateCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "CreateNewCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCustomerHandlerGetCustomer(t *testing.T) {
	newHandler := func() (*CustomerHandler, *MockCustomerService) {
		mockService := new(MockCustomerService)
		evaluator := access.NewEvaluator(new(MockOwnerResolver), testLogger)
		return NewCustomerHandler(mockService, evaluator, testLogger), mockService
	}

	t.Run("customer retrieves their own record", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("GetCustomer", mock.Anything, int64(5)).Return(sampleCustomer(5), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/customers/5", nil)
		req = asPrincipal(withCustomerID(req, "5"), customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.GetCustomer(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.CustomerResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(5), resp.CustomerID)
		mockService.AssertExpectations(t)
	})

	t.Run("forbids reading another customer's record", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/customers/6", nil)
		req = asPrincipal(withCustomerID(req, "6"), customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.GetCustomer(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockService.AssertNotCalled(t, "GetCustomer", mock.Anything, mock.Anything)
	})

	t.Run("rejects a non-numeric customer ID", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/customers/abc", nil)
		req = asPrincipal(withCustomerID(req, "abc"), adminPrincipal)
		rec := httptest.NewRecorder()

		handler.GetCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "GetCustomer", mock.Anything, mock.Anything)
	})

	t.Run("maps an unknown customer to not found", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("GetCustomer", mock.Anything, int64(99)).
			Return((*customer.Customer)(nil), apperrors.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/customers/99", nil)
		req = asPrincipal(withCustomerID(req, "99"), adminPrincipal)
		rec := httptest.NewRecorder()

		handler.GetCustomer(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestCustomerHandlerListCustomers(t *testing.T) {
	newHandler := func() (*CustomerHandler, *MockCustomerService) {
		mockService := new(MockCustomerService)
		evaluator := access.NewEvaluator(new(MockOwnerResolver), testLogger)
		return NewCustomerHandler(mockService, evaluator, testLogger), mockService
	}

	t.Run("admin lists all customers", func(t *testing.T) {
		handler, mockService := newHandler()
		mockService.On("ListCustomers", mock.Anything).
			Return([]*customer.Customer{sampleCustomer(1), sampleCustomer(2)}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
		req = asPrincipal(req, adminPrincipal)
		rec := httptest.NewRecorder()

		handler.ListCustomers(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.CustomerResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp, 2)
		mockService.AssertExpectations(t)
	})

	t.Run("forbids non-admin principals", func(t *testing.T) {
		handler, mockService := newHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
		req = asPrincipal(req, customerPrincipal(5))
		rec := httptest.NewRecorder()

		handler.ListCustomers(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockService.AssertNotCalled(t, "ListCustomers", mock.Anything)
	})
}
