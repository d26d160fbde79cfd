package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"order-ledger/internal/auth"
	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOrderRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/orders", h.Create)
	r.Get("/api/orders/{id}", h.GetByID)
	r.Put("/api/orders/{id}/status", h.UpdateStatus)
	r.Post("/api/orders/{id}/commission", h.Attribute)
	return r
}

func serve(h http.Handler, method, path string, body interface{}, p *auth.Principal, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestOrderHandler_Create(t *testing.T) {
	orderID := uuid.New()
	result := &model.CreateOrderResult{OrderID: orderID, OrderCode: "2603140001"}
	validBody := &model.OrderRequest{Items: []model.OrderItemRequest{{ProductID: "P001", Quantity: 5}}}

	tests := []struct {
		name           string
		requestBody    interface{}
		mockReturn     *model.CreateOrderResult
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			requestBody:    validBody,
			mockReturn:     result,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Malformed body",
			requestBody:    "{items:",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:           "Duplicate product",
			requestBody:    validBody,
			mockError:      model.ErrDuplicateProduct,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeDuplicateProduct,
			expectService:  true,
		},
		{
			name:           "Quantity below minimum",
			requestBody:    validBody,
			mockError:      model.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidQuantity,
			expectService:  true,
		},
		{
			name:           "Unknown product",
			requestBody:    validBody,
			mockError:      model.ErrProductInvalid,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeProductInvalid,
			expectService:  true,
		},
		{
			name:           "Rate limited",
			requestBody:    validBody,
			mockError:      model.ErrRateLimited,
			expectedStatus: http.StatusTooManyRequests,
			expectedCode:   model.ErrCodeRateLimited,
			expectService:  true,
		},
		{
			name:           "Code allocation failed",
			requestBody:    validBody,
			mockError:      fmt.Errorf("failed to create order: %w", model.ErrCodeAllocation),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodeCodeAllocationFailed,
			expectService:  true,
		},
		{
			name:           "Store failure",
			requestBody:    validBody,
			mockError:      errors.New("failed to create order: connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodeInternalError,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			pub := new(MockPublisher)
			h := NewOrderHandler(svc, new(MockCommissionEngine), pub, nil, zerolog.Nop())

			if tt.expectService {
				svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
					return in.CustomerID == "cust-1" && len(in.Request.Items) == 1
				})).Return(tt.mockReturn, tt.mockError)
			}
			if tt.mockReturn != nil {
				pub.On("Publish", mock.Anything, eventOfType(notify.EventOrderCreated)).Return(nil)
			}

			w := serve(newOrderRouter(h), http.MethodPost, "/api/orders", tt.requestBody, customer("cust-1"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				resp := decodeError(t, w)
				assert.Equal(t, tt.expectedCode, resp.Error)
				assert.NotContains(t, resp.Message, "connection reset")
			} else {
				var got model.CreateOrderResult
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, *result, got)
			}

			if tt.expectService {
				svc.AssertExpectations(t)
			} else {
				svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
			}
			pub.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Create_ReferralCookies(t *testing.T) {
	affiliateID := uuid.New()
	linkID := uuid.New()

	tests := []struct {
		name          string
		cookies       []*http.Cookie
		wantAffiliate *uuid.UUID
		wantLink      *uuid.UUID
	}{
		{name: "No cookies"},
		{
			name:          "Both cookies",
			cookies:       []*http.Cookie{{Name: CookieAffiliateID, Value: affiliateID.String()}, {Name: CookieLinkID, Value: linkID.String()}},
			wantAffiliate: &affiliateID,
			wantLink:      &linkID,
		},
		{
			name:     "Malformed affiliate cookie ignored",
			cookies:  []*http.Cookie{{Name: CookieAffiliateID, Value: "abc"}, {Name: CookieLinkID, Value: linkID.String()}},
			wantLink: &linkID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			h := NewOrderHandler(svc, new(MockCommissionEngine), notify.Nop{}, nil, zerolog.Nop())

			svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in model.CreateOrderInput) bool {
				return assert.ObjectsAreEqual(tt.wantAffiliate, in.Referral.AffiliateID) &&
					assert.ObjectsAreEqual(tt.wantLink, in.Referral.AffiliateLinkID)
			})).Return(&model.CreateOrderResult{OrderID: uuid.New(), OrderCode: "2603140002"}, nil)

			body := &model.OrderRequest{Items: []model.OrderItemRequest{{ProductID: "P001", Quantity: 5}}}
			w := serve(newOrderRouter(h), http.MethodPost, "/api/orders", body, customer("cust-1"), tt.cookies...)

			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Create_PublishFailureIsSoft(t *testing.T) {
	svc := new(MockOrderService)
	pub := new(MockPublisher)
	m := metrics.New()
	h := NewOrderHandler(svc, new(MockCommissionEngine), pub, m, zerolog.Nop())

	svc.On("CreateOrder", mock.Anything, mock.Anything).Return(&model.CreateOrderResult{OrderID: uuid.New(), OrderCode: "2603140003"}, nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	body := &model.OrderRequest{Items: []model.OrderItemRequest{{ProductID: "P001", Quantity: 5}}}
	w := serve(newOrderRouter(h), http.MethodPost, "/api/orders", body, customer("cust-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublishFailed.WithLabelValues(string(notify.EventOrderCreated))))
}

func TestOrderHandler_GetByID(t *testing.T) {
	orderID := uuid.New()
	order := &model.OrderResponse{
		Order: model.Order{ID: orderID, OrderCode: "2603140001", CustomerID: "cust-1", Status: model.OrderStatusPendingPayment},
		Items: []model.OrderItem{{ProductID: "P001", Quantity: 5, PriceAtPurchase: 100000}},
	}

	tests := []struct {
		name           string
		path           string
		principal      *auth.Principal
		mockReturn     *model.OrderResponse
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{name: "Owner", path: "/api/orders/" + orderID.String(), principal: customer("cust-1"), mockReturn: order, expectedStatus: http.StatusOK, expectService: true},
		{name: "Admin", path: "/api/orders/" + orderID.String(), principal: admin(), mockReturn: order, expectedStatus: http.StatusOK, expectService: true},
		{name: "Other customer", path: "/api/orders/" + orderID.String(), principal: customer("cust-2"), mockReturn: order, expectedStatus: http.StatusForbidden, expectService: true},
		{name: "Not found", path: "/api/orders/" + orderID.String(), principal: customer("cust-1"), expectedStatus: http.StatusNotFound, expectService: true},
		{name: "Store failure", path: "/api/orders/" + orderID.String(), principal: admin(), mockError: errors.New("timeout"), expectedStatus: http.StatusInternalServerError, expectService: true},
		{name: "Malformed id", path: "/api/orders/not-a-uuid", principal: admin(), expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			h := NewOrderHandler(svc, new(MockCommissionEngine), notify.Nop{}, nil, zerolog.Nop())

			if tt.expectService {
				svc.On("GetByID", mock.Anything, orderID).Return(tt.mockReturn, tt.mockError)
			}

			w := serve(newOrderRouter(h), http.MethodGet, tt.path, nil, tt.principal)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var got model.OrderResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, "2603140001", got.Order.OrderCode)
				assert.Len(t, got.Items, 1)
			}
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	orderID := uuid.New()
	commissionErr := "deadlock detected"

	tests := []struct {
		name           string
		body           interface{}
		mockReturn     *model.UpdateOrderStatusResponse
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Verified",
			body:           map[string]string{"status": "verified"},
			mockReturn:     &model.UpdateOrderStatusResponse{Order: model.Order{ID: orderID, Status: model.OrderStatusVerified}},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Commission failure reported alongside",
			body:           map[string]string{"status": "verified"},
			mockReturn:     &model.UpdateOrderStatusResponse{Order: model.Order{ID: orderID, Status: model.OrderStatusVerified}, CommissionError: &commissionErr},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{name: "Missing status", body: map[string]string{}, expectedStatus: http.StatusBadRequest},
		{
			name:           "Invalid transition",
			body:           map[string]string{"status": "completed"},
			mockError:      model.ErrInvalidTransition,
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Concurrent change",
			body:           map[string]string{"status": "cancelled"},
			mockError:      model.ErrStatusConflict,
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Unknown order",
			body:           map[string]string{"status": "verified"},
			mockError:      model.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			h := NewOrderHandler(svc, new(MockCommissionEngine), notify.Nop{}, nil, zerolog.Nop())

			if tt.expectService {
				svc.On("UpdateStatus", mock.Anything, orderID, mock.AnythingOfType("model.OrderStatus")).Return(tt.mockReturn, tt.mockError)
			}

			w := serve(newOrderRouter(h), http.MethodPut, "/api/orders/"+orderID.String()+"/status", tt.body, admin())

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.mockReturn != nil && tt.mockReturn.CommissionError != nil {
				assert.Contains(t, w.Body.String(), `"commissionError":"deadlock detected"`)
			}
			if !tt.expectService {
				svc.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderHandler_Attribute(t *testing.T) {
	orderID := uuid.New()
	rate, amount := int64(10800), int64(162000)

	tests := []struct {
		name           string
		mockReturn     *model.CommissionResult
		mockError      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Applied",
			mockReturn:     &model.CommissionResult{OrderID: orderID, Applied: true, Snapshot: &model.CommissionSnapshot{Rate: rate, Amount: amount}},
			expectedStatus: http.StatusOK,
			expectedBody:   `"commissionAmount":162000`,
		},
		{
			name:           "Already calculated",
			mockReturn:     &model.CommissionResult{OrderID: orderID, Reason: "already_calculated", Snapshot: &model.CommissionSnapshot{Rate: rate, Amount: amount}},
			expectedStatus: http.StatusOK,
			expectedBody:   `"applied":false`,
		},
		{
			name:           "No affiliate",
			mockReturn:     &model.CommissionResult{OrderID: orderID, Reason: "no_affiliate"},
			expectedStatus: http.StatusOK,
			expectedBody:   `"reason":"no_affiliate"`,
		},
		{name: "Not eligible", mockError: model.ErrOrderNotEligible, expectedStatus: http.StatusConflict},
		{name: "Store failure", mockError: errors.New("deadlock"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockCommissionEngine)
			h := NewOrderHandler(new(MockOrderService), engine, notify.Nop{}, nil, zerolog.Nop())

			engine.On("Attribute", mock.Anything, orderID).Return(tt.mockReturn, tt.mockError)

			w := serve(newOrderRouter(h), http.MethodPost, "/api/orders/"+orderID.String()+"/commission", nil, admin())

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
		})
	}
}
