package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment  OrderStatus = "pending_payment"
	OrderStatusPaymentUploaded OrderStatus = "payment_uploaded"
	OrderStatusVerified        OrderStatus = "verified"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment:  {OrderStatusPaymentUploaded, OrderStatusVerified, OrderStatusCancelled},
	OrderStatusPaymentUploaded: {OrderStatusVerified, OrderStatusPendingPayment, OrderStatusCancelled},
	OrderStatusVerified:        {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:         {OrderStatusCompleted},
}

// EligibleOrderStatuses are the statuses that allow commission attribution
// and count towards an affiliate's confirmed commission.
var EligibleOrderStatuses = []OrderStatus{
	OrderStatusVerified,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusPaymentUploaded, OrderStatusVerified,
		OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Eligible reports whether s permits commission attribution.
func (s OrderStatus) Eligible() bool {
	for _, e := range EligibleOrderStatuses {
		if s == e {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order represents a customer order. TotalAmount and the commission fields are minor currency units.
type Order struct {
	ID                     uuid.UUID   `json:"id" db:"id"`
	OrderCode              string      `json:"orderCode" db:"order_code"`
	CustomerID             string      `json:"customerId" db:"customer_id"`
	Status                 OrderStatus `json:"status" db:"status"`
	TotalAmount            int64       `json:"totalAmount" db:"total_amount"`
	ShippingAddress        *string     `json:"shippingAddress,omitempty" db:"shipping_address"`
	Phone                  *string     `json:"phone,omitempty" db:"phone"`
	Notes                  *string     `json:"notes,omitempty" db:"notes"`
	AffiliateID            *uuid.UUID  `json:"affiliateId,omitempty" db:"affiliate_id"`
	AffiliateLinkID        *uuid.UUID  `json:"affiliateLinkId,omitempty" db:"affiliate_link_id"`
	CommissionRate         *int64      `json:"commissionRate,omitempty" db:"commission_rate"`
	CommissionAmount       *int64      `json:"commissionAmount,omitempty" db:"commission_amount"`
	CommissionCalculatedAt *time.Time  `json:"commissionCalculatedAt,omitempty" db:"commission_calculated_at"`
	CreatedAt              time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID              uuid.UUID `json:"-" db:"id"`
	OrderID         uuid.UUID `json:"-" db:"order_id"`
	ProductID       string    `json:"productId" db:"product_id"`
	Quantity        int       `json:"quantity" db:"quantity"`
	PriceAtPurchase int64     `json:"priceAtPurchase" db:"price_at_purchase"`
}

// Cartons returns the total quantity over items.
func Cartons(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity)
	}
	return total
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress *string            `json:"shipping_address,omitempty"`
	Phone           *string            `json:"phone,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Referral carries the optional attribution hints captured by click tracking.
type Referral struct {
	AffiliateID     *uuid.UUID
	AffiliateLinkID *uuid.UUID
}

// CreateOrderInput is everything the intake needs: who orders, what, and where it came from.
type CreateOrderInput struct {
	CustomerID string
	Request    *OrderRequest
	Referral   Referral
}

// CreateOrderResult is returned by a successful intake.
type CreateOrderResult struct {
	OrderID   uuid.UUID `json:"orderId"`
	OrderCode string    `json:"orderCode"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// UpdateOrderStatusRequest is the admin payload for an order status change.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
}

// UpdateOrderStatusResponse reports the new order state and any commission side-channel failure.
type UpdateOrderStatusResponse struct {
	Order           Order   `json:"order"`
	CommissionError *string `json:"commissionError,omitempty"`
}

// CommissionSnapshot is the immutable commission record embedded in an order.
type CommissionSnapshot struct {
	Rate         int64     `json:"commissionRate"`
	Amount       int64     `json:"commissionAmount"`
	CalculatedAt time.Time `json:"commissionCalculatedAt"`
}

// CommissionResult reports the outcome of an attribution call.
type CommissionResult struct {
	OrderID  uuid.UUID           `json:"orderId"`
	Applied  bool                `json:"applied"`
	Reason   string              `json:"reason,omitempty"`
	Snapshot *CommissionSnapshot `json:"snapshot,omitempty"`
}
