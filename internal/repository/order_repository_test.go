package repository

import (
	"context"
	"testing"
	"time"

	"order-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsFor(orderID uuid.UUID, lines ...model.OrderItem) []model.OrderItem {
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].OrderID = orderID
	}
	return lines
}

func TestOrderRepository_CreateOrderWithItems(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	seedProduct(t, pool, "P001", 100000)
	seedProduct(t, pool, "P002", 100000)

	order := newTestOrder("2603140001", "customer-1", 1580000)
	items := itemsFor(order.ID,
		model.OrderItem{ProductID: "P001", Quantity: 5, PriceAtPurchase: 100000},
		model.OrderItem{ProductID: "P002", Quantity: 12, PriceAtPurchase: 90000},
	)

	require.NoError(t, repo.CreateOrderWithItems(ctx, order, items))

	stored, storedItems, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "2603140001", stored.OrderCode)
	assert.Equal(t, int64(1580000), stored.TotalAmount)
	assert.Equal(t, model.OrderStatusPendingPayment, stored.Status)
	assert.Nil(t, stored.CommissionCalculatedAt)
	require.Len(t, storedItems, 2)
	assert.Equal(t, int64(90000), storedItems[1].PriceAtPurchase)
}

func TestOrderRepository_CreateOrderWithItems_RollsBack(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	seedProduct(t, pool, "P001", 100000)

	order := newTestOrder("2603140002", "customer-1", 500000)
	items := itemsFor(order.ID,
		model.OrderItem{ProductID: "P001", Quantity: 5, PriceAtPurchase: 100000},
		model.OrderItem{ProductID: "UNKNOWN", Quantity: 5, PriceAtPurchase: 100000},
	)

	err := repo.CreateOrderWithItems(ctx, order, items)
	require.Error(t, err)

	stored, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "order must not survive a failed item insert")
}

func TestOrderRepository_DuplicateCode(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("2603140003", "customer-1", 100)))

	err := repo.CreateOrder(ctx, newTestOrder("2603140003", "customer-2", 100))
	assert.ErrorIs(t, err, model.ErrDuplicateOrderCode)

	err = repo.CreateOrderWithItems(ctx, newTestOrder("2603140003", "customer-2", 100), nil)
	assert.ErrorIs(t, err, model.ErrDuplicateOrderCode)

	exists, err := repo.CodeExists(ctx, "2603140003")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CodeExists(ctx, "2603149999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOrderRepository_SagaSteps(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	seedProduct(t, pool, "P001", 100000)

	order := newTestOrder("2603140004", "customer-1", 500000)
	require.NoError(t, repo.CreateOrder(ctx, order))

	err := repo.CreateOrderItems(ctx, itemsFor(order.ID,
		model.OrderItem{ProductID: "UNKNOWN", Quantity: 5, PriceAtPurchase: 100000},
	))
	require.Error(t, err)

	require.NoError(t, repo.DeleteOrder(ctx, order.ID))

	stored, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestOrderRepository_CountRecentByCustomer(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	old := newTestOrder("2603140005", "customer-1", 100)
	old.CreatedAt = time.Now().UTC().Add(-2 * time.Minute)
	require.NoError(t, repo.CreateOrder(ctx, old))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("2603140006", "customer-1", 100)))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("2603140007", "customer-1", 100)))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("2603140008", "customer-2", 100)))

	count, err := repo.CountRecentByCustomer(ctx, "customer-1", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder("2603140009", "customer-1", 100)
	require.NoError(t, repo.CreateOrder(ctx, order))

	changed, err := repo.UpdateStatus(ctx, order.ID, model.OrderStatusPendingPayment, model.OrderStatusVerified, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(ctx, order.ID, model.OrderStatusPendingPayment, model.OrderStatusCancelled, time.Now())
	require.NoError(t, err)
	assert.False(t, changed, "stale from status must not apply")

	stored, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusVerified, stored.Status)
}

func TestOrderRepository_ApplyCommission(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	affiliate := seedAffiliate(t, pool, 10800, 0)

	order := newTestOrder("2603140010", "customer-1", 1500000)
	order.AffiliateID = &affiliate.ID
	require.NoError(t, repo.CreateOrder(ctx, order))

	snapshot := model.CommissionSnapshot{Rate: 10800, Amount: 162000, CalculatedAt: time.Now().UTC()}

	applied, err := repo.ApplyCommission(ctx, order.ID, snapshot)
	require.NoError(t, err)
	assert.False(t, applied, "pending orders are not eligible")

	_, err = repo.UpdateStatus(ctx, order.ID, model.OrderStatusPendingPayment, model.OrderStatusVerified, time.Now())
	require.NoError(t, err)

	applied, err = repo.ApplyCommission(ctx, order.ID, snapshot)
	require.NoError(t, err)
	assert.True(t, applied)

	second := model.CommissionSnapshot{Rate: 1, Amount: 1, CalculatedAt: time.Now().UTC()}
	applied, err = repo.ApplyCommission(ctx, order.ID, second)
	require.NoError(t, err)
	assert.False(t, applied, "snapshot is written at most once")

	stored, _, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CommissionAmount)
	assert.Equal(t, int64(162000), *stored.CommissionAmount)
	assert.Equal(t, int64(10800), *stored.CommissionRate)
	assert.Equal(t, int64(1500000), stored.TotalAmount)
}

func TestOrderRepository_ApplyCommission_Concurrent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()

	affiliate := seedAffiliate(t, pool, 100, 0)
	order := newTestOrder("2603140011", "customer-1", 100)
	order.AffiliateID = &affiliate.ID
	order.Status = model.OrderStatusVerified
	require.NoError(t, repo.CreateOrder(ctx, order))

	const n = 10
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			applied, err := repo.ApplyCommission(ctx, order.ID, model.CommissionSnapshot{
				Rate: int64(i + 1), Amount: int64(i + 1), CalculatedAt: time.Now().UTC(),
			})
			assert.NoError(t, err)
			results <- applied
		}(i)
	}

	appliedCount := 0
	for i := 0; i < n; i++ {
		if <-results {
			appliedCount++
		}
	}
	assert.Equal(t, 1, appliedCount)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewOrderRepository(pool, zerolog.Nop())

	order, items, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Nil(t, items)
}
