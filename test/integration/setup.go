package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"order-ledger/internal/auth"
	"order-ledger/internal/database"
	"order-ledger/internal/handler"
	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/notify"
	"order-ledger/internal/ordercode"
	"order-ledger/internal/pricing"
	"order-ledger/internal/repository"
	"order-ledger/internal/router"
	"order-ledger/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testSecret       = "integration-secret"
	testFallbackRate = 10000
	testMinQuantity  = 5
	testMaxTotal     = 100_000_000_000
	testRateLimit    = 3
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container and applies the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.NewPoolFromURL(ctx, connStr, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedProducts inserts the base catalog: two active products at 100000 and one inactive.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	repo := repository.NewProductRepository(pool, zerolog.Nop())
	now := time.Now().UTC()

	for _, p := range []model.Product{
		{ID: "P001", Name: "Arabica carton", Price: 100000, Active: true, CreatedAt: now},
		{ID: "P002", Name: "Robusta carton", Price: 100000, Active: true, CreatedAt: now},
		{ID: "P009", Name: "Retired carton", Price: 100000, Active: false, CreatedAt: now},
	} {
		if err := repo.Upsert(context.Background(), &p); err != nil {
			t.Fatalf("failed to seed product %s: %v", p.ID, err)
		}
	}
}

// SeedAffiliate creates an active affiliate with one active link and returns both ids.
func SeedAffiliate(t *testing.T, pool *pgxpool.Pool, rate, minWithdrawal int64) (uuid.UUID, uuid.UUID) {
	t.Helper()

	repo := repository.NewAffiliateRepository(pool, zerolog.Nop())
	ctx := context.Background()
	now := time.Now().UTC()

	affiliate := &model.Affiliate{
		ID:             uuid.New(),
		Code:           "AFF-" + uuid.NewString()[:8],
		Name:           "Integration Reseller",
		Status:         model.AffiliateStatusActive,
		CommissionRate: rate,
		MinWithdrawal:  minWithdrawal,
		CreatedAt:      now,
	}
	if err := repo.Create(ctx, affiliate); err != nil {
		t.Fatalf("failed to seed affiliate: %v", err)
	}

	link := &model.AffiliateLink{
		ID:          uuid.New(),
		AffiliateID: affiliate.ID,
		Slug:        "link-" + uuid.NewString()[:8],
		Campaign:    "integration",
		Active:      true,
		CreatedAt:   now,
	}
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("failed to seed affiliate link: %v", err)
	}

	return affiliate.ID, link.ID
}

// CleanupDB removes all rows from every table.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE withdrawals, order_items, orders, affiliate_links, affiliates,
			product_price_tiers, products, order_code_counters
		CASCADE`)
	if err != nil {
		t.Fatalf("failed to cleanup database: %v", err)
	}
}

// CountOrders returns the number of order rows.
func CountOrders(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var n int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	return n
}

// Stack wires the production services against the test database.
type Stack struct {
	Router  http.Handler
	Orders  service.OrderService
	Metrics *metrics.Metrics
}

// NewStack builds the full router the way the API server does.
func NewStack(t *testing.T, pool *pgxpool.Pool, atomicWrites bool) *Stack {
	t.Helper()

	logger := zerolog.Nop()
	m := metrics.New()

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	affiliateRepo := repository.NewAffiliateRepository(pool, logger)
	withdrawalRepo := repository.NewWithdrawalRepository(pool, logger)

	codes := ordercode.NewAllocator(repository.NewOrderCodeCounter(pool), orderRepo, 10, time.UTC, logger,
		ordercode.WithMetrics(m))

	prices := service.NewPriceResolver(productRepo, pricing.DefaultSchedule(), testMaxTotal, logger)
	limiter := service.NewRateLimiter(orderRepo, testRateLimit, time.Minute, logger)
	attribution := service.NewAttributionValidator(affiliateRepo, logger)
	commission := service.NewCommissionEngine(orderRepo, affiliateRepo, testFallbackRate, m, logger)
	orders := service.NewOrderService(orderRepo, prices, limiter, attribution, codes, commission,
		service.OrderSettings{
			MinQuantity:  testMinQuantity,
			MaxTotal:     testMaxTotal,
			AtomicWrites: atomicWrites,
		}, m, logger)
	withdrawals := service.NewWithdrawalService(withdrawalRepo, affiliateRepo, m, logger)

	handlers := router.Handlers{
		Health:     handler.NewHealthHandler(pool, logger),
		Orders:     handler.NewOrderHandler(orders, commission, notify.Nop{}, m, logger),
		Prices:     handler.NewPriceHandler(prices, logger),
		Withdrawal: handler.NewWithdrawalHandler(withdrawals, notify.Nop{}, m, logger),
	}

	return &Stack{
		Router:  router.New(handlers, auth.NewJWTVerifier(testSecret), nil, m, logger),
		Orders:  orders,
		Metrics: m,
	}
}

// Token signs a bearer token for the given principal.
func Token(t *testing.T, subject string, role auth.Role, affiliateID *uuid.UUID) string {
	t.Helper()

	claims := auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if affiliateID != nil {
		claims.AffiliateID = affiliateID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}
