// Command seed applies the schema and loads a demo catalog, affiliate and link.
// It is safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"order-ledger/internal/config"
	"order-ledger/internal/database"
	"order-ledger/internal/model"
	"order-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	demoAffiliateID = uuid.MustParse("6f1c2b1e-6a55-4f0e-9d1a-3c8f5b0e7a01")
	demoLinkID      = uuid.MustParse("0b7d9e44-2f3a-4c61-8e5b-91d2a7c4f302")
)

var catalog = []model.Product{
	{ID: "P001", Name: "Arabica Beans 1kg (carton)", Price: 100000, Active: true},
	{ID: "P002", Name: "Robusta Beans 1kg (carton)", Price: 100000, Active: true},
	{ID: "P003", Name: "Palm Sugar 500g (carton)", Price: 60000, Active: true},
	{ID: "P004", Name: "Discontinued Blend (carton)", Price: 80000, Active: false},
}

// Explicit tiers override the schedule for P003.
var tiers = map[string][]model.PriceTier{
	"P003": {
		{MinQuantity: 5, UnitPrice: 58000},
		{MinQuantity: 20, UnitPrice: 52000},
	},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	logger := config.NewLogger(config.LoggerConfig{Level: "info", Format: "console"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, dbCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	products := repository.NewProductRepository(pool, logger)
	affiliates := repository.NewAffiliateRepository(pool, logger)

	if err := seedCatalog(ctx, products); err != nil {
		return err
	}
	if err := seedAffiliate(ctx, affiliates, logger); err != nil {
		return err
	}

	logger.Info().
		Int("products", len(catalog)).
		Str("affiliate_id", demoAffiliateID.String()).
		Str("link_id", demoLinkID.String()).
		Msg("seed complete")

	return nil
}

func seedCatalog(ctx context.Context, products repository.ProductRepository) error {
	now := time.Now().UTC()
	for i := range catalog {
		p := catalog[i]
		p.CreatedAt = now
		if err := products.Upsert(ctx, &p); err != nil {
			return err
		}
		if err := products.ReplaceTiers(ctx, p.ID, tiers[p.ID]); err != nil {
			return err
		}
	}
	return nil
}

func seedAffiliate(ctx context.Context, affiliates repository.AffiliateRepository, logger zerolog.Logger) error {
	now := time.Now().UTC()

	existing, err := affiliates.GetByID(ctx, demoAffiliateID)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := affiliates.Create(ctx, &model.Affiliate{
			ID:             demoAffiliateID,
			Code:           "DEMO",
			Name:           "Demo Reseller",
			Status:         model.AffiliateStatusActive,
			CommissionRate: 10800,
			MinWithdrawal:  50000,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
	} else {
		logger.Info().Str("affiliate_id", demoAffiliateID.String()).Msg("demo affiliate already present")
	}

	link, err := affiliates.GetLinkByID(ctx, demoLinkID)
	if err != nil {
		return err
	}
	if link != nil {
		return nil
	}

	return affiliates.CreateLink(ctx, &model.AffiliateLink{
		ID:          demoLinkID,
		AffiliateID: demoAffiliateID,
		Slug:        "demo-launch",
		Campaign:    "launch",
		Active:      true,
		CreatedAt:   now,
	})
}
