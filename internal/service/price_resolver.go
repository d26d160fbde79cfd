package service

import (
	"context"
	"fmt"
	"math"

	"order-ledger/internal/model"
	"order-ledger/internal/pricing"
	"order-ledger/internal/repository"

	"github.com/rs/zerolog"
)

// priceResolver implements PriceResolver on top of the product catalogue.
type priceResolver struct {
	productRepo repository.ProductRepository
	schedule    pricing.Schedule
	maxTotal    int64
	logger      zerolog.Logger
}

// NewPriceResolver creates a price resolver using schedule for products without explicit tiers.
func NewPriceResolver(
	productRepo repository.ProductRepository,
	schedule pricing.Schedule,
	maxTotal int64,
	logger zerolog.Logger,
) PriceResolver {
	return &priceResolver{
		productRepo: productRepo,
		schedule:    schedule,
		maxTotal:    maxTotal,
		logger:      logger.With().Str("service", "pricing").Logger(),
	}
}

func (r *priceResolver) Resolve(ctx context.Context, items []model.OrderItemRequest) ([]model.ResolvedPrice, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := r.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("product_count", len(ids)).Msg("failed to load products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.Active {
			r.logger.Warn().
				Str("product_id", id).
				Bool("found", ok).
				Msg("product unknown or inactive")
			return nil, model.ErrProductInvalid
		}
	}

	tiers, err := r.productRepo.GetTiers(ctx, ids)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to load price tiers")
		return nil, fmt.Errorf("failed to load price tiers: %w", err)
	}

	prices := make([]model.ResolvedPrice, len(items))
	for i, item := range items {
		p := byID[item.ProductID]
		prices[i] = model.ResolvedPrice{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: pricing.ProductUnitPrice(p.Price, item.Quantity, tiers[item.ProductID], r.schedule),
			Active:    p.Active,
		}
	}

	return prices, nil
}

func (r *priceResolver) Quote(ctx context.Context, req *model.QuoteRequest) (*model.QuoteResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, model.ErrEmptyItems
	}
	if err := checkItems(req.Items, 1); err != nil {
		return nil, err
	}

	prices, err := r.Resolve(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	total, err := orderTotal(prices, r.maxTotal)
	if err != nil {
		return nil, err
	}

	lines := make([]model.QuoteLine, len(prices))
	for i, p := range prices {
		lines[i] = model.QuoteLine{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			UnitPrice: p.UnitPrice,
			LineTotal: p.UnitPrice * int64(p.Quantity),
		}
	}

	return &model.QuoteResponse{Items: lines, Total: total}, nil
}

// checkItems validates product ids, duplicates and the quantity range in that order.
// Quantities are capped at the INTEGER column range.
func checkItems(items []model.OrderItemRequest, minQuantity int) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			return model.ErrMissingProductID
		}
		if _, dup := seen[item.ProductID]; dup {
			return model.ErrDuplicateProduct
		}
		seen[item.ProductID] = struct{}{}
	}

	for _, item := range items {
		if item.Quantity < minQuantity || item.Quantity > math.MaxInt32 {
			return model.ErrInvalidQuantity
		}
	}

	return nil
}

// orderTotal sums unit price times quantity, rejecting totals that are not
// positive or exceed maxTotal. Every step is checked before multiplying so
// nothing overflows int64.
func orderTotal(prices []model.ResolvedPrice, maxTotal int64) (int64, error) {
	var total int64
	for _, p := range prices {
		if p.UnitPrice < 0 || p.Quantity <= 0 {
			return 0, model.ErrInvalidTotal
		}
		if p.UnitPrice > 0 && int64(p.Quantity) > maxTotal/p.UnitPrice {
			return 0, model.ErrInvalidTotal
		}
		line := p.UnitPrice * int64(p.Quantity)
		if line > maxTotal-total {
			return 0, model.ErrInvalidTotal
		}
		total += line
	}

	if total <= 0 {
		return 0, model.ErrInvalidTotal
	}

	return total, nil
}
