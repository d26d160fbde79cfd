package service

import (
	"context"

	"order-ledger/internal/model"
	"order-ledger/internal/repository"

	"github.com/rs/zerolog"
)

// attributionValidator resolves referral hints against the affiliate store.
type attributionValidator struct {
	affiliateRepo repository.AffiliateRepository
	logger        zerolog.Logger
}

// NewAttributionValidator creates an attribution validator.
func NewAttributionValidator(affiliateRepo repository.AffiliateRepository, logger zerolog.Logger) AttributionValidator {
	return &attributionValidator{
		affiliateRepo: affiliateRepo,
		logger:        logger.With().Str("component", "attribution").Logger(),
	}
}

// Validate keeps an affiliate only if it exists and is active, and a link only
// if it exists, is active and belongs to the surviving affiliate. A link
// without an affiliate hint supplies its owner.
func (v *attributionValidator) Validate(ctx context.Context, ref model.Referral) model.Referral {
	var out model.Referral

	if ref.AffiliateID != nil {
		affiliate, err := v.affiliateRepo.GetByID(ctx, *ref.AffiliateID)
		switch {
		case err != nil:
			v.logger.Warn().Err(err).Str("affiliate_id", ref.AffiliateID.String()).Msg("dropping affiliate hint after lookup failure")
		case !affiliate.Active():
			v.logger.Debug().Str("affiliate_id", ref.AffiliateID.String()).Msg("dropping unknown or inactive affiliate")
		default:
			id := affiliate.ID
			out.AffiliateID = &id
		}
	}

	if ref.AffiliateLinkID == nil {
		return out
	}

	link, err := v.affiliateRepo.GetLinkByID(ctx, *ref.AffiliateLinkID)
	switch {
	case err != nil:
		v.logger.Warn().Err(err).Str("link_id", ref.AffiliateLinkID.String()).Msg("dropping link hint after lookup failure")
		return out
	case link == nil || !link.Active:
		v.logger.Debug().Str("link_id", ref.AffiliateLinkID.String()).Msg("dropping unknown or inactive link")
		return out
	}

	if out.AffiliateID != nil {
		if link.AffiliateID != *out.AffiliateID {
			v.logger.Debug().
				Str("link_id", link.ID.String()).
				Str("affiliate_id", out.AffiliateID.String()).
				Msg("dropping link owned by another affiliate")
			return out
		}
		linkID := link.ID
		out.AffiliateLinkID = &linkID
		return out
	}

	// No affiliate survived: the link's owner is the affiliate.
	owner, err := v.affiliateRepo.GetByID(ctx, link.AffiliateID)
	if err != nil {
		v.logger.Warn().Err(err).Str("affiliate_id", link.AffiliateID.String()).Msg("dropping link after owner lookup failure")
		return out
	}
	if !owner.Active() {
		v.logger.Debug().Str("affiliate_id", link.AffiliateID.String()).Msg("dropping link of inactive affiliate")
		return out
	}

	ownerID, linkID := owner.ID, link.ID
	out.AffiliateID = &ownerID
	out.AffiliateLinkID = &linkID
	return out
}
