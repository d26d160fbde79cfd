package service

import (
	"context"
	"errors"
	"testing"

	"order-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAttributionValidator_Validate(t *testing.T) {
	ctx := context.Background()

	active := &model.Affiliate{ID: uuid.New(), Status: model.AffiliateStatusActive}
	inactive := &model.Affiliate{ID: uuid.New(), Status: model.AffiliateStatusInactive}
	other := &model.Affiliate{ID: uuid.New(), Status: model.AffiliateStatusActive}

	ownLink := &model.AffiliateLink{ID: uuid.New(), AffiliateID: active.ID, Active: true}
	foreignLink := &model.AffiliateLink{ID: uuid.New(), AffiliateID: other.ID, Active: true}
	dormantLink := &model.AffiliateLink{ID: uuid.New(), AffiliateID: active.ID, Active: false}
	inactiveOwnerLink := &model.AffiliateLink{ID: uuid.New(), AffiliateID: inactive.ID, Active: true}

	unknown := uuid.New()
	broken := uuid.New()

	affiliates := map[uuid.UUID]*model.Affiliate{active.ID: active, inactive.ID: inactive, other.ID: other}
	links := map[uuid.UUID]*model.AffiliateLink{
		ownLink.ID: ownLink, foreignLink.ID: foreignLink, dormantLink.ID: dormantLink, inactiveOwnerLink.ID: inactiveOwnerLink,
	}

	newRepo := func() *MockAffiliateRepository {
		repo := new(MockAffiliateRepository)
		for id, a := range affiliates {
			repo.On("GetByID", mock.Anything, id).Return(a, nil)
		}
		for id, l := range links {
			repo.On("GetLinkByID", mock.Anything, id).Return(l, nil)
		}
		repo.On("GetByID", mock.Anything, unknown).Return(nil, nil)
		repo.On("GetLinkByID", mock.Anything, unknown).Return(nil, nil)
		repo.On("GetByID", mock.Anything, broken).Return(nil, errors.New("timeout"))
		repo.On("GetLinkByID", mock.Anything, broken).Return(nil, errors.New("timeout"))
		return repo
	}

	ptr := func(id uuid.UUID) *uuid.UUID { return &id }

	tests := []struct {
		name          string
		in            model.Referral
		wantAffiliate *uuid.UUID
		wantLink      *uuid.UUID
	}{
		{name: "No hints", in: model.Referral{}},
		{name: "Active affiliate", in: model.Referral{AffiliateID: ptr(active.ID)}, wantAffiliate: ptr(active.ID)},
		{name: "Inactive affiliate", in: model.Referral{AffiliateID: ptr(inactive.ID)}},
		{name: "Unknown affiliate", in: model.Referral{AffiliateID: ptr(unknown)}},
		{name: "Affiliate lookup error", in: model.Referral{AffiliateID: ptr(broken)}},
		{
			name:          "Affiliate with own link",
			in:            model.Referral{AffiliateID: ptr(active.ID), AffiliateLinkID: ptr(ownLink.ID)},
			wantAffiliate: ptr(active.ID),
			wantLink:      ptr(ownLink.ID),
		},
		{
			name:          "Affiliate with foreign link",
			in:            model.Referral{AffiliateID: ptr(active.ID), AffiliateLinkID: ptr(foreignLink.ID)},
			wantAffiliate: ptr(active.ID),
		},
		{
			name:          "Affiliate with dormant link",
			in:            model.Referral{AffiliateID: ptr(active.ID), AffiliateLinkID: ptr(dormantLink.ID)},
			wantAffiliate: ptr(active.ID),
		},
		{
			name:          "Affiliate with broken link lookup",
			in:            model.Referral{AffiliateID: ptr(active.ID), AffiliateLinkID: ptr(broken)},
			wantAffiliate: ptr(active.ID),
		},
		{
			name:          "Link alone supplies owner",
			in:            model.Referral{AffiliateLinkID: ptr(ownLink.ID)},
			wantAffiliate: ptr(active.ID),
			wantLink:      ptr(ownLink.ID),
		},
		{name: "Link alone with inactive owner", in: model.Referral{AffiliateLinkID: ptr(inactiveOwnerLink.ID)}},
		{name: "Unknown link alone", in: model.Referral{AffiliateLinkID: ptr(unknown)}},
		{
			name:          "Unknown affiliate keeps valid link",
			in:            model.Referral{AffiliateID: ptr(unknown), AffiliateLinkID: ptr(ownLink.ID)},
			wantAffiliate: ptr(active.ID),
			wantLink:      ptr(ownLink.ID),
		},
		{
			name:          "Inactive affiliate keeps link of active owner",
			in:            model.Referral{AffiliateID: ptr(inactive.ID), AffiliateLinkID: ptr(foreignLink.ID)},
			wantAffiliate: ptr(other.ID),
			wantLink:      ptr(foreignLink.ID),
		},
		{
			name: "Inactive affiliate with link of inactive owner",
			in:   model.Referral{AffiliateID: ptr(inactive.ID), AffiliateLinkID: ptr(inactiveOwnerLink.ID)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewAttributionValidator(newRepo(), zerolog.Nop())

			got := v.Validate(ctx, tt.in)

			assert.Equal(t, tt.wantAffiliate, got.AffiliateID)
			assert.Equal(t, tt.wantLink, got.AffiliateLinkID)
		})
	}
}
