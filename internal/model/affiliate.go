package model

import (
	"time"

	"github.com/google/uuid"
)

// AffiliateStatus is the administrative status of an affiliate.
type AffiliateStatus string

const (
	AffiliateStatusActive   AffiliateStatus = "active"
	AffiliateStatusInactive AffiliateStatus = "inactive"
)

// Affiliate is a referrer earning CommissionRate minor units per carton.
type Affiliate struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Code           string          `json:"code" db:"code"`
	Name           string          `json:"name" db:"name"`
	Status         AffiliateStatus `json:"status" db:"status"`
	CommissionRate int64           `json:"commissionRate" db:"commission_rate"`
	MinWithdrawal  int64           `json:"minWithdrawal" db:"min_withdrawal"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// Active reports whether the affiliate can receive new attribution and withdrawals.
func (a *Affiliate) Active() bool {
	return a != nil && a.Status == AffiliateStatusActive
}

// AffiliateLink is a campaign link owned by an affiliate.
type AffiliateLink struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AffiliateID uuid.UUID `json:"affiliateId" db:"affiliate_id"`
	Slug        string    `json:"slug" db:"slug"`
	Campaign    string    `json:"campaign" db:"campaign"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
