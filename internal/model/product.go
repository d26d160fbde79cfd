package model

import "time"

// Product represents a catalogue product as seen by the ledger.
// Price is the base unit price in minor currency units.
type Product struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     int64     `json:"price" db:"price"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// PriceTier is an explicit per-product unit price that applies from MinQuantity upwards.
type PriceTier struct {
	ProductID   string `json:"productId" db:"product_id"`
	MinQuantity int    `json:"minQuantity" db:"min_quantity"`
	UnitPrice   int64  `json:"unitPrice" db:"unit_price"`
}

// ResolvedPrice is the authoritative, tier-adjusted unit price of one product for a quantity.
type ResolvedPrice struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Active    bool   `json:"-"`
}

// QuoteRequest asks for a price preview of a set of items.
type QuoteRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// QuoteResponse is the price preview of a set of items.
type QuoteResponse struct {
	Items []QuoteLine `json:"items"`
	Total int64       `json:"total"`
}

// QuoteLine is a single priced line of a quote.
type QuoteLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}
