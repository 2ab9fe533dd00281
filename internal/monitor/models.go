package monitor

import "time"

// MonitoredProduct is one competitor listing tracked for a seller. Identity
// is (seller_id, url_hash); resubmitting a canonically equal URL updates
// this record instead of creating another.
type MonitoredProduct struct {
	ID            int64     `json:"id"`
	SellerID      int64     `json:"seller_id"`
	URL           string    `json:"url"`
	URLHash       string    `json:"url_hash"`
	Name          string    `json:"name"`
	CurrentPrice  *float64  `json:"current_price,omitempty"` // nullable until first collection
	LastCollected time.Time `json:"last_collected"`
	CreatedAt     time.Time `json:"created_at"`
}

// PriceHistoryEntry is an append-only collection log row: one entry per
// successful extraction, even when the price did not change.
type PriceHistoryEntry struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}
