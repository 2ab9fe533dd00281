// Package monitor persists monitored competitor products and their price
// history, and exposes the seller-scoped HTTP projections over them.
package monitor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertAndLog finds-or-creates the product keyed by (seller, url_hash),
// overwrites name/price/timestamp, and appends one history row. Both writes
// commit or roll back together; concurrent submissions for the same key
// serialize on the unique index, last writer wins on the product fields,
// and each contributes its own history row.
func (r *Repository) UpsertAndLog(ctx context.Context, sellerID int64, canonicalURL, urlHash, name string, price float64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var productID int64
	err = tx.QueryRow(ctx, `
INSERT INTO monitored_products (seller_id, url, url_hash, name, current_price, last_collected)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (seller_id, url_hash) DO UPDATE
SET name = EXCLUDED.name,
    current_price = EXCLUDED.current_price,
    last_collected = now()
RETURNING id
`, sellerID, canonicalURL, urlHash, name, price).Scan(&productID)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO price_history (product_id, price) VALUES ($1, $2)`,
		productID, price); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return productID, nil
}

// ListBySeller returns the seller's monitored products, newest collection
// first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID int64) ([]MonitoredProduct, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, seller_id, url, url_hash, name, (current_price::double precision), last_collected, created_at
FROM monitored_products
WHERE seller_id = $1
ORDER BY last_collected DESC
`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []MonitoredProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// GetByID returns one product, scoped to the owning seller.
func (r *Repository) GetByID(ctx context.Context, sellerID, id int64) (*MonitoredProduct, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, seller_id, url, url_hash, name, (current_price::double precision), last_collected, created_at
FROM monitored_products
WHERE id = $1 AND seller_id = $2
`, id, sellerID)
	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetHistory returns the product's price history newest first, as a
// point-in-time snapshot capped at 200 rows.
func (r *Repository) GetHistory(ctx context.Context, sellerID, productID int64) ([]PriceHistoryEntry, error) {
	if _, err := r.GetByID(ctx, sellerID, productID); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `
SELECT id, product_id, (price::double precision), recorded_at
FROM price_history
WHERE product_id = $1
ORDER BY recorded_at DESC, id DESC
LIMIT 200
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceHistoryEntry
	for rows.Next() {
		var e PriceHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Price, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes a monitored product and, via cascade, its history. The
// pipeline never deletes; this backs the administrative endpoint only.
func (r *Repository) Delete(ctx context.Context, sellerID, id int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM monitored_products WHERE id = $1 AND seller_id = $2`, id, sellerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// StaleProduct identifies a product due for re-collection.
type StaleProduct struct {
	ID       int64
	SellerID int64
	URL      string
}

// ListStale returns products whose last collection is older than the given
// cutoff, oldest first.
func (r *Repository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]StaleProduct, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, seller_id, url
FROM monitored_products
WHERE last_collected < $1
ORDER BY last_collected ASC
LIMIT $2
`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaleProduct
	for rows.Next() {
		var p StaleProduct
		if err := rows.Scan(&p.ID, &p.SellerID, &p.URL); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (MonitoredProduct, error) {
	var p MonitoredProduct
	var price sql.NullFloat64
	if err := row.Scan(&p.ID, &p.SellerID, &p.URL, &p.URLHash, &p.Name, &price, &p.LastCollected, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, pgx.ErrNoRows
		}
		return p, err
	}
	if price.Valid {
		v := price.Float64
		p.CurrentPrice = &v
	}
	return p, nil
}
