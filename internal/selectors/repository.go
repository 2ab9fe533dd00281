// Package selectors is the domain selector registry: per-domain prioritized
// extraction rules, looked up by longest matching host suffix. The registry
// is populated by seedctl and is read-only during pipeline execution.
package selectors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/CidQueiroz/Caca-Preco/internal/canonical"
)

// ErrNotFound means no registered, active domain matched the host. It is
// not a failure: strategies fall back to generic selectors.
var ErrNotFound = errors.New("no selector set for host")

// Registry resolves a hostname to its selector set.
type Registry interface {
	Lookup(ctx context.Context, host string) (*Set, error)
}

// Repository is the Postgres-backed Registry.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Lookup tries the full host, then each parent domain obtained by dropping
// the leftmost label, stopping at the first registered active domain.
func (r *Repository) Lookup(ctx context.Context, host string) (*Set, error) {
	for _, candidate := range canonical.HostCandidates(host) {
		set, err := r.lookupExact(ctx, candidate)
		if err == nil {
			log.WithFields(log.Fields{"host": host, "domain": candidate}).
				Debug("selector registry: domain matched")
			return set, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (r *Repository) lookupExact(ctx context.Context, domain string) (*Set, error) {
	var domainID int
	err := r.db.QueryRow(ctx,
		`SELECT id FROM scrape_domains WHERE domain = $1 AND active`,
		domain).Scan(&domainID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
SELECT role, pattern, priority
FROM scrape_selectors
WHERE domain_id = $1
ORDER BY role, priority
`, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sels []Selector
	for rows.Next() {
		var s Selector
		if err := rows.Scan(&s.Role, &s.Pattern, &s.Priority); err != nil {
			return nil, err
		}
		sels = append(sels, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sels) == 0 {
		return nil, ErrNotFound
	}
	return newSet(domain, sels), nil
}

// Upsert registers a domain and replaces its selector rows. Used by seedctl.
func (r *Repository) Upsert(ctx context.Context, domain string, sels []Selector) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var domainID int
	err = tx.QueryRow(ctx, `
INSERT INTO scrape_domains (domain, active) VALUES ($1, true)
ON CONFLICT (domain) DO UPDATE SET active = true
RETURNING id
`, domain).Scan(&domainID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM scrape_selectors WHERE domain_id = $1`, domainID); err != nil {
		return err
	}
	for _, s := range sels {
		if _, err := tx.Exec(ctx, `
INSERT INTO scrape_selectors (domain_id, role, pattern, priority)
VALUES ($1, $2, $3, $4)
`, domainID, s.Role, s.Pattern, s.Priority); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
