// seedctl is the administrative CLI: it applies the database schema and
// populates the selector registry with the known Brazilian retailers.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/CidQueiroz/Caca-Preco/internal/database"
	"github.com/CidQueiroz/Caca-Preco/internal/selectors"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "seedctl",
		Short: "Administrative tasks for the monitoring backend",
	}
	root.AddCommand(migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := database.Connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(ctx, db)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the selector registry with known retailer domains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := database.Connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			return seedSelectors(ctx, selectors.NewRepository(db))
		},
	}
}

// Retailer groups (B2W, Via) share page structures, so sibling domains get
// the same rows. New retailers are onboarded by inserting rows, not
// shipping code.
type retailerGroup struct {
	domains []string
	name    []string
	price   []string
}

var retailerGroups = []retailerGroup{
	{
		domains: []string{"americanas.com.br", "submarino.com.br", "shoptime.com.br"},
		name:    []string{`h1[class*="Title"]`, `h1.product-title__Title-sc-1hlrxcw-0`},
		price:   []string{`div[class*="BestPrice"]`, `div[class*="price__SalesPrice"]`},
	},
	{
		domains: []string{"casasbahia.com.br", "pontofrio.com.br", "extra.com.br"},
		name:    []string{`h1.css-1j4z0b6`, `h1.product-title`},
		price:   []string{`.product-price-value`, `.product-price`},
	},
	{
		domains: []string{"mercadolivre.com.br"},
		name:    []string{`h1.ui-pdp-title`},
		price: []string{
			`div.ui-pdp-price__main-container span.andes-money-amount__fraction`,
			`span.andes-money-amount__fraction`,
		},
	},
	{
		domains: []string{"amazon.com.br"},
		name:    []string{`span#productTitle`},
		price: []string{
			`span.a-price-whole`,
			`div[data-cy="price-recipe"] .a-price-whole`,
			`#corePrice_feature_div span.a-offscreen`,
			`#price_inside_buybox`,
		},
	},
	{
		domains: []string{"magazineluiza.com.br"},
		name:    []string{`h1[data-testid="heading-product-title"]`, `h1.header-product__title`},
		price:   []string{`p[data-testid="price-value"]`, `span.price-template__text`},
	},
	{
		domains: []string{"kabum.com.br"},
		name:    []string{`h1[class*="nameProduct"]`},
		price:   []string{`h4[class*="finalPrice"]`},
	},
	{
		domains: []string{"pichau.com.br"},
		name:    []string{`h1[class*="productName"]`},
		price:   []string{`div[class*="productPrice"]`},
	},
	{
		domains: []string{"aliexpress.com"},
		name:    []string{`h1[data-pl="product-title"]`, `h1.product-title-text`},
		price:   []string{`div.product-price-value`, `span.uniform-banner-box-price`},
	},
	{
		domains: []string{"shopee.com.br"},
		name:    []string{`div._44qCZd > span`},
		price:   []string{`div.flex.items-center > div._9_6_3J`},
	},
}

func seedSelectors(ctx context.Context, repo *selectors.Repository) error {
	total := 0
	for _, group := range retailerGroups {
		var sels []selectors.Selector
		for i, pattern := range group.name {
			sels = append(sels, selectors.Selector{Role: selectors.RoleName, Pattern: pattern, Priority: i})
		}
		for i, pattern := range group.price {
			sels = append(sels, selectors.Selector{Role: selectors.RolePrice, Pattern: pattern, Priority: i})
		}
		for _, domain := range group.domains {
			if err := repo.Upsert(ctx, domain, sels); err != nil {
				return err
			}
			log.WithFields(log.Fields{"domain": domain, "selectors": len(sels)}).Info("seeded domain")
			total++
		}
	}
	log.WithField("domains", total).Info("selector registry seeded")
	return nil
}
