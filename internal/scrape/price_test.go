package scrape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CidQueiroz/Caca-Preco/internal/scrape"
)

func TestNormalizePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"brazilian with currency", "R$ 1.234,56", 1234.56, true},
		{"brazilian plain", "1.234,56", 1234.56, true},
		{"american format", "1,234.56", 1234.56, true},
		{"comma decimal only", "199,90", 199.90, true},
		{"period decimal only", "199.90", 199.90, true},
		{"json-ld machine price", "149.5", 149.5, true},
		{"integer", "1299", 1299, true},
		{"period as thousands", "1.299", 1299, true},
		{"whitespace and symbols", "  R$  89,99 ", 89.99, true},
		{"price on request", "Preço sob consulta", 0, false},
		{"empty", "", 0, false},
		{"zero", "0,00", 0, false},
		{"separators only", ".,", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := scrape.NormalizePrice(tt.input)
			assert.Equal(t, tt.ok, ok, "ok for %q", tt.input)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001, "value for %q", tt.input)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Smart TV 50 4K", scrape.CleanText("  Smart TV\n\t50   4K \n"))
	assert.Equal(t, "", scrape.CleanText("   \n\t  "))
}
