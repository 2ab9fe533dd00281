package selectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetGroupsByRole(t *testing.T) {
	t.Parallel()

	set := newSet("retailer.example", []Selector{
		{Role: RoleName, Pattern: "h1.title", Priority: 0},
		{Role: RoleName, Pattern: "h1.alt-title", Priority: 1},
		{Role: RolePrice, Pattern: ".best-price", Priority: 0},
		{Role: RolePrice, Pattern: ".price", Priority: 1},
		{Role: RoleAPIURL, Pattern: "https://api.retailer.example/item/%s", Priority: 0},
	})

	assert.Equal(t, []string{"h1.title", "h1.alt-title"}, set.Name, "priority order must be preserved")
	assert.Equal(t, []string{".best-price", ".price"}, set.Price)
	assert.Equal(t, []string{"https://api.retailer.example/item/%s"}, set.ForRole(RoleAPIURL),
		"non-core roles stay reachable through ForRole")
}

func TestForRole(t *testing.T) {
	t.Parallel()

	set := newSet("retailer.example", []Selector{
		{Role: RoleName, Pattern: "h1", Priority: 0},
		{Role: RoleJSONLD, Pattern: `script[type="application/ld+json"]`, Priority: 0},
	})

	assert.Equal(t, []string{"h1"}, set.ForRole(RoleName))
	assert.Empty(t, set.ForRole(RolePrice))
	assert.Equal(t, []string{`script[type="application/ld+json"]`}, set.ForRole(RoleJSONLD))

	var nilSet *Set
	assert.Nil(t, nilSet.ForRole(RoleName))
}
