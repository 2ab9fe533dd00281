package selectors

// Role classifies what a selector pattern extracts from a product page.
type Role string

const (
	RoleName   Role = "name"
	RolePrice  Role = "price"
	RoleJSONLD Role = "json_ld"
	RoleAPIURL Role = "api_url"
)

// Selector is one extraction rule for a domain. Lower priority is tried
// first; (role, priority) is unique within a domain.
type Selector struct {
	Role     Role   `json:"role"`
	Pattern  string `json:"pattern"`
	Priority int    `json:"priority"`
}

// Set holds the selectors registered for one domain, already ordered by
// ascending priority per role. Name and price get dedicated slices because
// every strategy reads them; other roles go through ForRole.
type Set struct {
	Domain    string
	Name      []string
	Price     []string
	Selectors []Selector
}

// ForRole returns the ordered pattern list for a role.
func (s *Set) ForRole(role Role) []string {
	if s == nil {
		return nil
	}
	switch role {
	case RoleName:
		return s.Name
	case RolePrice:
		return s.Price
	}
	var out []string
	for _, sel := range s.Selectors {
		if sel.Role == role {
			out = append(out, sel.Pattern)
		}
	}
	return out
}

func newSet(domain string, sels []Selector) *Set {
	set := &Set{Domain: domain, Selectors: sels}
	for _, sel := range sels {
		switch sel.Role {
		case RoleName:
			set.Name = append(set.Name, sel.Pattern)
		case RolePrice:
			set.Price = append(set.Price, sel.Pattern)
		}
	}
	return set
}
