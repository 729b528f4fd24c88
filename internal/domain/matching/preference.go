package matching

import (
	"cmp"

	"github.com/okian/stylematch/internal/domain/model"
)

// preferCustomer orders customers from a stylist's point of view: higher
// subscription tiers first, then earlier submissions. a and b index customers;
// the result is negative when a is preferred over b.
func preferCustomer(customers []model.CustomerCandidate, a, b int) int {
	if c := cmp.Compare(customers[b].Tier, customers[a].Tier); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}
