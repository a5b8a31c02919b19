// Package admin builds the read-only admin projection over a visitor's
// orders and the profile table.
package admin

import (
	"strings"

	"github.com/and161185/topupbd/internal/model"
	"github.com/shopspring/decimal"
)

type Stats struct {
	TotalOrders  int              `json:"totalOrders"`
	Pending      int              `json:"pending"`
	Revenue      decimal.Decimal  `json:"revenue"`
	Users        int              `json:"users"`
	PanelBalance *decimal.Decimal `json:"panelBalance,omitempty"`
}

func Summarize(orders []model.Order, profiles []model.Profile) Stats {
	st := Stats{TotalOrders: len(orders), Revenue: decimal.Zero, Users: len(profiles)}
	for _, o := range orders {
		if o.Status == model.Pending {
			st.Pending++
		}
		st.Revenue = st.Revenue.Add(o.Charge)
	}
	return st
}

// TotalSpent sums order charges.
func TotalSpent(orders []model.Order) decimal.Decimal {
	return Summarize(orders, nil).Revenue
}

// FilterUsers keeps profiles whose user id, name or email contains q,
// ignoring case. An empty query keeps everything.
func FilterUsers(profiles []model.Profile, q string) []model.Profile {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]model.Profile, 0, len(profiles))
	for _, p := range profiles {
		if q == "" ||
			strings.Contains(strings.ToLower(p.UserID), q) ||
			strings.Contains(strings.ToLower(p.FullName), q) ||
			strings.Contains(strings.ToLower(p.Email), q) {
			out = append(out, p)
		}
	}
	return out
}
