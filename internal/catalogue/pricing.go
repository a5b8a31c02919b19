package catalogue

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// Pricing converts provider rates into local currency.
type Pricing struct {
	FXRate    decimal.Decimal
	Surcharge decimal.Decimal
	OrderFee  decimal.Decimal
}

// RatePer1000 is rate × FXRate + Surcharge.
func (p Pricing) RatePer1000(rate string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	return r.Mul(p.FXRate).Add(p.Surcharge), nil
}

// Charge is quantity/1000 × ratePer1000 plus the flat order fee.
func (p Pricing) Charge(quantity int, ratePer1000 decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(quantity)).Div(thousand).Mul(ratePer1000).Add(p.OrderFee)
}

// Local converts a provider-currency amount, e.g. the operator balance.
func (p Pricing) Local(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.FXRate)
}
