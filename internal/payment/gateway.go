// Package payment holds the gateway collaborator seam. The core never
// captures payment itself; it either hands the gateway an amount to collect
// or consumes an already-confirmed reference.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Intent is a client-side confirmable payment handle created before the
// order exists.
type Intent struct {
	Reference   string
	AmountMinor int64
	Currency    string
}

type Gateway interface {
	// CreateIntent registers amountMinor (smallest currency unit) with the
	// gateway and returns a handle the client confirms out-of-band.
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (*Intent, error)
}

// ToMinorUnits scales a major-unit amount to the smallest currency unit
// (paise, cents). This boundary conversion belongs to the gateway seam; the
// pricing calculator only ever sees major units.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
