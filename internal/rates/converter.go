package rates

import (
	"context"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

const pivotCurrency = "USD"

// RateProvider supplies rate tables to the converter. *Cache satisfies it.
type RateProvider interface {
	Rates(ctx context.Context, base string) Table
}

// Converter converts amounts between currency codes. Every cross-currency
// conversion pivots through USD: the source amount is divided by the
// source's per-USD multiplier (rounded half-up to 6 decimal places), then
// multiplied by the target's multiplier (rounded half-up to 2).
//
// A round trip from A to B and back is therefore not exact; the roundings are
// part of the contract, matching the display precision of stored amounts.
type Converter struct {
	provider RateProvider
}

func NewConverter(provider RateProvider) *Converter {
	return &Converter{provider: provider}
}

// Convert converts amount from one currency code to another. Equal codes
// (case-insensitive) return the amount unchanged with no rounding at all.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	if core.NormalizeCurrency(from) == core.NormalizeCurrency(to) {
		return amount
	}
	return c.FromUSD(ctx, c.ToUSD(ctx, amount, from), to)
}

// ToUSD converts an amount into USD using the USD-based rate table. A code
// absent from the table leaves the amount unchanged; that is a documented
// degradation, not an error.
func (c *Converter) ToUSD(ctx context.Context, amount decimal.Decimal, from string) decimal.Decimal {
	if core.NormalizeCurrency(from) == pivotCurrency {
		return amount
	}
	rate, ok := c.provider.Rates(ctx, pivotCurrency).Lookup(from)
	if !ok || rate.IsZero() {
		return amount
	}
	return amount.DivRound(rate, core.PivotScale)
}

// FromUSD converts a USD amount into the target currency at storage
// precision. A code absent from the table leaves the amount unchanged.
func (c *Converter) FromUSD(ctx context.Context, amountUSD decimal.Decimal, to string) decimal.Decimal {
	if core.NormalizeCurrency(to) == pivotCurrency {
		return amountUSD
	}
	rate, ok := c.provider.Rates(ctx, pivotCurrency).Lookup(to)
	if !ok {
		return amountUSD
	}
	return amountUSD.Mul(rate).Round(core.StorageScale)
}
