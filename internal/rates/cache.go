package rates

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"spendwise/internal/core"
)

// fallbackCurrencies is the fixed list served 1:1 when the source fails.
var fallbackCurrencies = []string{
	"USD", "EUR", "GBP", "JPY", "CNY", "INR",
	"AUD", "CAD", "CHF", "SEK", "NZD", "SGD",
}

// FallbackTable returns a fresh 1:1 table for the major currencies. It is
// served when the rate source is unavailable so conversions degrade to
// identity instead of failing the write.
func FallbackTable() Table {
	table := make(Table, len(fallbackCurrencies))
	for _, code := range fallbackCurrencies {
		table[code] = decimal.NewFromInt(1)
	}
	return table
}

// Cache memoizes Source results per base-currency key.
//
// Concurrent callers for the same uncached key share one fetch and receive
// the same table. A fetched table is cached for the configured TTL (no
// expiry when the TTL is zero, the baseline contract). A source failure is
// answered with the fallback table and is never cached, so the next call
// retries the source.
//
// A Cache is an ordinary injectable value owned by its constructor; create
// one per process and hand it to the converter.
type Cache struct {
	source Source
	tables *gocache.Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache creates a cache over the given source. ttl <= 0 means cached
// tables never expire for the process lifetime.
func NewCache(source Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Cache{
		source: source,
		tables: gocache.New(ttl, 10*time.Minute),
		logger: slog.With("component", "rates"),
	}
}

// Rates returns the rate table for a base currency. It never fails: when
// the source is unavailable the static fallback table is returned instead.
func (c *Cache) Rates(ctx context.Context, base string) Table {
	key := core.NormalizeCurrency(base)

	if cached, ok := c.tables.Get(key); ok {
		return cached.(Table)
	}

	// Single flight per key: every waiter gets the outcome of one fetch.
	result, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.tables.Get(key); ok {
			return cached.(Table), nil
		}
		table, err := c.source.Fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		c.tables.SetDefault(key, table)
		return table, nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "rate fetch failed, serving fallback table",
			"base", key, "error", err)
		return FallbackTable()
	}
	return result.(Table)
}

// Invalidate drops the cached table for a base currency.
func (c *Cache) Invalidate(base string) {
	c.tables.Delete(core.NormalizeCurrency(base))
}
