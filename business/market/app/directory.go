package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

// PoolEntry is one directory row: a pool plus the caller's share of it.
// Position.Liquidity is zero when no account is connected or the share
// read failed.
type PoolEntry struct {
	Pool     domain.PoolState
	Position domain.Position
}

// DirectoryStats summarizes the active pools for the overview screen.
// ValueLockedUSD uses indicative configured prices and is approximate.
type DirectoryStats struct {
	PoolCount      int
	OwnedCount     int
	ValueLockedUSD decimal.Decimal
}

// Directory lists the active liquidity pools across the configured
// pairs. Pairs with undeployed tokens are skipped, pairs whose pool
// read fails are omitted rather than failing the whole listing, and
// only pools with deposits are returned.
type Directory struct {
	exchange ExchangeReader
	pairs    []domain.Pair
	// priceUSD maps token symbols to an indicative USD price.
	priceUSD map[string]decimal.Decimal
	log      logger.LoggerInterface
}

// NewDirectory creates a pool directory.
func NewDirectory(exchange ExchangeReader, pairs []domain.Pair, priceUSD map[string]float64, log logger.LoggerInterface) *Directory {
	prices := make(map[string]decimal.Decimal, len(priceUSD))
	for symbol, price := range priceUSD {
		prices[symbol] = decimal.NewFromFloat(price)
	}

	return &Directory{
		exchange: exchange,
		pairs:    pairs,
		priceUSD: prices,
		log:      log,
	}
}

// ListPools returns every pool that exists and has liquidity, in
// configured pair order. With a non-zero account each entry carries
// that account's share; a failed share read degrades to zero and
// never drops the pool.
func (d *Directory) ListPools(ctx context.Context, account common.Address) []PoolEntry {
	var entries []PoolEntry

	for _, pair := range d.pairs {
		if !pair.IsConfigured() {
			continue
		}

		reserves, err := d.exchange.GetPoolInfo(ctx, pair.Base().Address(), pair.Quote().Address())
		if err != nil {
			if err != ErrNoPool {
				d.log.Warn(ctx, "pool listing read failed", "pair", pair.String(), "error", err)
			}
			continue
		}

		state := domain.PoolState{
			Pair:           pair,
			ReserveBase:    asset.NewAmount(pair.Base(), reserves.ReserveA),
			ReserveQuote:   asset.NewAmount(pair.Quote(), reserves.ReserveB),
			TotalLiquidity: reserves.TotalLiquidity,
		}

		if !state.HasLiquidity() {
			continue
		}

		entry := PoolEntry{
			Pool:     state,
			Position: domain.Position{Pair: pair, Liquidity: big.NewInt(0)},
		}

		if account != (common.Address{}) {
			liquidity, err := d.exchange.GetUserLiquidity(ctx, pair.Base().Address(), pair.Quote().Address(), account)
			if err != nil {
				d.log.Warn(ctx, "share read failed", "pair", pair.String(), "error", err)
			} else {
				entry.Position.Liquidity = liquidity
			}
		}

		entries = append(entries, entry)
	}

	return entries
}

// Aggregate computes the overview stats for a pool listing.
func (d *Directory) Aggregate(entries []PoolEntry) DirectoryStats {
	total := decimal.Zero
	owned := 0

	for _, entry := range entries {
		total = total.Add(d.valueUSD(entry.Pool.ReserveBase))
		total = total.Add(d.valueUSD(entry.Pool.ReserveQuote))
		if entry.Position.HasStake() {
			owned++
		}
	}

	return DirectoryStats{
		PoolCount:      len(entries),
		OwnedCount:     owned,
		ValueLockedUSD: total,
	}
}

func (d *Directory) valueUSD(amount asset.Amount) decimal.Decimal {
	price, ok := d.priceUSD[amount.Token().Symbol()]
	if !ok {
		return decimal.Zero
	}
	return amount.ToDecimal().Mul(price)
}
