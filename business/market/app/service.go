package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
	"github.com/kuoyehs/saga-dex-project/internal/ratelimit"
)

// MarketService maintains the snapshot cache of chain state. A refresh
// reads every balance, pool and position into a fresh snapshot and
// swaps it in atomically; readers never block on the network and never
// observe a partially updated view.
type MarketService struct {
	exchange ExchangeReader
	tokens   TokenReader
	registry *asset.Registry
	pairs    []domain.Pair

	limiter       *ratelimit.Limiter
	maxConcurrent int
	log           logger.LoggerInterface

	snapshot   atomic.Pointer[domain.Snapshot]
	refreshing atomic.Bool
}

// NewMarketService creates the snapshot cache service.
func NewMarketService(
	exchange ExchangeReader,
	tokens TokenReader,
	registry *asset.Registry,
	pairs []domain.Pair,
	limiter *ratelimit.Limiter,
	maxConcurrent int,
	log logger.LoggerInterface,
) *MarketService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &MarketService{
		exchange:      exchange,
		tokens:        tokens,
		registry:      registry,
		pairs:         pairs,
		limiter:       limiter,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// Snapshot returns the latest snapshot, or nil before the first
// refresh completes.
func (s *MarketService) Snapshot() *domain.Snapshot {
	return s.snapshot.Load()
}

// Pairs returns the configured pair list.
func (s *MarketService) Pairs() []domain.Pair {
	return s.pairs
}

// Refresh rebuilds the snapshot for the given account. Individual
// balance read failures degrade that balance to unknown; pool read
// failures drop the pool from the snapshot. Only one refresh runs at
// a time; concurrent calls return immediately.
func (s *MarketService) Refresh(ctx context.Context, account common.Address) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer s.refreshing.Store(false)

	started := time.Now()
	next := &domain.Snapshot{
		Account:   account,
		TakenAt:   started,
		Pools:     make(map[string]domain.PoolState),
		Positions: make(map[string]domain.Position),
	}

	s.readBalances(ctx, account, next)
	s.readPools(ctx, account, next)

	s.snapshot.Store(next)

	s.log.Debug(ctx, "snapshot refreshed",
		"balances", len(next.Balances),
		"pools", len(next.Pools),
		"elapsed", time.Since(started).String())
}

func (s *MarketService) readBalances(ctx context.Context, account common.Address, snap *domain.Snapshot) {
	tokens := s.registry.All()
	balances := make([]domain.Balance, len(tokens))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrent)

	for i, token := range tokens {
		if !token.IsConfigured() {
			balances[i] = domain.UnknownBalance(token)
			continue
		}

		wg.Add(1)
		go func(i int, token *asset.Token) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.limiter.Wait(ctx); err != nil {
				balances[i] = domain.UnknownBalance(token)
				return
			}

			raw, err := s.tokens.BalanceOf(ctx, token.Address(), account)
			if err != nil {
				s.log.Warn(ctx, "balance read failed", "token", token.Symbol(), "error", err)
				balances[i] = domain.UnknownBalance(token)
				return
			}
			balances[i] = domain.KnownBalance(asset.NewAmount(token, raw))
		}(i, token)
	}

	wg.Wait()
	snap.Balances = balances
}

func (s *MarketService) readPools(ctx context.Context, account common.Address, snap *domain.Snapshot) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, s.maxConcurrent)

	for _, pair := range s.pairs {
		if !pair.IsConfigured() {
			continue
		}

		wg.Add(1)
		go func(pair domain.Pair) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.limiter.Wait(ctx); err != nil {
				return
			}

			reserves, err := s.exchange.GetPoolInfo(ctx, pair.Base().Address(), pair.Quote().Address())
			if err != nil {
				if err != ErrNoPool {
					s.log.Warn(ctx, "pool read failed", "pair", pair.String(), "error", err)
				}
				return
			}

			state := domain.PoolState{
				Pair:           pair,
				ReserveBase:    asset.NewAmount(pair.Base(), reserves.ReserveA),
				ReserveQuote:   asset.NewAmount(pair.Quote(), reserves.ReserveB),
				TotalLiquidity: reserves.TotalLiquidity,
			}

			mu.Lock()
			snap.Pools[pair.String()] = state
			mu.Unlock()

			if account == (common.Address{}) {
				return
			}

			liquidity, err := s.exchange.GetUserLiquidity(ctx, pair.Base().Address(), pair.Quote().Address(), account)
			if err != nil {
				s.log.Warn(ctx, "position read failed", "pair", pair.String(), "error", err)
				return
			}

			mu.Lock()
			snap.Positions[pair.String()] = domain.Position{Pair: pair, Liquidity: liquidity}
			mu.Unlock()
		}(pair)
	}

	wg.Wait()
}

// ParsePairs resolves configured "BASE-QUOTE" strings against the
// token registry.
func ParsePairs(registry *asset.Registry, specs []string) ([]domain.Pair, error) {
	pairs := make([]domain.Pair, 0, len(specs))
	for _, spec := range specs {
		var base, quote *asset.Token
		for i := 0; i < len(spec); i++ {
			if spec[i] == '-' {
				b, okB := registry.Get(spec[:i])
				q, okQ := registry.Get(spec[i+1:])
				if okB && okQ {
					base, quote = b, q
				}
				break
			}
		}
		if base == nil || quote == nil {
			continue
		}
		pair, err := domain.NewPair(base, quote)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
