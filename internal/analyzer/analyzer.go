// Package analyzer orchestrates discovery, the pool fetcher, pricing, and
// the pool scorer into the single public AnalyzeToken call, with
// in-flight-request deduplication, warnings generation, and a latency
// grade.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/protovox/poolradar/internal/cache"
	"github.com/protovox/poolradar/internal/chain"
	"github.com/protovox/poolradar/internal/discovery"
	"github.com/protovox/poolradar/internal/fetcher"
	"github.com/protovox/poolradar/internal/oracle"
	"github.com/protovox/poolradar/internal/pricing"
	"github.com/protovox/poolradar/internal/registry"
	"github.com/protovox/poolradar/internal/scoring"
	"github.com/protovox/poolradar/pkg/types"
)

// AnalysisTTL is the cache lifetime for a full AnalysisResult.
const AnalysisTTL = 300 * time.Second

// inflightKey identifies one deduplicated AnalyzeToken call.
type inflightKey struct {
	addr         common.Address
	forceRefresh bool
}

type inflightEntry struct {
	done   chan struct{}
	result types.AnalysisResult
	err    error
}

// Config names the engine's base-token set and well-known addresses, used
// by both discovery and scoring.
type Config struct {
	Wrapper            common.Address
	Ecosystem          common.Address
	Stablecoins        []common.Address
	BasesHighestFirst  []common.Address // full 5-token base set, highest liquidity first
}

// Analyzer is the top-level orchestrator.
type Analyzer struct {
	cache      *cache.Cache
	discoverer *discovery.Discoverer
	fetcher    *fetcher.Fetcher
	registry   *registry.Registry
	oracle     *oracle.Oracle
	cfg        Config

	mu       sync.Mutex
	inflight map[inflightKey]*inflightEntry
}

// New wires the Analyzer from its already-constructed collaborators.
func New(c *cache.Cache, d *discovery.Discoverer, f *fetcher.Fetcher, r *registry.Registry, o *oracle.Oracle, cfg Config) *Analyzer {
	return &Analyzer{cache: c, discoverer: d, fetcher: f, registry: r, oracle: o, cfg: cfg, inflight: make(map[inflightKey]*inflightEntry)}
}

// AnalyzeToken is the engine's single public entry point.
func (a *Analyzer) AnalyzeToken(ctx context.Context, addr common.Address, forceRefresh bool) (types.AnalysisResult, error) {
	key := "analysis_" + addrLower(addr)

	if !forceRefresh {
		if v, ok := a.cache.Get(cache.PoolStore, key); ok {
			if cached, ok := v.(cachedAnalysis); ok {
				result := cached.result
				result.Meta.Cached = true
				result.Meta.CacheAgeMs = time.Since(cached.storedAt).Milliseconds()
				return result, nil
			}
		}
	}

	ik := inflightKey{addr: addr, forceRefresh: forceRefresh}

	a.mu.Lock()
	if entry, ok := a.inflight[ik]; ok {
		a.mu.Unlock()
		<-entry.done
		result := entry.result
		result.Meta.Deduplicated = true
		return result, entry.err
	}
	entry := &inflightEntry{done: make(chan struct{})}
	a.inflight[ik] = entry
	a.mu.Unlock()

	result, err := a.analyzeUncached(ctx, addr, forceRefresh)
	entry.result, entry.err = result, err
	close(entry.done)

	a.mu.Lock()
	delete(a.inflight, ik)
	a.mu.Unlock()

	if err == nil {
		a.cache.Set(cache.PoolStore, key, cachedAnalysis{result: result, storedAt: time.Now()}, AnalysisTTL)
	}
	return result, err
}

type cachedAnalysis struct {
	result   types.AnalysisResult
	storedAt time.Time
}

func (a *Analyzer) analyzeUncached(ctx context.Context, addr common.Address, forceRefresh bool) (types.AnalysisResult, error) {
	start := time.Now()

	if forceRefresh {
		a.cache.ClearTokenAnalysis(addrLower(addr))
	}

	tokenInfo, err := a.registry.GetTokenInfo(ctx, addr)
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("analyzer: token info: %w", err)
	}

	pricesWereStale := a.oracle.AreStale()
	if pricesWereStale {
		if err := a.oracle.RefreshFromChain(ctx); err != nil {
			log.Printf("analyzer: price refresh failed, reusing cached prices: %v", err)
		}
	}

	candidates, err := a.discoverer.Discover(ctx, addr, discovery.ModeFull)
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("analyzer: discovery: %w", err)
	}

	fetchResult, err := a.fetcher.Fetch(ctx, addr, candidates)
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("analyzer: fetch: %w", err)
	}

	aggregate := buildAggregate(fetchResult.Pools)

	scoreCtx := scoring.Context{
		Target: addr, TradeUSD: scoring.DefaultTradeUSD, AggregateUSD: aggregate.AvgPriceUSD,
		Wrapper: a.cfg.Wrapper, Ecosystem: a.cfg.Ecosystem, Stablecoins: stableSet(a.cfg.Stablecoins),
	}
	scored := make([]types.ScoredPool, 0, len(fetchResult.Pools))
	for _, p := range fetchResult.Pools {
		if p.Liquidity.Status == types.StatusRugged {
			continue
		}
		scored = append(scored, scoring.Score(p, scoreCtx))
	}

	best := buildBestPools(fetchResult.Pools, scored)
	dist := buildDistribution(fetchResult.Pools)
	summary := buildSummary(fetchResult.Pools, aggregate)

	totalMs := time.Since(start).Milliseconds()
	perf := types.Performance{TotalMs: totalMs, Grade: grade(totalMs)}

	result := types.AnalysisResult{
		Token: tokenInfo, Pricing: aggregate, Summary: summary, BestPools: best,
		Pools: fetchResult.Pools, Analysis: dist, Performance: perf,
		Meta: types.AnalysisMeta{
			Timestamp: time.Now(), PricesStale: pricesWereStale,
			PartialResults: fetchResult.PartialResults, ProtocolStatus: fetchResult.ProtocolStatus,
		},
	}
	result.Warnings = generateWarnings(result, scored)
	return result, nil
}

func addrLower(addr common.Address) string {
	return chain.Key(addr)
}

func stableSet(addrs []common.Address) map[common.Address]struct{} {
	m := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		m[a] = struct{}{}
	}
	return m
}

func buildAggregate(pools []types.Pool) types.PriceAnalysis {
	pooled := make([]pricing.PooledPrice, 0, len(pools))
	for _, p := range pools {
		if p.Liquidity.Status == types.StatusRugged {
			continue
		}
		pooled = append(pooled, pricing.PooledPrice{
			PriceUSD: p.Price.InUSD, PriceNative: p.Price.InNative,
			LiquidityUSD: p.Liquidity.TotalUSD, LiquidityNative: p.Liquidity.TotalNative,
			PairSymbol: p.Price.PairTokenSymbol, Info: p.Price,
		})
	}
	return pricing.CalcAggregatePrice(pooled)
}

// buildBestPools computes the default-best variants (by liquidity, price,
// fee, and protocol) alongside the trade-aware recommendation.
func buildBestPools(pools []types.Pool, scored []types.ScoredPool) types.BestPools {
	best := types.BestPools{ByProtocol: make(map[string]*types.Pool)}

	var liquidityBest, priceUSDBest, priceNativeBest, feeBest *types.Pool
	protoBestLiquidity := make(map[string]*types.Pool)

	for i := range pools {
		p := &pools[i]
		if p.Liquidity.Status == types.StatusRugged {
			continue
		}

		if liquidityBest == nil || p.Liquidity.TotalUSD > liquidityBest.Liquidity.TotalUSD ||
			(p.Liquidity.TotalUSD == liquidityBest.Liquidity.TotalUSD && sumTokenAmounts(*p) > sumTokenAmounts(*liquidityBest)) {
			liquidityBest = p
		}

		if p.Price.InUSD > 0 && (priceUSDBest == nil || p.Price.InUSD > priceUSDBest.Price.InUSD) {
			priceUSDBest = p
		}
		if p.Price.InNative > 0 && (priceNativeBest == nil || p.Price.InNative > priceNativeBest.Price.InNative) {
			priceNativeBest = p
		}
		if feeBest == nil || p.FeeBps < feeBest.FeeBps {
			feeBest = p
		}

		cur, ok := protoBestLiquidity[p.Protocol]
		if !ok || p.Liquidity.TotalUSD > cur.Liquidity.TotalUSD {
			protoBestLiquidity[p.Protocol] = p
		}
	}

	best.ByLiquidity = liquidityBest
	best.ByPriceUSD = priceUSDBest
	best.ByPriceNative = priceNativeBest
	best.ByFee = feeBest
	for proto, p := range protoBestLiquidity {
		best.ByProtocol[proto] = p
	}

	if len(scored) > 0 {
		recommended := scoring.Select(scored)
		best.Recommended = &recommended
	}

	return best
}

func sumTokenAmounts(p types.Pool) float64 {
	return p.Liquidity.Token0Amount + p.Liquidity.Token1Amount
}

func buildDistribution(pools []types.Pool) types.AnalysisDistribution {
	dist := types.AnalysisDistribution{
		PoolCountByProtocol:    make(map[string]int),
		LiquidityUSDByProtocol: make(map[string]float64),
	}
	for _, p := range pools {
		dist.PoolCountByProtocol[p.Protocol]++
		dist.LiquidityUSDByProtocol[p.Protocol] += p.Liquidity.TotalUSD
		if p.Liquidity.Status == types.StatusActive {
			dist.ActivePoolCount++
		}
	}
	return dist
}

func buildSummary(pools []types.Pool, agg types.PriceAnalysis) types.AnalysisSummary {
	s := types.AnalysisSummary{TotalPools: len(pools), BestPriceUSD: agg.MaxPriceUSD}
	for _, p := range pools {
		if p.Liquidity.Status == types.StatusActive {
			s.ActivePools++
		}
		s.TotalLiquidityUSD += p.Liquidity.TotalUSD
	}
	return s
}

func grade(totalMs int64) types.PerformanceGrade {
	switch {
	case totalMs < 500:
		return types.GradeAPlus
	case totalMs < 1000:
		return types.GradeA
	case totalMs < 2000:
		return types.GradeB
	default:
		return types.GradeC
	}
}

func generateWarnings(r types.AnalysisResult, scored []types.ScoredPool) []types.Warning {
	var warnings []types.Warning

	add := func(code string, sev types.WarningSeverity, msg string) {
		warnings = append(warnings, types.Warning{Code: code, Severity: sev, Message: msg})
	}

	for _, s := range scored {
		for _, note := range s.SafetyNotes {
			if note == "RUG_PULL_DETECTED" {
				add("RUG_PULL_DETECTED", types.SeverityCritical, fmt.Sprintf("pool %s shows pair-side reserves drained below the safety minimum", s.Pool.Address.Hex()))
				break
			}
		}
	}

	for proto, status := range r.Meta.ProtocolStatus {
		if status.Status == "failed" {
			add("PARTIAL_RESULTS", types.SeverityMedium, fmt.Sprintf("%s fetch failed: %s", proto, status.Error))
		}
	}
	if r.Meta.PricesStale {
		add("STALE_PRICES", types.SeverityMedium, "oracle prices were stale at fetch time")
	}
	if r.Performance.TotalMs > 2000 {
		add("SLOW_RESPONSE", types.SeverityLow, "analysis took longer than 2000ms")
	}

	activeCount := 0
	for _, p := range r.Pools {
		if p.Liquidity.Status == types.StatusActive || p.Liquidity.Status == types.StatusWarningLiquidity {
			activeCount++
		}
	}
	if activeCount == 0 {
		add("NO_ACTIVE_POOLS", types.SeverityCritical, "no active or near-active pools found")
	}
	if activeCount == 1 {
		add("SINGLE_POOL", types.SeverityMedium, "only one active pool was found")
	}

	v3Rugged := false
	for _, p := range r.Pools {
		if p.Kind == types.V3 && p.Liquidity.Status == types.StatusRugged {
			v3Rugged = true
		}
	}
	if v3Rugged {
		add("V3_RUGGED_POOLS", types.SeverityCritical, "one or more V3 pools are rugged")
	}

	if r.BestPools.Recommended != nil {
		liq := r.BestPools.Recommended.Pool.Liquidity.TotalUSD
		switch {
		case liq < 1000:
			add("EXTREMELY_LOW_LIQUIDITY", types.SeverityCritical, "best pool liquidity below $1,000")
		case liq < 10000:
			add("LOW_LIQUIDITY", types.SeverityHigh, "best pool liquidity below $10,000")
		case liq < 50000:
			add("MODERATE_LIQUIDITY", types.SeverityMedium, "best pool liquidity below $50,000")
		}

		slippage := r.BestPools.Recommended.Costs.SlippagePct
		switch {
		case slippage > 5:
			add("HIGH_SLIPPAGE", types.SeverityCritical, "estimated slippage above 5%")
		case slippage > 2:
			add("HIGH_SLIPPAGE", types.SeverityHigh, "estimated slippage above 2%")
		case slippage > 1:
			add("MODERATE_SLIPPAGE", types.SeverityMedium, "estimated slippage above 1%")
		}
	}

	if r.Pricing.AvgPriceUSD > 0 {
		spread := (r.Pricing.MaxPriceUSD - r.Pricing.MinPriceUSD) / r.Pricing.AvgPriceUSD
		switch {
		case spread > 0.10:
			add("PRICE_SPREAD_HIGH", types.SeverityHigh, "cross-pool price spread above 10%")
		case spread > 0.05:
			add("PRICE_SPREAD_MODERATE", types.SeverityMedium, "cross-pool price spread above 5%")
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Severity.Rank() < warnings[j].Severity.Rank()
	})
	return warnings
}
