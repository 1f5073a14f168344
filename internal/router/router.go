// Package router implements 1-, 2-, and 3-hop route search over cached
// analyses, with a route scorer and a background single-flight route-cache
// pre-warmer for a curated set of common pairs.
package router

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/protovox/poolradar/internal/analyzer"
	"github.com/protovox/poolradar/pkg/types"
)

// IntermediateSets names the wrapper/stablecoin (PRIMARY) and ecosystem
// (SECONDARY) base tokens used for multi-hop route search.
type IntermediateSets struct {
	Primary   []common.Address // wrapper, stable1, stable2
	Secondary []common.Address // ecosystem
}

// All returns the union of PRIMARY and SECONDARY.
func (s IntermediateSets) All() []common.Address {
	out := make([]common.Address, 0, len(s.Primary)+len(s.Secondary))
	out = append(out, s.Primary...)
	out = append(out, s.Secondary...)
	return out
}

// Router finds and scores swap routes between two tokens.
type Router struct {
	analyzer *analyzer.Analyzer
	sets     IntermediateSets

	cacheMu     sync.Mutex
	cache       map[string]routeCacheEntry
	refreshing  bool
	refreshMu   sync.Mutex

	curatedPairs [][2]common.Address
}

type routeCacheEntry struct {
	routes    []types.Route
	expiresAt time.Time
}

// RouteCacheTTL is how long a warmed pair's routes stay valid.
const RouteCacheTTL = 10 * time.Minute

// RefreshInterval is the background pre-warmer's fixed cycle period.
const RefreshInterval = 10 * time.Minute

// New constructs a Router.
func New(a *analyzer.Analyzer, sets IntermediateSets, curatedPairs [][2]common.Address) *Router {
	return &Router{analyzer: a, sets: sets, cache: make(map[string]routeCacheEntry), curatedPairs: curatedPairs}
}

func pairKey(a, b common.Address) string {
	return fmt.Sprintf("route_%s_%s", a.Hex(), b.Hex())
}

// FindBestRoute analyzes both tokens in parallel, builds 2-hop routes over
// every candidate base, evaluates the direct route, and attempts a 3-hop
// fallback only if nothing scores 50 or better.
func (r *Router) FindBestRoute(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (types.Route, []types.Route, error) {
	var inAnalysis, outAnalysis types.AnalysisResult
	var inErr, outErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		inAnalysis, inErr = r.analyzer.AnalyzeToken(gctx, tokenIn, false)
		return nil
	})
	g.Go(func() error {
		outAnalysis, outErr = r.analyzer.AnalyzeToken(gctx, tokenOut, false)
		return nil
	})
	_ = g.Wait()

	if inErr != nil && outErr != nil {
		return types.Route{}, nil, fmt.Errorf("router: both tokens failed analysis: in=%v out=%v", inErr, outErr)
	}

	amountFloat := new(big.Float).SetInt(amountIn)

	var routes []types.Route

	if inErr == nil && outErr == nil {
		for _, base := range r.sets.All() {
			if route, ok := r.build2Hop(tokenIn, tokenOut, base, amountFloat, inAnalysis, outAnalysis); ok {
				routes = append(routes, route)
			}
		}
		if direct, ok := r.buildDirect(tokenIn, tokenOut, amountFloat, inAnalysis); ok {
			routes = append(routes, direct)
		}
	}

	if !bestScoreAtLeast(routes, 50) {
		threeHop, err := r.build3HopFallback(ctx, tokenIn, tokenOut, amountFloat)
		if err == nil {
			routes = append(routes, threeHop...)
		}
	}

	if len(routes) == 0 {
		return types.Route{}, nil, fmt.Errorf("router: no route found between %s and %s", tokenIn.Hex(), tokenOut.Hex())
	}

	sortRoutesByScore(routes)
	best := routes[0]
	alternatives := routes[1:]
	if len(alternatives) > 3 {
		alternatives = alternatives[:3]
	}
	return best, alternatives, nil
}

func bestScoreAtLeast(routes []types.Route, threshold float64) bool {
	for _, rt := range routes {
		if rt.Score >= threshold {
			return true
		}
	}
	return false
}

func sortRoutesByScore(routes []types.Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Score > routes[j].Score
	})
}

// bestLeg picks a pool for a hop by max liquidityUSD, tie-broken (within
// $1,000) by min fee_bps, from the given analysis's pool list filtered to
// pools whose pair token is `other`.
func bestLeg(analysis types.AnalysisResult, target, other common.Address) (types.Pool, bool) {
	var best *types.Pool
	for i := range analysis.Pools {
		p := &analysis.Pools[i]
		if p.Liquidity.Status != types.StatusActive {
			continue
		}
		if p.PairToken(target).Address != other {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		liqDiff := math.Abs(p.Liquidity.TotalUSD - best.Liquidity.TotalUSD)
		if p.Liquidity.TotalUSD > best.Liquidity.TotalUSD && liqDiff > 1000 {
			best = p
		} else if liqDiff <= 1000 && p.FeeBps < best.FeeBps {
			best = p
		}
	}
	if best == nil {
		return types.Pool{}, false
	}
	return *best, true
}

func (r *Router) build2Hop(tokenIn, tokenOut, base common.Address, amountIn *big.Float, inA, outA types.AnalysisResult) (types.Route, bool) {
	if base == tokenIn || base == tokenOut {
		return types.Route{}, false
	}
	leg1Pool, ok := bestLeg(inA, tokenIn, base)
	if !ok {
		return types.Route{}, false
	}
	leg2Pool, ok := bestLeg(outA, tokenOut, base)
	if !ok {
		return types.Route{}, false
	}

	leg1 := makeLeg(tokenIn, base, leg1Pool, amountIn)
	leg2 := makeLeg(base, tokenOut, leg2Pool, leg1.EstimatedOutput)

	totalImpact := leg1.PriceImpactPct + leg2.PriceImpactPct
	totalFees := float64(leg1Pool.FeeBps)/10000 + float64(leg2Pool.FeeBps)/10000

	score := score2Hop(leg1Pool, leg2Pool, totalFees, totalImpact)

	route := types.Route{
		Kind:            types.Route2Hop,
		Path:            legPath(leg1, leg2),
		Legs:            []types.RouteLeg{leg1, leg2},
		EstimatedOutput: leg2.EstimatedOutput,
		PriceImpactPct:  totalImpact,
		TotalFeesPct:    totalFees,
		Score:           score,
	}
	return route, true
}

func (r *Router) buildDirect(tokenIn, tokenOut common.Address, amountIn *big.Float, inA types.AnalysisResult) (types.Route, bool) {
	pool, ok := bestLeg(inA, tokenIn, tokenOut)
	if !ok {
		return types.Route{}, false
	}
	leg := makeLeg(tokenIn, tokenOut, pool, amountIn)
	score := scoreDirect(pool, leg.PriceImpactPct)
	return types.Route{
		Kind: types.RouteDirect, Path: legPath(leg), Legs: []types.RouteLeg{leg},
		EstimatedOutput: leg.EstimatedOutput, PriceImpactPct: leg.PriceImpactPct,
		TotalFeesPct: float64(pool.FeeBps) / 10000, Score: score,
	}, true
}

func (r *Router) build3HopFallback(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Float) ([]types.Route, error) {
	var routes []types.Route
	for _, p := range r.sets.Primary {
		for _, s := range r.sets.Secondary {
			if p == tokenIn || p == tokenOut || s == tokenIn || s == tokenOut || p == s {
				continue
			}
			inA, err := r.analyzer.AnalyzeToken(ctx, tokenIn, false)
			if err != nil {
				continue
			}
			midA, err := r.analyzer.AnalyzeToken(ctx, p, false)
			if err != nil {
				continue
			}
			outA, err := r.analyzer.AnalyzeToken(ctx, tokenOut, false)
			if err != nil {
				continue
			}

			leg1Pool, ok := bestLeg(inA, tokenIn, p)
			if !ok {
				continue
			}
			leg2Pool, ok := bestLeg(midA, p, s)
			if !ok {
				continue
			}
			leg3Pool, ok := bestLeg(outA, tokenOut, s)
			if !ok {
				continue
			}

			leg1 := makeLeg(tokenIn, p, leg1Pool, amountIn)
			leg2 := makeLeg(p, s, leg2Pool, leg1.EstimatedOutput)
			leg3 := makeLeg(s, tokenOut, leg3Pool, leg2.EstimatedOutput)

			totalImpact := leg1.PriceImpactPct + leg2.PriceImpactPct + leg3.PriceImpactPct
			totalFees := float64(leg1Pool.FeeBps+leg2Pool.FeeBps+leg3Pool.FeeBps) / 10000
			score := score3Hop(leg1Pool, leg2Pool, leg3Pool, totalFees, totalImpact)

			routes = append(routes, types.Route{
				Kind: types.Route3Hop, Path: legPath(leg1, leg2, leg3), Legs: []types.RouteLeg{leg1, leg2, leg3},
				EstimatedOutput: leg3.EstimatedOutput, PriceImpactPct: totalImpact,
				TotalFeesPct: totalFees, Score: score,
			})
		}
	}
	return routes, nil
}

func makeLeg(tokenIn, tokenOut common.Address, pool types.Pool, amountIn *big.Float) types.RouteLeg {
	swapValueUSD := 0.0
	if amountIn != nil {
		f, _ := amountIn.Float64()
		swapValueUSD = f * effectivePrice(pool, tokenIn)
	}
	impact := 0.0
	if pool.Liquidity.TotalUSD > 0 {
		impact = math.Min(0.5, swapValueUSD/pool.Liquidity.TotalUSD)
	}

	out := estimateOutput(pool, tokenIn, amountIn, impact)

	return types.RouteLeg{
		TokenIn:         pool.TargetToken(tokenIn),
		TokenOut:        pool.PairToken(tokenIn),
		Pool:            pool,
		EstimatedOutput: out,
		PriceImpactPct:  impact * 100,
	}
}

// legPath assembles a route's token path from its legs: the first leg's
// input followed by every leg's output.
func legPath(legs ...types.RouteLeg) []types.TokenInfo {
	if len(legs) == 0 {
		return nil
	}
	path := make([]types.TokenInfo, 0, len(legs)+1)
	path = append(path, legs[0].TokenIn)
	for _, leg := range legs {
		path = append(path, leg.TokenOut)
	}
	return path
}

func effectivePrice(pool types.Pool, tokenIn common.Address) float64 {
	if pool.Token0.Address == tokenIn {
		return pool.Price.Token0Price
	}
	return pool.Price.Token1Price
}

// estimateOutput applies the simplified leg-output formula
// out = amountIn * effectivePrice * (1-feeFrac) * (1-priceImpactFrac).
// Legs compose independently; this is an approximation, not exact
// slippage composition.
func estimateOutput(pool types.Pool, tokenIn common.Address, amountIn *big.Float, impactFrac float64) *big.Float {
	if amountIn == nil {
		return big.NewFloat(0)
	}
	price := effectivePrice(pool, tokenIn)
	feeFrac := float64(pool.FeeBps) / 10000 / 100 // bps -> percent -> fraction
	factor := price * (1 - feeFrac) * (1 - impactFrac)
	return new(big.Float).Mul(amountIn, big.NewFloat(factor))
}

// liquidityTierBonus buckets a USD liquidity figure into a bonus value,
// highest tier first. Used by both the 2-hop and 3-hop route scorers,
// which apply it to the minimum leg liquidity in the route.
func liquidityTierBonus(usd float64, tiers []float64, bonuses []float64) float64 {
	for i, tier := range tiers {
		if usd >= tier {
			return bonuses[i]
		}
	}
	return bonuses[len(bonuses)-1]
}

var twoHopLiquidityTiers = []float64{1_000_000, 100_000, 10_000}
var twoHopLiquidityBonuses = []float64{50, 30, 20, 10}

var twoHopFeeTiers = []float64{0.001, 0.003, 0.005} // fee fraction, not percent
var twoHopFeeBonuses = []float64{20, 15, 10, 5}

var threeHopLiquidityTiers = []float64{1_000_000, 100_000, 10_000}
var threeHopLiquidityBonuses = []float64{25, 15, 10, 5}

var threeHopFeeTiers = []float64{0.001, 0.003, 0.005}
var threeHopFeeBonuses = []float64{15, 10, 8, 5}

func feeTierBonus(totalFeesPct float64, tiers, bonuses []float64) float64 {
	frac := totalFeesPct / 100
	for i, tier := range tiers {
		if frac <= tier {
			return bonuses[i]
		}
	}
	return bonuses[len(bonuses)-1]
}

// score2Hop scores a 2-hop route: base 100, +liquidity tier, +fee tier,
// -5*totalImpactPct.
func score2Hop(leg1, leg2 types.Pool, totalFeesPct, totalImpactPct float64) float64 {
	minLiq := math.Min(leg1.Liquidity.TotalUSD, leg2.Liquidity.TotalUSD)
	score := 100.0
	score += liquidityTierBonus(minLiq, twoHopLiquidityTiers, twoHopLiquidityBonuses)
	score += feeTierBonus(totalFeesPct, twoHopFeeTiers, twoHopFeeBonuses)
	score -= 5 * totalImpactPct
	return score
}

// scoreDirect applies the +40 direct-route bonus on top of the 2-hop shape
// (a direct route has a single leg, so "min leg liquidity" is that leg's).
func scoreDirect(pool types.Pool, impactPct float64) float64 {
	score := 100.0
	score += liquidityTierBonus(pool.Liquidity.TotalUSD, twoHopLiquidityTiers, twoHopLiquidityBonuses)
	score += feeTierBonus(float64(pool.FeeBps)/10000, twoHopFeeTiers, twoHopFeeBonuses)
	score -= 5 * impactPct
	score += 40
	return score
}

// score3Hop implements the 3-hop scorer: base 70, smaller bonuses, steeper
// impact penalty.
func score3Hop(leg1, leg2, leg3 types.Pool, totalFeesPct, totalImpactPct float64) float64 {
	minLiq := math.Min(leg1.Liquidity.TotalUSD, math.Min(leg2.Liquidity.TotalUSD, leg3.Liquidity.TotalUSD))
	score := 70.0
	score += liquidityTierBonus(minLiq, threeHopLiquidityTiers, threeHopLiquidityBonuses)
	score += feeTierBonus(totalFeesPct, threeHopFeeTiers, threeHopFeeBonuses)
	score -= 7 * totalImpactPct
	return score
}

// RefreshCycle runs one pre-warm pass over every ordered pair in the
// curated set, analyzing each unique token once in parallel then walking
// the pair list using the cached analyses. Single-flight: a concurrent
// invocation while a cycle is already running is a no-op.
func (r *Router) RefreshCycle(ctx context.Context) {
	r.refreshMu.Lock()
	if r.refreshing {
		r.refreshMu.Unlock()
		return
	}
	r.refreshing = true
	r.refreshMu.Unlock()
	defer func() {
		r.refreshMu.Lock()
		r.refreshing = false
		r.refreshMu.Unlock()
	}()

	unique := map[common.Address]struct{}{}
	for _, pair := range r.curatedPairs {
		unique[pair[0]] = struct{}{}
		unique[pair[1]] = struct{}{}
	}
	tokens := make([]common.Address, 0, len(unique))
	for a := range unique {
		tokens = append(tokens, a)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tokens {
		t := t
		g.Go(func() error {
			_, _ = r.analyzer.AnalyzeToken(gctx, t, false)
			return nil
		})
	}
	_ = g.Wait()

	for _, pair := range r.curatedPairs {
		best, alts, err := r.FindBestRoute(ctx, pair[0], pair[1], big.NewInt(1))
		if err != nil {
			continue
		}
		routes := append([]types.Route{best}, alts...)
		r.cacheMu.Lock()
		r.cache[pairKey(pair[0], pair[1])] = routeCacheEntry{routes: routes, expiresAt: time.Now().Add(RouteCacheTTL)}
		r.cacheMu.Unlock()
	}
}

// CachedRoutes returns a pre-warmed entry for (a, b), if present and unexpired.
func (r *Router) CachedRoutes(a, b common.Address) ([]types.Route, bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	entry, ok := r.cache[pairKey(a, b)]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.routes, true
}

// RunBackgroundRefresh loops RefreshCycle on RefreshInterval until ctx is
// canceled. A single scheduled task guarded by the refreshing flag, not an
// array of timers, so cycles can never overlap.
func (r *Router) RunBackgroundRefresh(ctx context.Context) {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshCycle(ctx)
		}
	}
}
