// Package scoring implements the pool scorer: trade-size-aware cost
// estimation, safety checks, risk-level escalation, and pool selection.
package scoring

import (
	"math"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/protovox/poolradar/pkg/types"
)

// DefaultTradeUSD is the trade size assumed when the caller specifies none.
const DefaultTradeUSD = 1000.0

// Minimum pair-token reserve (in pair-token units) below which a non-zero
// target-side reserve is treated as a rug-pull.
const (
	minReserveWrapper = 0.001
	minReserveStable  = 10.0
	minReserveEco     = 5.0
	minReserveOther   = 10.0
)

// ClassifyTradeSize buckets tradeUSD into the five notional tiers.
func ClassifyTradeSize(tradeUSD float64) types.TradeSize {
	switch {
	case tradeUSD < 100:
		return types.TradeMicro
	case tradeUSD < 1000:
		return types.TradeSmall
	case tradeUSD < 10000:
		return types.TradeMedium
	case tradeUSD < 100000:
		return types.TradeLarge
	default:
		return types.TradeWhale
	}
}

// Context carries the information the scorer needs beyond the pool itself:
// the aggregate USD price across all of the target's pools, the symbols
// used to classify the pair-token minimum-reserve rule, and which
// addresses are the wrapper/stablecoins/ecosystem token.
type Context struct {
	Target          common.Address
	TradeUSD        float64
	AggregateUSD    float64
	Wrapper         common.Address
	Ecosystem       common.Address
	Stablecoins     map[common.Address]struct{}
}

func (c Context) pairMinReserve(pairAddr common.Address) float64 {
	switch {
	case pairAddr == c.Wrapper:
		return minReserveWrapper
	case isStable(c.Stablecoins, pairAddr):
		return minReserveStable
	case pairAddr == c.Ecosystem:
		return minReserveEco
	default:
		return minReserveOther
	}
}

func isStable(stables map[common.Address]struct{}, addr common.Address) bool {
	_, ok := stables[addr]
	return ok
}

func (c Context) isStableOrWrapper(addr common.Address) bool {
	if addr == c.Wrapper {
		return true
	}
	return isStable(c.Stablecoins, addr)
}

// Score evaluates one pool for the given trade context: fee plus estimated
// slippage, the safety checks, and the resulting tradeability verdict.
func Score(pool types.Pool, ctx Context) types.ScoredPool {
	tradeUSD := ctx.TradeUSD
	if tradeUSD <= 0 {
		tradeUSD = DefaultTradeUSD
	}

	liquidityUSD := pool.Liquidity.TotalUSD
	feePct := float64(pool.FeeBps) / 10000 // 3000 bps -> 0.3

	var slippagePct float64
	v3OutOfRange := false

	if pool.Kind == types.V2 {
		if liquidityUSD > 0 {
			slippagePct = (tradeUSD / liquidityUSD) * 50
		} else {
			slippagePct = 50
		}
	} else {
		if pool.State.V3 != nil && pool.State.V3.Liquidity != nil && pool.State.V3.Liquidity.Sign() == 0 {
			v3OutOfRange = true
		}
		if v3OutOfRange || liquidityUSD <= 0 {
			slippagePct = 50
		} else {
			slippagePct = ((tradeUSD / liquidityUSD) * 50) / 5
		}
	}

	totalCostPct := feePct + slippagePct
	costUSD := tradeUSD * totalCostPct / 100

	safetyScore := 100.0
	var notes []string
	isUntradeable := false

	addNote := func(code string, deduct float64) {
		notes = append(notes, code)
		safetyScore -= deduct
	}

	// 1. V3 zero active liquidity.
	if v3OutOfRange {
		addNote("V3_NO_LIQUIDITY_IN_RANGE", 50)
		isUntradeable = true
	}

	// 2. Price deviation from aggregate.
	var deviationPct float64
	if ctx.AggregateUSD > 0 && pool.Price.InUSD > 0 {
		deviationPct = math.Abs(pool.Price.InUSD-ctx.AggregateUSD) / ctx.AggregateUSD * 100
		switch {
		case deviationPct > 10:
			addNote("PRICE_MANIPULATION_RISK", 40)
		case deviationPct > 5:
			addNote("PRICE_DEVIATION_HIGH", 20)
		case deviationPct > 2:
			addNote("PRICE_DEVIATION_MODERATE", 5)
		}
	}

	// 3. Sandwich risk by trade/liquidity ratio.
	var sandwichRisk string
	if liquidityUSD > 0 {
		ratio := tradeUSD / liquidityUSD
		switch {
		case ratio > 0.10:
			sandwichRisk = "CRITICAL"
			addNote("SANDWICH_RISK_CRITICAL", 30)
		case ratio > 0.05:
			sandwichRisk = "HIGH"
			addNote("SANDWICH_RISK_HIGH", 15)
		case ratio > 0.01:
			sandwichRisk = "MEDIUM"
			notes = append(notes, "SANDWICH_RISK_MEDIUM")
		}
	}

	// 4. Liquidity depth.
	switch {
	case liquidityUSD < 1000:
		addNote("EXTREMELY_LOW_LIQUIDITY", 30)
	case liquidityUSD < 10000:
		addNote("LOW_LIQUIDITY", 15)
	}

	// 5. Rug-pull: pair-side reserve below minimum while target side non-zero.
	if detectRug(pool, ctx) {
		notes = append(notes, "RUG_PULL_DETECTED")
		safetyScore = 0
		isUntradeable = true
	}

	// 6. Inactive status.
	if pool.Liquidity.Status != types.StatusActive {
		addNote("POOL_INACTIVE", 20)
	}

	// 7. Volatile pair for a large trade.
	pairToken := pool.PairToken(ctx.Target)
	if tradeUSD > 10000 && !ctx.isStableOrWrapper(pairToken.Address) {
		addNote("VOLATILE_PAIR_FOR_LARGE_TRADE", 10)
	}

	// 8. Unusually high fee.
	if pool.FeeBps > 10000 {
		addNote("UNUSUALLY_HIGH_FEE", 15)
	}

	if safetyScore < 0 {
		safetyScore = 0
	}

	liquidityRatio := 0.0
	if tradeUSD > 0 {
		liquidityRatio = liquidityUSD / tradeUSD
	}

	tradeable := !isUntradeable && liquidityUSD >= 0.1*tradeUSD && safetyScore >= 30

	risk := computeRiskLevel(liquidityRatio, safetyScore, sandwichRisk, tradeUSD)

	scoreBase := 100 - totalCostPct*10
	if liquidityRatio > 50 {
		scoreBase += 10
	}
	if scoreBase < 0 {
		scoreBase = 0
	}
	finalScore := scoreBase * safetyScore / 100

	return types.ScoredPool{
		Pool:  pool,
		Score: finalScore,
		Costs: types.TradeCost{
			FeePct: feePct, SlippagePct: slippagePct,
			TotalCostPct: totalCostPct, CostUSD: costUSD,
		},
		Tradeable:   tradeable,
		RiskLevel:   risk,
		SafetyScore: safetyScore,
		SafetyNotes: notes,
	}
}

func detectRug(pool types.Pool, ctx Context) bool {
	targetIsT0 := pool.Token0.Address == ctx.Target
	var t0Amt, t1Amt float64

	switch pool.Kind {
	case types.V2:
		if pool.State.V2 == nil {
			return false
		}
		t0Amt = bigToFloat(pool.State.V2.Reserve0, pool.Token0.Decimals)
		t1Amt = bigToFloat(pool.State.V2.Reserve1, pool.Token1.Decimals)
	default:
		if pool.State.V3 == nil {
			return false
		}
		t0Amt = bigToFloat(pool.State.V3.ActualBalance0, pool.Token0.Decimals)
		t1Amt = bigToFloat(pool.State.V3.ActualBalance1, pool.Token1.Decimals)
	}

	targetAmt, pairAmt := t0Amt, t1Amt
	if !targetIsT0 {
		targetAmt, pairAmt = t1Amt, t0Amt
	}

	minReserve := ctx.pairMinReserve(pool.PairToken(ctx.Target).Address)
	return pairAmt < minReserve && targetAmt > 0
}

func bigToFloat(v *big.Int, decimals int) float64 {
	if v == nil || v.Sign() == 0 {
		return 0
	}
	scale := new(big.Float).SetFloat64(1)
	for i := 0; i < decimals; i++ {
		scale.Mul(scale, big.NewFloat(10))
	}
	f := new(big.Float).SetInt(v)
	f.Quo(f, scale)
	out, _ := f.Float64()
	return out
}

func computeRiskLevel(liquidityRatio, safetyScore float64, sandwichRisk string, tradeUSD float64) types.RiskLevel {
	risk := types.RiskLow
	switch {
	case liquidityRatio < 5:
		risk = types.RiskHigh
	case liquidityRatio < 20:
		risk = types.RiskMedium
	}

	if safetyScore < 50 || sandwichRisk == "CRITICAL" {
		return types.RiskCritical
	}
	if safetyScore < 70 || sandwichRisk == "HIGH" {
		return types.RiskHigh
	}
	if safetyScore < 85 && risk == types.RiskLow {
		return types.RiskMedium
	}
	if tradeUSD > 50000 && risk == types.RiskLow {
		return types.RiskMedium
	}
	return risk
}

// Select picks the recommended pool among scored candidates: ascending
// totalCostPct, tie-break descending liquidityUSD, restricted to tradeable
// pools.
func Select(scored []types.ScoredPool) types.ScoredPool {
	var tradeable []types.ScoredPool
	for _, s := range scored {
		if s.Tradeable {
			tradeable = append(tradeable, s)
		}
	}
	if len(tradeable) == 0 {
		if len(scored) == 0 {
			return types.ScoredPool{Reason: "No optimal pool found"}
		}
		first := scored[0]
		first.Score = 0
		first.Reason = "No optimal pool found"
		return first
	}

	sort.SliceStable(tradeable, func(i, j int) bool {
		if tradeable[i].Costs.TotalCostPct != tradeable[j].Costs.TotalCostPct {
			return tradeable[i].Costs.TotalCostPct < tradeable[j].Costs.TotalCostPct
		}
		return tradeable[i].Pool.Liquidity.TotalUSD > tradeable[j].Pool.Liquidity.TotalUSD
	})
	return tradeable[0]
}

// Split-trade caps: any single pool may take at most 50% of the total
// notional, and at most 5% of that pool's own liquidity.
const (
	splitMaxNotionalShare  = 0.5
	splitMaxLiquidityShare = 0.05
)

// SplitTrade greedily allocates tradeUSD across tradeable pools, cheapest
// (by totalCostPct) first, capping each pool at splitMaxNotionalShare of
// the total and splitMaxLiquidityShare of that pool's own liquidity. This
// is a heuristic: it does not prove optimality, and callers wanting a
// true-optimal split should not rely on it.
func SplitTrade(scored []types.ScoredPool, tradeUSD float64) []types.SplitAllocation {
	if tradeUSD <= 0 {
		return nil
	}

	var tradeable []types.ScoredPool
	for _, s := range scored {
		if s.Tradeable {
			tradeable = append(tradeable, s)
		}
	}
	sort.SliceStable(tradeable, func(i, j int) bool {
		if tradeable[i].Costs.TotalCostPct != tradeable[j].Costs.TotalCostPct {
			return tradeable[i].Costs.TotalCostPct < tradeable[j].Costs.TotalCostPct
		}
		return tradeable[i].Pool.Liquidity.TotalUSD > tradeable[j].Pool.Liquidity.TotalUSD
	})

	notionalCap := tradeUSD * splitMaxNotionalShare
	remaining := tradeUSD
	var allocations []types.SplitAllocation

	for _, s := range tradeable {
		if remaining <= 0 {
			break
		}
		liquidityCap := s.Pool.Liquidity.TotalUSD * splitMaxLiquidityShare
		alloc := math.Min(remaining, math.Min(notionalCap, liquidityCap))
		if alloc <= 0 {
			continue
		}
		allocations = append(allocations, types.SplitAllocation{Pool: s.Pool, AmountUSD: alloc})
		remaining -= alloc
	}

	return allocations
}
