package scoring

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/protovox/poolradar/pkg/types"
)

var (
	targetAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	wrapperTok = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func baseContext() Context {
	return Context{
		Target:      targetAddr,
		TradeUSD:    1000,
		Wrapper:     wrapperTok,
		Stablecoins: map[common.Address]struct{}{},
	}
}

func healthyV2Pool() types.Pool {
	reserveTarget := new(big.Int).Mul(big.NewInt(1_000_000), pow10(18))
	reserveWrapper := new(big.Int).Mul(big.NewInt(1000), pow10(18))
	return types.Pool{
		Address: common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Kind:    types.V2, FeeBps: 2500,
		Token0: types.TokenInfo{Address: targetAddr, Decimals: 18},
		Token1: types.TokenInfo{Address: wrapperTok, Decimals: 18},
		State:  types.PoolState{Kind: types.V2, V2: &types.V2State{Reserve0: reserveTarget, Reserve1: reserveWrapper}},
		Liquidity: types.LiquidityInfo{TotalUSD: 600000, Status: types.StatusActive},
		Price:     types.PriceInfo{InUSD: 0.6},
	}
}

func TestClassifyTradeSize(t *testing.T) {
	assert.Equal(t, types.TradeMicro, ClassifyTradeSize(50))
	assert.Equal(t, types.TradeSmall, ClassifyTradeSize(500))
	assert.Equal(t, types.TradeMedium, ClassifyTradeSize(5000))
	assert.Equal(t, types.TradeLarge, ClassifyTradeSize(50000))
	assert.Equal(t, types.TradeWhale, ClassifyTradeSize(500000))
}

func TestScoreHealthyPoolIsTradeable(t *testing.T) {
	scored := Score(healthyV2Pool(), baseContext())
	assert.True(t, scored.Tradeable)
	assert.Empty(t, scored.SafetyNotes)
	assert.Equal(t, types.RiskLow, scored.RiskLevel)
}

func TestScoreV3ZeroLiquidityIsUntradeable(t *testing.T) {
	pool := types.Pool{
		Kind: types.V3, FeeBps: 3000,
		Token0:    types.TokenInfo{Address: targetAddr, Decimals: 18},
		Token1:    types.TokenInfo{Address: wrapperTok, Decimals: 18},
		State:     types.PoolState{Kind: types.V3, V3: &types.V3State{Liquidity: big.NewInt(0)}},
		Liquidity: types.LiquidityInfo{TotalUSD: 0, Status: types.StatusEmpty},
	}
	scored := Score(pool, baseContext())
	assert.False(t, scored.Tradeable)
	assert.Contains(t, scored.SafetyNotes, "V3_NO_LIQUIDITY_IN_RANGE")
}

func TestScorePriceManipulationRisk(t *testing.T) {
	pool := healthyV2Pool()
	pool.Price.InUSD = 1.0 // far from aggregate 0.6 below
	ctx := baseContext()
	ctx.AggregateUSD = 0.6
	scored := Score(pool, ctx)
	assert.Contains(t, scored.SafetyNotes, "PRICE_MANIPULATION_RISK")
}

func TestScoreLowLiquidityNotes(t *testing.T) {
	pool := healthyV2Pool()
	pool.Liquidity.TotalUSD = 50 // below both the $1000 low-liquidity note threshold and 10% of a $1000 trade
	scored := Score(pool, baseContext())
	assert.Contains(t, scored.SafetyNotes, "EXTREMELY_LOW_LIQUIDITY")
	assert.False(t, scored.Tradeable, "liquidity below 10% of trade size must be untradeable")
}

func TestScoreRugPullDetected(t *testing.T) {
	pool := healthyV2Pool()
	// pair-side (wrapper) reserve effectively drained, target side still nonzero.
	pool.State.V2.Reserve1 = big.NewInt(1) // far below minReserveWrapper in wrapper units
	scored := Score(pool, baseContext())
	assert.Contains(t, scored.SafetyNotes, "RUG_PULL_DETECTED")
	assert.Equal(t, 0.0, scored.SafetyScore)
	assert.False(t, scored.Tradeable)
}

func TestScoreInactiveStatusNoted(t *testing.T) {
	pool := healthyV2Pool()
	pool.Liquidity.Status = types.StatusWarningLiquidity
	scored := Score(pool, baseContext())
	assert.Contains(t, scored.SafetyNotes, "POOL_INACTIVE")
}

func TestScoreUnusuallyHighFee(t *testing.T) {
	pool := healthyV2Pool()
	pool.FeeBps = 20000
	scored := Score(pool, baseContext())
	assert.Contains(t, scored.SafetyNotes, "UNUSUALLY_HIGH_FEE")
}

func TestSelectPicksCheapestTradeablePool(t *testing.T) {
	cheap := types.ScoredPool{Tradeable: true, Costs: types.TradeCost{TotalCostPct: 0.3}, Pool: types.Pool{Liquidity: types.LiquidityInfo{TotalUSD: 100000}}}
	expensive := types.ScoredPool{Tradeable: true, Costs: types.TradeCost{TotalCostPct: 1.0}, Pool: types.Pool{Liquidity: types.LiquidityInfo{TotalUSD: 500000}}}
	untradeable := types.ScoredPool{Tradeable: false, Costs: types.TradeCost{TotalCostPct: 0.01}}

	best := Select([]types.ScoredPool{expensive, untradeable, cheap})
	assert.Equal(t, cheap.Costs.TotalCostPct, best.Costs.TotalCostPct)
}

func TestSelectNoTradeableReturnsReason(t *testing.T) {
	untradeable := types.ScoredPool{Tradeable: false}
	best := Select([]types.ScoredPool{untradeable})
	assert.Equal(t, "No optimal pool found", best.Reason)
	assert.Equal(t, 0.0, best.Score)
}

func TestSelectEmptyInput(t *testing.T) {
	best := Select(nil)
	assert.Equal(t, "No optimal pool found", best.Reason)
}

func TestSplitTradeCapsPerPoolShares(t *testing.T) {
	pools := []types.ScoredPool{
		{Tradeable: true, Costs: types.TradeCost{TotalCostPct: 0.3}, Pool: types.Pool{Liquidity: types.LiquidityInfo{TotalUSD: 1000}}},
		{Tradeable: true, Costs: types.TradeCost{TotalCostPct: 0.5}, Pool: types.Pool{Liquidity: types.LiquidityInfo{TotalUSD: 1_000_000}}},
	}
	allocs := SplitTrade(pools, 10000)
	require := assert.New(t)
	require.NotEmpty(allocs)

	// first pool: liquidityCap = 1000*0.05 = 50, notionalCap = 5000 -> takes 50
	require.InDelta(50.0, allocs[0].AmountUSD, 1e-9)
	// remaining 9950 goes to the second pool, capped at its own liquidityCap (50000) and notionalCap (5000)
	require.InDelta(5000.0, allocs[1].AmountUSD, 1e-9)
}

func TestSplitTradeNoTradeablePoolsReturnsEmpty(t *testing.T) {
	pools := []types.ScoredPool{{Tradeable: false}}
	assert.Empty(t, SplitTrade(pools, 1000))
}

func TestSplitTradeZeroOrNegativeReturnsNil(t *testing.T) {
	assert.Nil(t, SplitTrade(nil, 0))
	assert.Nil(t, SplitTrade(nil, -5))
}
