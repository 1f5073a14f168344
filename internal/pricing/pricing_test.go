package pricing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/protovox/poolradar/pkg/types"
)

func TestCalcV2PriceZeroReserves(t *testing.T) {
	p0, p1 := CalcV2Price(big.NewInt(0), big.NewInt(0), 18, 18)
	assert.Equal(t, 0.0, p0)
	assert.Equal(t, 0.0, p1)

	p0, p1 = CalcV2Price(nil, big.NewInt(100), 18, 18)
	assert.Equal(t, 0.0, p0)
	assert.Equal(t, 0.0, p1)
}

func TestCalcV2PriceBalancedSameDecimals(t *testing.T) {
	// token0=T at 1000e18 against token1=W at 2e18: 0.002 W per T.
	reserve0 := new(big.Int).Mul(big.NewInt(1000), pow10(18))
	reserve1 := new(big.Int).Mul(big.NewInt(2), pow10(18))

	p0, p1 := CalcV2Price(reserve0, reserve1, 18, 18)
	assert.InDelta(t, 0.002, p0, 1e-9)
	assert.InDelta(t, 500.0, p1, 1e-6)
}

func TestCalcV2PriceDifferingDecimals(t *testing.T) {
	// token0 has 6 decimals (e.g. USDC-like), token1 has 18.
	reserve0 := big.NewInt(1_000_000) // 1.0 unit at 6 decimals
	reserve1 := new(big.Int).Mul(big.NewInt(2), pow10(18))

	p0, p1 := CalcV2Price(reserve0, reserve1, 6, 18)
	assert.InDelta(t, 2.0, p0, 1e-9)
	assert.InDelta(t, 0.5, p1, 1e-9)
}

func TestCalcAggregatePriceEmptyInput(t *testing.T) {
	result := CalcAggregatePrice(nil)
	assert.Equal(t, 0.0, result.AvgPriceUSD)
	assert.NotNil(t, result.ByPairSymbol)
}

func TestCalcAggregatePriceOutlierFiltered(t *testing.T) {
	// Five equal-liquidity pools, one far outlier: median 1.01, so 50.00
	// falls outside [0.101, 10.1] and is excluded from the weighted mean.
	pooled := []PooledPrice{
		{PriceUSD: 1.00, LiquidityUSD: 100, PairSymbol: "W"},
		{PriceUSD: 1.01, LiquidityUSD: 100, PairSymbol: "W"},
		{PriceUSD: 0.99, LiquidityUSD: 100, PairSymbol: "W"},
		{PriceUSD: 1.02, LiquidityUSD: 100, PairSymbol: "W"},
		{PriceUSD: 50.00, LiquidityUSD: 100, PairSymbol: "W"},
	}
	result := CalcAggregatePrice(pooled)
	assert.InDelta(t, 1.005, result.AvgPriceUSD, 0.01)
	assert.Equal(t, 50.00, result.MaxPriceUSD)
	assert.Equal(t, 0.99, result.MinPriceUSD)
}

func TestCalcAggregatePriceWeightsByLiquidity(t *testing.T) {
	pooled := []PooledPrice{
		{PriceUSD: 10.0, LiquidityUSD: 900, PairSymbol: "A"},
		{PriceUSD: 20.0, LiquidityUSD: 100, PairSymbol: "A"},
	}
	result := CalcAggregatePrice(pooled)
	// (10*900 + 20*100) / 1000 = 11
	assert.InDelta(t, 11.0, result.AvgPriceUSD, 1e-9)
}

func TestStatusFromUSD(t *testing.T) {
	assert.Equal(t, types.StatusActive, StatusFromUSD(1000, false))
	assert.Equal(t, types.StatusActive, StatusFromUSD(5000, false))
	assert.Equal(t, types.StatusWarningLiquidity, StatusFromUSD(100, false))
	assert.Equal(t, types.StatusWarningLiquidity, StatusFromUSD(999, false))
	assert.Equal(t, types.StatusEmpty, StatusFromUSD(0, true))
	assert.Equal(t, types.StatusLowLiquidity, StatusFromUSD(50, false))
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
