// Package pricing implements the fixed-point protocol-state-to-price
// conversions and the outlier-filtered liquidity-weighted aggregation
// across a token's discovered pools.
package pricing

import (
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"github.com/protovox/poolradar/pkg/types"
)

// CalcV2Price returns (token0Price, token1Price) where token0Price is the
// price of token0 denominated in token1, 18-decimal scaled throughout.
// Zero reserves yield (0, 0).
func CalcV2Price(reserve0, reserve1 *big.Int, dec0, dec1 int) (float64, float64) {
	if reserve0 == nil || reserve1 == nil || reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return 0, 0
	}

	r0, overflow0 := uint256.FromBig(reserve0)
	r1, overflow1 := uint256.FromBig(reserve1)
	if overflow0 || overflow1 {
		return 0, 0
	}

	scale18 := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	numerator := new(uint256.Int).Mul(r1, scale18)

	diff := dec0 - dec1
	var p01 *uint256.Int
	if diff >= 0 {
		if diff > 0 {
			extra := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(diff)))
			numerator.Mul(numerator, extra)
		}
		p01 = new(uint256.Int).Div(numerator, r0)
	} else {
		extra := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(-diff)))
		denominator := new(uint256.Int).Mul(r0, extra)
		if denominator.IsZero() {
			return 0, 0
		}
		p01 = new(uint256.Int).Div(numerator, denominator)
	}

	p01Float := new(big.Float).Quo(new(big.Float).SetInt(p01.ToBig()), big.NewFloat(1e18))
	token0Price, _ := p01Float.Float64()
	if token0Price == 0 {
		return 0, 0
	}
	return token0Price, 1 / token0Price
}

// PooledPrice is one pool's contribution to aggregation.
type PooledPrice struct {
	PriceUSD        float64
	PriceNative     float64
	LiquidityUSD    float64
	LiquidityNative float64
	PairSymbol      string
	Info            types.PriceInfo
}

// CalcAggregatePrice runs the two-pass aggregation: collect per-pool
// prices and extremes, then accumulate liquidity-weighted sums over pools
// whose price falls within [median*0.1, median*10].
func CalcAggregatePrice(pooled []PooledPrice) types.PriceAnalysis {
	result := types.PriceAnalysis{ByPairSymbol: make(map[string][]types.PriceInfo)}
	if len(pooled) == 0 {
		return result
	}

	var usdValues, nativeValues []float64
	for _, p := range pooled {
		if p.PriceUSD > 0 {
			usdValues = append(usdValues, p.PriceUSD)
		}
		if p.PriceNative > 0 {
			nativeValues = append(nativeValues, p.PriceNative)
		}
		result.ByPairSymbol[p.PairSymbol] = append(result.ByPairSymbol[p.PairSymbol], p.Info)
		if p.PriceUSD > 0 {
			if result.MaxPriceUSD == 0 || p.PriceUSD > result.MaxPriceUSD {
				result.MaxPriceUSD = p.PriceUSD
			}
			if result.MinPriceUSD == 0 || p.PriceUSD < result.MinPriceUSD {
				result.MinPriceUSD = p.PriceUSD
			}
		}
	}

	medianUSD := median(usdValues)
	medianNative := median(nativeValues)
	result.MedianPriceUSD = medianUSD

	loBound, hiBound := medianUSD*0.1, medianUSD*10
	loNative, hiNative := medianNative*0.1, medianNative*10
	var weightedUSDSum, weightedNativeSum, usdLiqSum, nativeLiqSum float64
	for _, p := range pooled {
		if p.PriceUSD <= 0 || p.LiquidityUSD <= 0 {
			continue
		}
		if medianUSD > 0 && (p.PriceUSD < loBound || p.PriceUSD > hiBound) {
			continue
		}
		weightedUSDSum += p.PriceUSD * p.LiquidityUSD
		usdLiqSum += p.LiquidityUSD
		if p.PriceNative <= 0 || p.LiquidityNative <= 0 {
			continue
		}
		if medianNative > 0 && (p.PriceNative < loNative || p.PriceNative > hiNative) {
			continue
		}
		weightedNativeSum += p.PriceNative * p.LiquidityNative
		nativeLiqSum += p.LiquidityNative
	}

	if usdLiqSum > 0 {
		result.AvgPriceUSD = weightedUSDSum / usdLiqSum
	}
	if nativeLiqSum > 0 {
		result.AvgPriceNative = weightedNativeSum / nativeLiqSum
	}
	return result
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// StatusFromUSD applies the USD liquidity-status thresholds, shared by
// both V2 and V3 enrichment (V3's RUGGED short-circuit happens earlier and
// never reaches this function).
func StatusFromUSD(totalUSD float64, reservesBothZero bool) types.PoolStatus {
	switch {
	case totalUSD >= 1000:
		return types.StatusActive
	case totalUSD >= 100:
		return types.StatusWarningLiquidity
	case reservesBothZero && totalUSD <= 0:
		return types.StatusEmpty
	default:
		return types.StatusLowLiquidity
	}
}
