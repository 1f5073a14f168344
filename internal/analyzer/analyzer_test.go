package analyzer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/protovox/poolradar/pkg/types"
)

func TestGradeThresholds(t *testing.T) {
	assert.Equal(t, types.GradeAPlus, grade(100))
	assert.Equal(t, types.GradeA, grade(500))
	assert.Equal(t, types.GradeB, grade(1500))
	assert.Equal(t, types.GradeC, grade(3000))
}

func TestStableSet(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")
	set := stableSet([]common.Address{a, b})
	_, ok := set[a]
	assert.True(t, ok)
	_, ok = set[b]
	assert.True(t, ok)
	_, ok = set[common.Address{}]
	assert.False(t, ok)
}

func TestBuildDistributionCountsActiveAndPerProtocol(t *testing.T) {
	pools := []types.Pool{
		{Protocol: "v2", Liquidity: types.LiquidityInfo{TotalUSD: 100, Status: types.StatusActive}},
		{Protocol: "v2", Liquidity: types.LiquidityInfo{TotalUSD: 200, Status: types.StatusWarningLiquidity}},
		{Protocol: "v3", Liquidity: types.LiquidityInfo{TotalUSD: 300, Status: types.StatusActive}},
	}
	dist := buildDistribution(pools)
	assert.Equal(t, 2, dist.PoolCountByProtocol["v2"])
	assert.Equal(t, 1, dist.PoolCountByProtocol["v3"])
	assert.Equal(t, 300.0, dist.LiquidityUSDByProtocol["v2"])
	assert.Equal(t, 300.0, dist.LiquidityUSDByProtocol["v3"])
	assert.Equal(t, 2, dist.ActivePoolCount)
}

func TestBuildSummaryAggregatesLiquidityAndActiveCount(t *testing.T) {
	pools := []types.Pool{
		{Liquidity: types.LiquidityInfo{TotalUSD: 100, Status: types.StatusActive}},
		{Liquidity: types.LiquidityInfo{TotalUSD: 900, Status: types.StatusRugged}},
	}
	summary := buildSummary(pools, types.PriceAnalysis{MaxPriceUSD: 5})
	assert.Equal(t, 2, summary.TotalPools)
	assert.Equal(t, 1, summary.ActivePools)
	assert.Equal(t, 1000.0, summary.TotalLiquidityUSD)
	assert.Equal(t, 5.0, summary.BestPriceUSD)
}

func TestBuildBestPoolsSkipsRuggedAndPicksRecommended(t *testing.T) {
	rugged := types.Pool{Protocol: "v3", Liquidity: types.LiquidityInfo{TotalUSD: 1_000_000, Status: types.StatusRugged}}
	small := types.Pool{Protocol: "v2", FeeBps: 3000, Liquidity: types.LiquidityInfo{TotalUSD: 1000, Status: types.StatusActive}, Price: types.PriceInfo{InUSD: 1.0}}
	big := types.Pool{Protocol: "v2", FeeBps: 100, Liquidity: types.LiquidityInfo{TotalUSD: 5000, Status: types.StatusActive}, Price: types.PriceInfo{InUSD: 2.0}}
	pools := []types.Pool{rugged, small, big}

	scored := []types.ScoredPool{
		{Pool: small, Tradeable: true, Costs: types.TradeCost{TotalCostPct: 0.5}},
		{Pool: big, Tradeable: true, Costs: types.TradeCost{TotalCostPct: 0.1}},
	}

	best := buildBestPools(pools, scored)
	assert.Equal(t, 5000.0, best.ByLiquidity.Liquidity.TotalUSD, "rugged pool must never be selected as best-by-liquidity")
	assert.Equal(t, int64(100), best.ByFee.FeeBps)
	assert.Equal(t, 2.0, best.ByPriceUSD.Price.InUSD)
	require := assert.New(t)
	require.NotNil(best.Recommended)
	require.Equal(int64(100), best.Recommended.Pool.FeeBps, "cheapest totalCostPct wins selection")
}

func TestBuildBestPoolsNoScoredLeavesRecommendedNil(t *testing.T) {
	pools := []types.Pool{{Protocol: "v2", Liquidity: types.LiquidityInfo{TotalUSD: 1, Status: types.StatusActive}}}
	best := buildBestPools(pools, nil)
	assert.Nil(t, best.Recommended)
}

func TestGenerateWarningsRugPullSurfaced(t *testing.T) {
	scored := []types.ScoredPool{
		{Pool: types.Pool{Address: common.HexToAddress("0x1111111111111111111111111111111111111111")}, SafetyNotes: []string{"RUG_PULL_DETECTED"}},
	}
	r := types.AnalysisResult{Meta: types.AnalysisMeta{ProtocolStatus: map[string]types.ProtocolFetchStatus{}}}
	warnings := generateWarnings(r, scored)

	found := false
	for _, w := range warnings {
		if w.Code == "RUG_PULL_DETECTED" {
			found = true
			assert.Equal(t, types.SeverityCritical, w.Severity)
		}
	}
	assert.True(t, found, "RUG_PULL_DETECTED must be surfaced as its own warning")
}

func TestGenerateWarningsNoActivePools(t *testing.T) {
	r := types.AnalysisResult{
		Meta:  types.AnalysisMeta{ProtocolStatus: map[string]types.ProtocolFetchStatus{}},
		Pools: []types.Pool{{Liquidity: types.LiquidityInfo{Status: types.StatusEmpty}}},
	}
	warnings := generateWarnings(r, nil)
	codes := warningCodes(warnings)
	assert.Contains(t, codes, "NO_ACTIVE_POOLS")
}

func TestGenerateWarningsSortedBySeverity(t *testing.T) {
	r := types.AnalysisResult{
		Meta: types.AnalysisMeta{
			ProtocolStatus: map[string]types.ProtocolFetchStatus{"v2": {Status: "failed", Error: "boom"}},
			PricesStale:    true,
		},
		Pools: []types.Pool{{Liquidity: types.LiquidityInfo{Status: types.StatusActive}}},
	}
	warnings := generateWarnings(r, nil)
	for i := 1; i < len(warnings); i++ {
		assert.LessOrEqual(t, warnings[i-1].Severity.Rank(), warnings[i].Severity.Rank())
	}
}

func warningCodes(warnings []types.Warning) []string {
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.Code
	}
	return out
}
