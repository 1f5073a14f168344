// Package types holds the data model shared across the pool analysis engine:
// the shape returned to callers of Analyzer.AnalyzeToken and Router.FindBestRoute.
package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo describes an ERC-20 token resolved by the Token Registry.
// Immutable once resolved; unknown tokens default to (UNKNOWN, Unknown, 18).
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals int            `json:"decimals"`
}

// UnknownTokenInfo is the fallback used whenever metadata decode fails.
func UnknownTokenInfo(addr common.Address) TokenInfo {
	return TokenInfo{Address: addr, Symbol: "UNKNOWN", Name: "Unknown", Decimals: 18}
}

// ProtocolKind distinguishes constant-product pairs from concentrated-liquidity pools.
type ProtocolKind int

const (
	V2 ProtocolKind = iota
	V3
)

func (k ProtocolKind) String() string {
	if k == V3 {
		return "v3"
	}
	return "v2"
}

// PoolStatus classifies a pool's current liquidity health.
type PoolStatus string

const (
	StatusActive           PoolStatus = "ACTIVE"
	StatusWarningLiquidity PoolStatus = "WARNING_LIQUIDITY"
	StatusLowLiquidity     PoolStatus = "LOW_LIQUIDITY"
	StatusEmpty            PoolStatus = "EMPTY"
	StatusRugged           PoolStatus = "RUGGED"
)

// RiskLevel is the Pool Scorer's overall trade-safety verdict.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// TradeSize buckets a trade's USD notional for scoring purposes.
type TradeSize string

const (
	TradeMicro  TradeSize = "MICRO"
	TradeSmall  TradeSize = "SMALL"
	TradeMedium TradeSize = "MEDIUM"
	TradeLarge  TradeSize = "LARGE"
	TradeWhale  TradeSize = "WHALE"
)

// WarningSeverity orders warnings for display (CRITICAL first).
type WarningSeverity string

const (
	SeverityLow      WarningSeverity = "LOW"
	SeverityMedium   WarningSeverity = "MEDIUM"
	SeverityHigh     WarningSeverity = "HIGH"
	SeverityCritical WarningSeverity = "CRITICAL"
)

var severityRank = map[WarningSeverity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank returns a sort key where lower is more severe.
func (s WarningSeverity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Warning is a single actionable finding surfaced to callers.
type Warning struct {
	Code     string          `json:"code"`
	Severity WarningSeverity `json:"severity"`
	Message  string          `json:"message"`
}

// V2State is the reserve-based state of a constant-product pair.
type V2State struct {
	Reserve0        *big.Int `json:"reserve0"`
	Reserve1        *big.Int `json:"reserve1"`
	BlockTimestamp  uint32   `json:"blockTimestamp"`
}

// V3State is the concentrated-liquidity state of a pool, plus the balance
// reads needed to reconstruct TVL (the contract itself has no "reserves").
type V3State struct {
	SqrtPriceX96    *big.Int `json:"sqrtPriceX96"`
	Tick            int32    `json:"tick"`
	Liquidity       *big.Int `json:"liquidity"`
	ActualBalance0  *big.Int `json:"actualBalance0"`
	ActualBalance1  *big.Int `json:"actualBalance1"`
}

// PoolState is a tagged union over the two protocol state shapes. Exactly
// one of V2/V3 is non-nil, selected by Kind.
type PoolState struct {
	Kind ProtocolKind
	V2   *V2State
	V3   *V3State
}

// LiquidityInfo is the derived USD/native TVL view of a pool.
type LiquidityInfo struct {
	TotalUSD     float64    `json:"totalUSD"`
	TotalNative  float64    `json:"totalNative"`
	Token0Amount float64    `json:"token0Amount"`
	Token1Amount float64    `json:"token1Amount"`
	Status       PoolStatus `json:"status"`
	RugReason    string     `json:"rugReason,omitempty"`
}

// PriceInfo is the derived price view of a pool, expressed in the target
// token's direction (the token the caller is analyzing).
type PriceInfo struct {
	Token0Price     float64 `json:"token0Price"`
	Token1Price     float64 `json:"token1Price"`
	PriceRatio      float64 `json:"priceRatio"`
	InUSD           float64 `json:"inUSD"`
	InNative        float64 `json:"inNative"`
	PairTokenSymbol string  `json:"pairTokenSymbol"`
	DisplayPrice    string  `json:"displayPrice"`
	Source          string  `json:"source"`
}

// Pool is a single discovered and reconstructed AMM pool.
type Pool struct {
	Address     common.Address `json:"address"`
	Kind        ProtocolKind   `json:"kind"`
	Protocol    string         `json:"protocol"`
	Token0      TokenInfo      `json:"token0"`
	Token1      TokenInfo      `json:"token1"`
	FeeBps      int64          `json:"feeBps"`
	State       PoolState      `json:"-"`
	Liquidity   LiquidityInfo  `json:"liquidity"`
	Price       PriceInfo      `json:"price"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// FeePercent returns the pool's fee as a percentage (3000 bps -> 0.3).
func (p Pool) FeePercent() float64 {
	return float64(p.FeeBps) / 10000.0
}

// PairToken returns the non-target side of the pool: whichever of
// Token0/Token1 does not match target.
func (p Pool) PairToken(target common.Address) TokenInfo {
	if p.Token0.Address == target {
		return p.Token1
	}
	return p.Token0
}

// TargetToken is the complement of PairToken.
func (p Pool) TargetToken(target common.Address) TokenInfo {
	if p.Token0.Address == target {
		return p.Token0
	}
	return p.Token1
}

// BestPools collects the default-best variants alongside the trade-aware
// recommendation.
type BestPools struct {
	ByLiquidity    *Pool            `json:"byLiquidity,omitempty"`
	ByPriceUSD     *Pool            `json:"byPriceUSD,omitempty"`
	ByPriceNative  *Pool            `json:"byPriceNative,omitempty"`
	ByFee          *Pool            `json:"byFee,omitempty"`
	ByProtocol     map[string]*Pool `json:"byProtocol,omitempty"`
	Recommended    *ScoredPool      `json:"recommended,omitempty"`
}

// ScoredPool is a pool plus the Pool Scorer's verdict for a given trade size.
type ScoredPool struct {
	Pool          Pool      `json:"pool"`
	Score         float64   `json:"score"`
	Costs         TradeCost `json:"costs"`
	Tradeable     bool      `json:"tradeable"`
	RiskLevel     RiskLevel `json:"riskLevel"`
	SafetyScore   float64   `json:"safetyScore"`
	SafetyNotes   []string  `json:"safetyNotes,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// TradeCost breaks the scorer's cost estimate into its fee/slippage parts.
type TradeCost struct {
	FeePct        float64 `json:"feePct"`
	SlippagePct   float64 `json:"slippagePct"`
	TotalCostPct  float64 `json:"totalCostPct"`
	CostUSD       float64 `json:"costUSD"`
}

// PriceAnalysis is the liquidity-weighted aggregate price view across pools.
type PriceAnalysis struct {
	AvgPriceUSD    float64                 `json:"avgPriceUSD"`
	AvgPriceNative float64                 `json:"avgPriceNative"`
	MinPriceUSD    float64                 `json:"minPriceUSD"`
	MaxPriceUSD    float64                 `json:"maxPriceUSD"`
	MedianPriceUSD float64                 `json:"medianPriceUSD"`
	ByPairSymbol   map[string][]PriceInfo  `json:"byPairSymbol,omitempty"`
}

// ProtocolFetchStatus records one protocol's partial-failure outcome
// during a single AnalyzeToken call.
type ProtocolFetchStatus struct {
	Status     string `json:"status"` // success | failed | skipped
	Pools      int    `json:"pools"`
	Returned   int    `json:"returned"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// AnalysisMeta carries cache/timing/partial-result bookkeeping.
type AnalysisMeta struct {
	Timestamp        time.Time                      `json:"timestamp"`
	Cached           bool                           `json:"cached"`
	CacheAgeMs       int64                          `json:"cacheAgeMs,omitempty"`
	Deduplicated     bool                           `json:"deduplicated,omitempty"`
	PricesStale      bool                           `json:"pricesStale"`
	PartialResults   bool                           `json:"partialResults"`
	ProtocolStatus   map[string]ProtocolFetchStatus `json:"protocolStatus"`
}

// PerformanceGrade is the Analyzer's latency grade: <500ms A+, <1000ms A,
// <2000ms B, else C.
type PerformanceGrade string

const (
	GradeAPlus PerformanceGrade = "A+"
	GradeA     PerformanceGrade = "A"
	GradeB     PerformanceGrade = "B"
	GradeC     PerformanceGrade = "C"
)

// Performance records how long the analysis took and how it graded.
type Performance struct {
	TotalMs int64            `json:"totalMs"`
	Grade   PerformanceGrade `json:"grade"`
}

// AnalysisDistribution summarizes how liquidity/pools are spread across protocols.
type AnalysisDistribution struct {
	PoolCountByProtocol      map[string]int     `json:"poolCountByProtocol"`
	LiquidityUSDByProtocol   map[string]float64 `json:"liquidityUSDByProtocol"`
	ActivePoolCount          int                `json:"activePoolCount"`
}

// AnalysisSummary is a compact overview of the full result.
type AnalysisSummary struct {
	TotalPools       int     `json:"totalPools"`
	ActivePools      int     `json:"activePools"`
	TotalLiquidityUSD float64 `json:"totalLiquidityUSD"`
	BestPriceUSD     float64 `json:"bestPriceUSD"`
}

// AnalysisResult is the complete output of Analyzer.AnalyzeToken.
type AnalysisResult struct {
	Token     TokenInfo            `json:"token"`
	Pricing   PriceAnalysis        `json:"pricing"`
	Summary   AnalysisSummary      `json:"summary"`
	BestPools BestPools            `json:"bestPools"`
	Pools     []Pool               `json:"pools"`
	Analysis  AnalysisDistribution `json:"analysis"`
	Performance Performance        `json:"performance"`
	Meta      AnalysisMeta         `json:"meta"`
	Warnings  []Warning            `json:"warnings"`
}

// SplitAllocation is one pool's share of a split-trade plan.
type SplitAllocation struct {
	Pool      Pool    `json:"pool"`
	AmountUSD float64 `json:"amountUSD"`
}

// RouteKind distinguishes direct vs multi-hop routes.
type RouteKind string

const (
	RouteDirect RouteKind = "direct"
	Route2Hop   RouteKind = "2hop"
	Route3Hop   RouteKind = "3hop"
)

// RouteLeg is one hop of a route: swap tokenIn->tokenOut through pool.
type RouteLeg struct {
	TokenIn         TokenInfo `json:"tokenIn"`
	TokenOut        TokenInfo `json:"tokenOut"`
	Pool            Pool      `json:"pool"`
	EstimatedOutput *big.Float `json:"-"`
	PriceImpactPct  float64   `json:"priceImpact"`
}

// Route is a complete path between two tokens, 1-3 hops.
type Route struct {
	Kind            RouteKind  `json:"kind"`
	Path            []TokenInfo `json:"path"`
	Legs            []RouteLeg `json:"legs"`
	EstimatedOutput *big.Float `json:"-"`
	PriceImpactPct  float64    `json:"priceImpact"`
	TotalFeesPct    float64    `json:"totalFees"`
	Score           float64    `json:"score"`
}
