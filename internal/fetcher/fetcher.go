// Package fetcher reconstructs on-chain pool state for a set of discovered
// candidates: one batch per protocol to read the raw fields, enrichment
// into price/TVL/status, and a sequential fallback when both protocol
// batches fail outright. The two protocol fetches run concurrently via
// errgroup.
package fetcher

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/protovox/poolradar/internal/batch"
	"github.com/protovox/poolradar/internal/cache"
	"github.com/protovox/poolradar/internal/chain"
	"github.com/protovox/poolradar/internal/discovery"
	"github.com/protovox/poolradar/internal/oracle"
	"github.com/protovox/poolradar/internal/pricing"
	"github.com/protovox/poolradar/internal/registry"
	"github.com/protovox/poolradar/pkg/types"
)

// DefaultV2FeeBps is applied when a V2 pair exposes no fee accessor.
const DefaultV2FeeBps = 2500

// rugTickBand is the tolerance around the V3 extreme ticks considered rugged.
const rugTickBand = 100

var minTick = big.NewInt(-887272)
var maxTick = big.NewInt(887272)

// Result is the Pool Fetcher's output for one AnalyzeToken call.
type Result struct {
	Pools          []types.Pool
	ProtocolStatus map[string]types.ProtocolFetchStatus
	PartialResults bool
}

// Fetcher reconstructs pool state from discovered candidates.
type Fetcher struct {
	batcher  *batch.Caller
	registry *registry.Registry
	oracle   *oracle.Oracle
	cache    *cache.Cache // nil-safe; per-pool state cached under v2_/v3_ keys
}

// New constructs a Fetcher. c may be nil, in which case every pool is
// reformatted from its raw on-chain reads on every call.
func New(batcher *batch.Caller, reg *registry.Registry, o *oracle.Oracle, c *cache.Cache) *Fetcher {
	return &Fetcher{batcher: batcher, registry: reg, oracle: o, cache: c}
}

// poolCacheKey namespaces a formatted pool under its protocol so PoolStore
// entries can be told apart (and independently invalidated) per-protocol,
// matching the v2_/v3_ key shape ValidateKey enforces.
func poolCacheKey(kind types.ProtocolKind, addr common.Address) string {
	prefix := "v2_"
	if kind == types.V3 {
		prefix = "v3_"
	}
	return prefix + chain.Key(addr)
}

// Fetch partitions candidates by kind and runs both protocol fetches in
// parallel, tolerating a failure in either.
func (f *Fetcher) Fetch(ctx context.Context, target common.Address, candidates []discovery.Candidate) (Result, error) {
	var v2Cands, v3Cands []discovery.Candidate
	for _, c := range candidates {
		if c.Kind == types.V2 {
			v2Cands = append(v2Cands, c)
		} else {
			v3Cands = append(v3Cands, c)
		}
	}

	var v2Pools, v3Pools []rawPool
	var v2Err, v3Err error
	status := map[string]types.ProtocolFetchStatus{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		pools, err := f.fetchV2(gctx, target, v2Cands)
		v2Pools, v2Err = pools, err
		status["v2"] = protocolStatus(len(v2Cands), len(pools), err, time.Since(start))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		pools, err := f.fetchV3(gctx, target, v3Cands)
		v3Pools, v3Err = pools, err
		status["v3"] = protocolStatus(len(v3Cands), len(pools), err, time.Since(start))
		return nil
	})
	_ = g.Wait() // per-protocol errors are captured above, never surfaced here

	partial := v2Err != nil || v3Err != nil

	if v2Err != nil && v3Err != nil && (len(v2Cands) > 0 || len(v3Cands) > 0) {
		fallback, err := f.sequentialFallback(ctx, target, candidates)
		if err != nil {
			return Result{}, fmt.Errorf("fetcher: sequential fallback: %w", err)
		}
		return Result{Pools: fallback, ProtocolStatus: status, PartialResults: true}, nil
	}

	allRaw := append(append([]rawPool{}, v2Pools...), v3Pools...)
	pools, err := f.enrichAndFormat(ctx, target, allRaw)
	if err != nil {
		return Result{}, fmt.Errorf("fetcher: enrich: %w", err)
	}

	return Result{Pools: pools, ProtocolStatus: status, PartialResults: partial}, nil
}

func protocolStatus(candidateCount, returned int, err error, dur time.Duration) types.ProtocolFetchStatus {
	s := types.ProtocolFetchStatus{Pools: candidateCount, Returned: returned, DurationMs: dur.Milliseconds()}
	if err != nil {
		s.Status = "failed"
		s.Error = err.Error()
	} else if candidateCount == 0 {
		s.Status = "skipped"
	} else {
		s.Status = "success"
	}
	return s
}

// rawPool is the undecoded-to-enriched intermediate shape shared by both
// protocol fetches and the sequential fallback.
type rawPool struct {
	candidate discovery.Candidate
	token0    common.Address
	token1    common.Address
	v2        *chain.V2Reserves
	v3Fee     int64
	v3Liq     *big.Int
	v3Slot0   *chain.V3Slot0
	v3Bal0    *big.Int
	v3Bal1    *big.Int
}

func (f *Fetcher) fetchV2(ctx context.Context, target common.Address, cands []discovery.Candidate) ([]rawPool, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	token0Data, _ := chain.V2PairABI.Pack("token0")
	token1Data, _ := chain.V2PairABI.Pack("token1")
	reservesData, _ := chain.V2PairABI.Pack("getReserves")

	calls := make([]batch.Call, 0, len(cands)*3)
	for _, c := range cands {
		calls = append(calls,
			batch.NewCall(c.Address, token0Data),
			batch.NewCall(c.Address, token1Data),
			batch.NewCall(c.Address, reservesData),
		)
	}

	results, err := f.batcher.Batch(ctx, calls)
	if err != nil {
		return nil, err
	}

	out := make([]rawPool, 0, len(cands))
	for i, c := range cands {
		t0Res, t1Res, resRes := results[i*3], results[i*3+1], results[i*3+2]
		if !t0Res.Success || !t1Res.Success || !resRes.Success {
			continue
		}
		token0, err := chain.UnpackAddress(chain.V2PairABI, "token0", t0Res.ReturnData)
		if err != nil {
			continue
		}
		token1, err := chain.UnpackAddress(chain.V2PairABI, "token1", t1Res.ReturnData)
		if err != nil {
			continue
		}
		reserves, err := chain.UnpackV2Reserves(resRes.ReturnData)
		if err != nil {
			continue
		}
		out = append(out, rawPool{candidate: c, token0: token0, token1: token1, v2: &reserves})
	}
	return out, nil
}

func (f *Fetcher) fetchV3(ctx context.Context, target common.Address, cands []discovery.Candidate) ([]rawPool, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	token0Data, _ := chain.V3PoolABI.Pack("token0")
	token1Data, _ := chain.V3PoolABI.Pack("token1")
	feeData, _ := chain.V3PoolABI.Pack("fee")
	liqData, _ := chain.V3PoolABI.Pack("liquidity")
	slot0Data, _ := chain.V3PoolABI.Pack("slot0")

	calls := make([]batch.Call, 0, len(cands)*5)
	for _, c := range cands {
		calls = append(calls,
			batch.NewCall(c.Address, token0Data),
			batch.NewCall(c.Address, token1Data),
			batch.NewCall(c.Address, feeData),
			batch.NewCall(c.Address, liqData),
			batch.NewCall(c.Address, slot0Data),
		)
	}

	results, err := f.batcher.Batch(ctx, calls)
	if err != nil {
		return nil, err
	}

	raws := make([]rawPool, 0, len(cands))
	for i, c := range cands {
		t0Res, t1Res, feeRes, liqRes, slot0Res := results[i*5], results[i*5+1], results[i*5+2], results[i*5+3], results[i*5+4]
		if !t0Res.Success || !t1Res.Success || !slot0Res.Success {
			continue
		}
		token0, err := chain.UnpackAddress(chain.V3PoolABI, "token0", t0Res.ReturnData)
		if err != nil {
			continue
		}
		token1, err := chain.UnpackAddress(chain.V3PoolABI, "token1", t1Res.ReturnData)
		if err != nil {
			continue
		}
		slot0, err := chain.UnpackV3Slot0(slot0Res.ReturnData)
		if err != nil {
			continue
		}

		feeBps := c.FeeBps
		if feeRes.Success {
			if fee, err := chain.UnpackBigInt(chain.V3PoolABI, "fee", feeRes.ReturnData); err == nil {
				feeBps = fee.Int64()
			}
		}
		liquidity := big.NewInt(0)
		if liqRes.Success {
			if liq, err := chain.UnpackBigInt(chain.V3PoolABI, "liquidity", liqRes.ReturnData); err == nil {
				liquidity = liq
			}
		}

		raws = append(raws, rawPool{
			candidate: c, token0: token0, token1: token1,
			v3Fee: feeBps, v3Liq: liquidity, v3Slot0: &slot0,
		})
	}

	if len(raws) == 0 {
		return nil, nil
	}

	// Second batch: actualBalance0/1 via balanceOf(pool) on each pool's
	// two tokens.
	balCalls := make([]batch.Call, 0, len(raws)*2)
	for _, r := range raws {
		data, _ := chain.ERC20ABI.Pack("balanceOf", r.candidate.Address)
		balCalls = append(balCalls, batch.NewCall(r.token0, data), batch.NewCall(r.token1, data))
	}

	balResults, err := f.batcher.Batch(ctx, balCalls)
	if err != nil {
		return nil, err
	}

	for i := range raws {
		bal0Res, bal1Res := balResults[i*2], balResults[i*2+1]
		bal0, bal1 := big.NewInt(0), big.NewInt(0)
		if bal0Res.Success {
			if b, err := chain.UnpackBigInt(chain.ERC20ABI, "balanceOf", bal0Res.ReturnData); err == nil {
				bal0 = b
			}
		}
		if bal1Res.Success {
			if b, err := chain.UnpackBigInt(chain.ERC20ABI, "balanceOf", bal1Res.ReturnData); err == nil {
				bal1 = b
			}
		}
		raws[i].v3Bal0 = bal0
		raws[i].v3Bal1 = bal1
	}

	return raws, nil
}

// sequentialFallback is used only when both protocol aggregate3 batches
// fail outright; it re-fetches each candidate individually in chunks of
// batch.DefaultSequentialChunkSize.
func (f *Fetcher) sequentialFallback(ctx context.Context, target common.Address, cands []discovery.Candidate) ([]types.Pool, error) {
	var raws []rawPool
	for start := 0; start < len(cands); start += batch.DefaultSequentialChunkSize {
		end := start + batch.DefaultSequentialChunkSize
		if end > len(cands) {
			end = len(cands)
		}
		for _, c := range cands[start:end] {
			if c.Kind == types.V2 {
				if rp, ok := f.fetchV2Single(ctx, c); ok {
					raws = append(raws, rp)
				}
			} else {
				if rp, ok := f.fetchV3Single(ctx, c); ok {
					raws = append(raws, rp)
				}
			}
		}
	}
	return f.enrichAndFormat(ctx, target, raws)
}

func (f *Fetcher) fetchV2Single(ctx context.Context, c discovery.Candidate) (rawPool, bool) {
	token0Data, _ := chain.V2PairABI.Pack("token0")
	token1Data, _ := chain.V2PairABI.Pack("token1")
	reservesData, _ := chain.V2PairABI.Pack("getReserves")

	t0Res, err := f.batcher.CallSingle(ctx, batch.NewCall(c.Address, token0Data))
	if err != nil || !t0Res.Success {
		return rawPool{}, false
	}
	t1Res, err := f.batcher.CallSingle(ctx, batch.NewCall(c.Address, token1Data))
	if err != nil || !t1Res.Success {
		return rawPool{}, false
	}
	resRes, err := f.batcher.CallSingle(ctx, batch.NewCall(c.Address, reservesData))
	if err != nil || !resRes.Success {
		return rawPool{}, false
	}

	token0, err := chain.UnpackAddress(chain.V2PairABI, "token0", t0Res.ReturnData)
	if err != nil {
		return rawPool{}, false
	}
	token1, err := chain.UnpackAddress(chain.V2PairABI, "token1", t1Res.ReturnData)
	if err != nil {
		return rawPool{}, false
	}
	reserves, err := chain.UnpackV2Reserves(resRes.ReturnData)
	if err != nil {
		return rawPool{}, false
	}
	return rawPool{candidate: c, token0: token0, token1: token1, v2: &reserves}, true
}

func (f *Fetcher) fetchV3Single(ctx context.Context, c discovery.Candidate) (rawPool, bool) {
	token0Data, _ := chain.V3PoolABI.Pack("token0")
	token1Data, _ := chain.V3PoolABI.Pack("token1")
	liqData, _ := chain.V3PoolABI.Pack("liquidity")
	slot0Data, _ := chain.V3PoolABI.Pack("slot0")

	t0Res, err := f.batcher.CallSingle(ctx, batch.NewCall(c.Address, token0Data))
	if err != nil || !t0Res.Success {
		return rawPool{}, false
	}
	t1Res, err := f.batcher.CallSingle(ctx, batch.NewCall(c.Address, token1Data))
	if err != nil || !t1Res.Success {
		return rawPool{}, false
	}
	liqRes, err := f.batcher.CallSingle(ctx, batch.NewCall(c.Address, liqData))
	liquidity := big.NewInt(0)
	if err == nil && liqRes.Success {
		if liq, err := chain.UnpackBigInt(chain.V3PoolABI, "liquidity", liqRes.ReturnData); err == nil {
			liquidity = liq
		}
	}
	slot0Res, err := f.batcher.CallSingle(ctx, batch.NewCall(c.Address, slot0Data))
	if err != nil || !slot0Res.Success {
		return rawPool{}, false
	}

	token0, err := chain.UnpackAddress(chain.V3PoolABI, "token0", t0Res.ReturnData)
	if err != nil {
		return rawPool{}, false
	}
	token1, err := chain.UnpackAddress(chain.V3PoolABI, "token1", t1Res.ReturnData)
	if err != nil {
		return rawPool{}, false
	}
	slot0, err := chain.UnpackV3Slot0(slot0Res.ReturnData)
	if err != nil {
		return rawPool{}, false
	}

	bal0, bal1 := big.NewInt(0), big.NewInt(0)
	data0, _ := chain.ERC20ABI.Pack("balanceOf", c.Address)
	if r, err := f.batcher.CallSingle(ctx, batch.NewCall(token0, data0)); err == nil && r.Success {
		if b, err := chain.UnpackBigInt(chain.ERC20ABI, "balanceOf", r.ReturnData); err == nil {
			bal0 = b
		}
	}
	if r, err := f.batcher.CallSingle(ctx, batch.NewCall(token1, data0)); err == nil && r.Success {
		if b, err := chain.UnpackBigInt(chain.ERC20ABI, "balanceOf", r.ReturnData); err == nil {
			bal1 = b
		}
	}

	return rawPool{
		candidate: c, token0: token0, token1: token1,
		v3Fee: c.FeeBps, v3Liq: liquidity, v3Slot0: &slot0, v3Bal0: bal0, v3Bal1: bal1,
	}, true
}

// enrichAndFormat resolves token metadata, computes price/TVL/status for
// every raw pool, and assembles the final types.Pool records.
func (f *Fetcher) enrichAndFormat(ctx context.Context, target common.Address, raws []rawPool) ([]types.Pool, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	addrSet := map[common.Address]struct{}{}
	for _, r := range raws {
		addrSet[r.token0] = struct{}{}
		addrSet[r.token1] = struct{}{}
	}
	addrs := make([]common.Address, 0, len(addrSet))
	for a := range addrSet {
		addrs = append(addrs, a)
	}
	tokenInfo, err := f.registry.GetMany(ctx, addrs)
	if err != nil {
		return nil, err
	}

	out := make([]types.Pool, 0, len(raws))
	for _, r := range raws {
		kind := types.V2
		if r.v2 == nil {
			kind = types.V3
		}
		key := poolCacheKey(kind, r.candidate.Address)

		if f.cache != nil {
			if v, ok := f.cache.Get(cache.PoolStore, key); ok {
				if pool, ok := v.(types.Pool); ok {
					// Token0Price/Token1Price/PriceRatio are target-independent
					// and safe to reuse; InUSD/InNative/PairTokenSymbol quote
					// against target, so they're recomputed against the
					// caller's target and the oracle's current prices rather
					// than served stale from whichever target first cached it.
					pool.Price = f.retargetPriceInfo(pool, target)
					out = append(out, pool)
					continue
				}
			}
		}

		t0, t1 := orderTokens(r.token0, r.token1)
		info0 := tokenInfo[t0]
		info1 := tokenInfo[t1]

		var pool types.Pool
		if r.v2 != nil {
			pool = f.formatV2(target, r, t0, t1, info0, info1)
		} else {
			pool = f.formatV3(target, r, t0, t1, info0, info1)
		}

		if f.cache != nil {
			f.cache.Set(cache.PoolStore, key, pool, cache.DefaultPoolTTL)
		}
		out = append(out, pool)
	}
	return out, nil
}

// orderTokens enforces the module-wide invariant that token0.address <
// token1.address lexicographically on the lowercased hex string.
func orderTokens(a, b common.Address) (common.Address, common.Address) {
	return chain.SortPair(a, b)
}

func (f *Fetcher) formatV2(target common.Address, r rawPool, t0, t1 common.Address, info0, info1 types.TokenInfo) types.Pool {
	reserve0, reserve1 := r.v2.Reserve0, r.v2.Reserve1
	if t0 != r.token0 {
		reserve0, reserve1 = r.v2.Reserve1, r.v2.Reserve0
	}

	feeBps := r.candidate.FeeBps
	if feeBps == 0 {
		feeBps = DefaultV2FeeBps
	}

	price0, price1 := pricing.CalcV2Price(reserve0, reserve1, info0.Decimals, info1.Decimals)
	priceRatio := price0

	totalUSD := f.oracle.CalcPoolValueUSD(t0, t1, reserve0, reserve1, info0.Decimals, info1.Decimals, priceRatio)
	wrapperUSD := f.oracle.GetNativePriceUSD()
	totalNative := 0.0
	if wrapperUSD > 0 {
		totalNative = totalUSD / wrapperUSD
	}

	bothZero := reserve0.Sign() == 0 && reserve1.Sign() == 0
	status := pricing.StatusFromUSD(totalUSD, bothZero)

	liq := types.LiquidityInfo{
		TotalUSD:     totalUSD,
		TotalNative:  totalNative,
		Token0Amount: amountFloat(reserve0, info0.Decimals),
		Token1Amount: amountFloat(reserve1, info1.Decimals),
		Status:       status,
	}

	priceInfo := f.buildPriceInfo(target, t0, t1, price0, price1, priceRatio, info0, info1)

	return types.Pool{
		Address: r.candidate.Address, Kind: types.V2, Protocol: "v2",
		Token0: info0, Token1: info1, FeeBps: feeBps,
		State: types.PoolState{Kind: types.V2, V2: &types.V2State{Reserve0: reserve0, Reserve1: reserve1, BlockTimestamp: r.v2.BlockTimestampLast}},
		Liquidity: liq, Price: priceInfo,
		LastUpdated: time.Now(),
	}
}

func (f *Fetcher) formatV3(target common.Address, r rawPool, t0, t1 common.Address, info0, info1 types.TokenInfo) types.Pool {
	tick := r.v3Slot0.Tick

	if r.v3Liq.Sign() == 0 || tickNearExtreme(tick) {
		return types.Pool{
			Address: r.candidate.Address, Kind: types.V3, Protocol: "v3",
			Token0: info0, Token1: info1, FeeBps: r.v3Fee,
			State:     types.PoolState{Kind: types.V3, V3: &types.V3State{SqrtPriceX96: r.v3Slot0.SqrtPriceX96, Tick: int32(tick.Int64()), Liquidity: r.v3Liq}},
			Liquidity: types.LiquidityInfo{Status: types.StatusRugged, RugReason: "tick at or beyond extreme band, liquidity abandoned"},
			Price:     types.PriceInfo{},
			LastUpdated: time.Now(),
		}
	}

	bal0, bal1 := r.v3Bal0, r.v3Bal1
	if t0 != r.token0 {
		bal0, bal1 = r.v3Bal1, r.v3Bal0
	}

	ratio := oracle.CalcSqrtPriceToPrice(r.v3Slot0.SqrtPriceX96, info0.Decimals, info1.Decimals)

	totalUSD := f.oracle.CalcPoolValueUSD(t0, t1, bal0, bal1, info0.Decimals, info1.Decimals, ratio)
	wrapperUSD := f.oracle.GetNativePriceUSD()
	totalNative := 0.0
	if wrapperUSD > 0 {
		totalNative = totalUSD / wrapperUSD
	}

	status := pricing.StatusFromUSD(totalUSD, bal0.Sign() == 0 && bal1.Sign() == 0)

	var price1 float64
	if ratio != 0 {
		price1 = 1 / ratio
	}

	priceInfo := f.buildPriceInfo(target, t0, t1, ratio, price1, ratio, info0, info1)

	return types.Pool{
		Address: r.candidate.Address, Kind: types.V3, Protocol: "v3",
		Token0: info0, Token1: info1, FeeBps: r.v3Fee,
		State: types.PoolState{Kind: types.V3, V3: &types.V3State{
			SqrtPriceX96: r.v3Slot0.SqrtPriceX96, Tick: int32(tick.Int64()), Liquidity: r.v3Liq,
			ActualBalance0: bal0, ActualBalance1: bal1,
		}},
		Liquidity: types.LiquidityInfo{TotalUSD: totalUSD, TotalNative: totalNative, Token0Amount: amountFloat(bal0, info0.Decimals), Token1Amount: amountFloat(bal1, info1.Decimals), Status: status},
		Price:     priceInfo,
		LastUpdated: time.Now(),
	}
}

// retargetPriceInfo recomputes the target-dependent fields of a cached
// pool's PriceInfo (InUSD/InNative/PairTokenSymbol) for a new target token,
// reusing the target-independent Token0Price/Token1Price/PriceRatio as-is.
func (f *Fetcher) retargetPriceInfo(pool types.Pool, target common.Address) types.PriceInfo {
	return f.buildPriceInfo(target, pool.Token0.Address, pool.Token1.Address,
		pool.Price.Token0Price, pool.Price.Token1Price, pool.Price.PriceRatio,
		pool.Token0, pool.Token1)
}

func (f *Fetcher) buildPriceInfo(target, t0, t1 common.Address, price0, price1, ratio float64, info0, info1 types.TokenInfo) types.PriceInfo {
	targetIsT0 := target == t0
	var inUSD, inNative, targetInPair float64
	var pairSymbol string

	if targetIsT0 {
		pairSymbol = info1.Symbol
		targetInPair = price0
		if p, ok := f.oracle.GetPriceUSD(t1); ok {
			inUSD = price0 * p
		}
	} else {
		pairSymbol = info0.Symbol
		targetInPair = price1
		if p, ok := f.oracle.GetPriceUSD(t0); ok {
			inUSD = price1 * p
		}
	}
	wrapperUSD := f.oracle.GetNativePriceUSD()
	if wrapperUSD > 0 {
		inNative = inUSD / wrapperUSD
	}

	return types.PriceInfo{
		Token0Price: price0, Token1Price: price1, PriceRatio: ratio,
		InUSD: inUSD, InNative: inNative, PairTokenSymbol: pairSymbol,
		DisplayPrice: displayPrice(inUSD, targetInPair, pairSymbol),
		Source:       "onchain",
	}
}

// displayPrice renders the target token's price for humans: the USD quote
// when one is known, the raw pair-token ratio otherwise.
func displayPrice(inUSD, targetInPair float64, pairSymbol string) string {
	if inUSD > 0 {
		return fmt.Sprintf("$%.8g", inUSD)
	}
	if targetInPair > 0 && pairSymbol != "" {
		return fmt.Sprintf("%.8g %s", targetInPair, pairSymbol)
	}
	return ""
}

func tickNearExtreme(tick *big.Int) bool {
	if tick == nil {
		return false
	}
	lo := new(big.Int).Sub(tick, minTick)
	hi := new(big.Int).Sub(tick, maxTick)
	return absLE(lo, rugTickBand) || absLE(hi, rugTickBand)
}

func absLE(v *big.Int, bound int64) bool {
	abs := new(big.Int).Abs(v)
	return abs.Cmp(big.NewInt(bound)) <= 0
}

func amountFloat(raw *big.Int, decimals int) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}
	scale := new(big.Float).SetFloat64(1)
	for i := 0; i < decimals; i++ {
		scale.Mul(scale, big.NewFloat(10))
	}
	f := new(big.Float).SetInt(raw)
	f.Quo(f, scale)
	out, _ := f.Float64()
	return out
}
