// Package oracle implements the price oracle: a mutable address->priceUSD
// map seeded with well-known defaults, refreshed from two named
// concentrated-liquidity pools. Refresh is single-flight, and the
// sqrtPriceX96 math multiplies in 256-bit integers before dividing down
// to a float so the squared fixed-point value never overflows.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/protovox/poolradar/internal/batch"
	"github.com/protovox/poolradar/internal/cache"
	"github.com/protovox/poolradar/internal/chain"
)

// StaleThreshold is how long a price is trusted before AreStale reports true.
const StaleThreshold = 30 * time.Second

// q96 is 2^96, the V3 fixed-point base for sqrtPriceX96.
var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// Sanity clamps: refreshed values outside these bands are discarded in
// favor of the previously cached price.
const (
	wrapperMin     = 100.0
	wrapperMax     = 2000.0
	ecosystemMin   = 0.1
	ecosystemMax   = 100.0
)

// PoolRef names a V3 pool and which side carries the token being priced.
type PoolRef struct {
	Address        common.Address
	QuoteIsToken0  bool // true if token0 is the already-known side (the quote currency)
}

// Oracle holds live USD prices for the base-token set.
type Oracle struct {
	batcher *batch.Caller
	cache   *cache.Cache // nil-safe: price overlay, prices map stays authoritative

	wrapperAddr    common.Address
	ecosystemAddr  common.Address
	wrapperStable  PoolRef // wrapper/stable pool, used to derive wrapper's USD price
	ecosystemPool  PoolRef // ecosystem/wrapper pool, used to derive ecosystem's USD price

	mu         sync.Mutex
	prices     map[common.Address]float64
	lastUpdate time.Time

	refreshMu sync.Mutex // single-flight guard for RefreshFromChain
}

// Config seeds the oracle's well-known prices and names the two refresh pools.
type Config struct {
	Wrapper       common.Address
	WrapperDollar float64
	Ecosystem     common.Address
	EcosystemUSD  float64
	Stablecoins   []common.Address // fixed at 1.00

	WrapperStablePool PoolRef
	EcosystemPool     PoolRef
}

// New constructs an Oracle seeded with the wrapper, ecosystem, and
// stablecoin defaults. c may be nil, in
// which case the oracle falls back to its in-memory map only; passing a
// real Cache additionally persists every priced address under PriceStore
// (key price_<addr>) so the Cache's stats/clear/GetOrFill machinery stays
// consistent with prices the oracle has actually derived or overridden.
func New(batcher *batch.Caller, c *cache.Cache, cfg Config) *Oracle {
	prices := make(map[common.Address]float64, len(cfg.Stablecoins)+2)
	prices[cfg.Wrapper] = cfg.WrapperDollar
	prices[cfg.Ecosystem] = cfg.EcosystemUSD
	for _, s := range cfg.Stablecoins {
		prices[s] = 1.0
	}
	o := &Oracle{
		batcher:       batcher,
		cache:         c,
		wrapperAddr:   cfg.Wrapper,
		ecosystemAddr: cfg.Ecosystem,
		wrapperStable: cfg.WrapperStablePool,
		ecosystemPool: cfg.EcosystemPool,
		prices:        prices,
		lastUpdate:    time.Time{},
	}
	for addr, p := range prices {
		o.cachePrice(addr, p)
	}
	return o
}

// priceCacheKey matches the "price_"+addr shape ClearTokenAnalysis already
// assumes when it invalidates a single token's cached price.
func priceCacheKey(addr common.Address) string {
	return "price_" + chain.Key(addr)
}

func (o *Oracle) cachePrice(addr common.Address, price float64) {
	if o.cache == nil {
		return
	}
	o.cache.Set(cache.PriceStore, priceCacheKey(addr), price, cache.DefaultPriceTTL)
}

// GetNativePriceUSD returns the wrapper token's current USD price.
func (o *Oracle) GetNativePriceUSD() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prices[o.wrapperAddr]
}

// GetPriceUSD returns the known USD price for addr, if any. The in-memory
// map is checked first since it always holds the freshest value this
// process has derived; PriceStore is consulted as a fallback so a price
// warmed or set by another path (or before a restart-free redeploy) is
// still visible without a second on-chain refresh.
func (o *Oracle) GetPriceUSD(addr common.Address) (float64, bool) {
	o.mu.Lock()
	p, ok := o.prices[addr]
	o.mu.Unlock()
	if ok {
		return p, true
	}
	if o.cache == nil {
		return 0, false
	}
	v, ok := o.cache.Get(cache.PriceStore, priceCacheKey(addr))
	if !ok {
		return 0, false
	}
	price, ok := v.(float64)
	return price, ok
}

// SetPriceUSD overlays a runtime price override (POST prices endpoint).
func (o *Oracle) SetPriceUSD(addr common.Address, price float64) {
	o.mu.Lock()
	o.prices[addr] = price
	o.mu.Unlock()
	o.cachePrice(addr, price)
}

// AreStale reports whether the last successful refresh is older than
// StaleThreshold.
func (o *Oracle) AreStale() bool {
	o.mu.Lock()
	last := o.lastUpdate
	o.mu.Unlock()
	return last.IsZero() || time.Since(last) > StaleThreshold
}

// RefreshFromChain re-derives the wrapper and ecosystem USD prices from the
// two named pools. Single-flight: a re-entrant caller while a refresh is in
// progress simply waits and then returns the (now fresh) cached value,
// never issuing a second upstream batch.
func (o *Oracle) RefreshFromChain(ctx context.Context) error {
	o.refreshMu.Lock()
	defer o.refreshMu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if !o.AreStale() {
		return nil
	}

	token0Data, err := chain.V3PoolABI.Pack("token0")
	if err != nil {
		return fmt.Errorf("oracle: pack token0: %w", err)
	}
	slot0Data, err := chain.V3PoolABI.Pack("slot0")
	if err != nil {
		return fmt.Errorf("oracle: pack slot0: %w", err)
	}

	calls := []batch.Call{
		batch.NewCall(o.wrapperStable.Address, token0Data),
		batch.NewCall(o.wrapperStable.Address, slot0Data),
		batch.NewCall(o.ecosystemPool.Address, token0Data),
		batch.NewCall(o.ecosystemPool.Address, slot0Data),
	}

	results, err := o.batcher.Batch(ctx, calls)
	if err != nil {
		return fmt.Errorf("oracle: refresh batch: %w", err)
	}

	wrapperPrice, wrapperOK := o.deriveWrapperPrice(results[0], results[1])
	if wrapperOK {
		o.SetPriceUSD(o.wrapperAddr, wrapperPrice)
	}

	ecosystemPrice, ecoOK := o.deriveEcosystemPrice(results[2], results[3], wrapperPrice, wrapperOK)
	if ecoOK {
		o.SetPriceUSD(o.ecosystemAddr, ecosystemPrice)
	}

	if wrapperOK || ecoOK {
		o.mu.Lock()
		o.lastUpdate = time.Now()
		o.mu.Unlock()
	}
	return nil
}

func (o *Oracle) deriveWrapperPrice(token0Res, slot0Res batch.CallResult) (float64, bool) {
	if !token0Res.Success || !slot0Res.Success {
		return 0, false
	}
	if _, err := chain.UnpackAddress(chain.V3PoolABI, "token0", token0Res.ReturnData); err != nil {
		return 0, false
	}
	slot0, err := chain.UnpackV3Slot0(slot0Res.ReturnData)
	if err != nil {
		return 0, false
	}

	ratio := CalcSqrtPriceToPrice(slot0.SqrtPriceX96, 18, 18)
	if ratio == 0 {
		return 0, false
	}

	// The pool prices token0 in terms of token1. If the wrapper is token0,
	// its USD value is 1/ratio (since the other side is the stablecoin at
	// $1); if the wrapper is token1, its USD value is the ratio directly.
	var price float64
	if o.wrapperStable.QuoteIsToken0 {
		price = ratio
	} else {
		price = 1 / ratio
	}

	if price <= wrapperMin || price >= wrapperMax {
		return 0, false
	}
	return price, true
}

func (o *Oracle) deriveEcosystemPrice(token0Res, slot0Res batch.CallResult, wrapperPrice float64, wrapperOK bool) (float64, bool) {
	if !wrapperOK || !token0Res.Success || !slot0Res.Success {
		return 0, false
	}
	slot0, err := chain.UnpackV3Slot0(slot0Res.ReturnData)
	if err != nil {
		return 0, false
	}

	ratio := CalcSqrtPriceToPrice(slot0.SqrtPriceX96, 18, 18)
	if ratio == 0 {
		return 0, false
	}

	var ecoInWrapper float64
	if o.ecosystemPool.QuoteIsToken0 {
		ecoInWrapper = 1 / ratio
	} else {
		ecoInWrapper = ratio
	}

	price := ecoInWrapper * wrapperPrice
	if price <= ecosystemMin || price >= ecosystemMax {
		return 0, false
	}
	return price, true
}

// CalcSqrtPriceToPrice returns the price of token0 in token1 given a V3
// sqrtPriceX96 and both tokens' decimals:
// (sqrtPriceX96^2 * 10^18 * 10^max(0,dec0-dec1)) / (Q96^2 * 10^max(0,dec1-dec0)),
// computed in 256-bit integers, divided to float only at the end.
func CalcSqrtPriceToPrice(sqrtPriceX96 *big.Int, dec0, dec1 int) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return 0
	}

	sqrtP, overflow := uint256.FromBig(sqrtPriceX96)
	if overflow {
		return 0
	}
	numerator := new(uint256.Int).Mul(sqrtP, sqrtP)

	scale18 := uint256.NewInt(1)
	scale18.Exp(uint256.NewInt(10), uint256.NewInt(18))
	numerator.Mul(numerator, scale18)

	if diff := dec0 - dec1; diff > 0 {
		extra := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(diff)))
		numerator.Mul(numerator, extra)
	}

	denominator, overflow := uint256.FromBig(new(big.Int).Mul(q96, q96))
	if overflow {
		return 0
	}
	if diff := dec1 - dec0; diff > 0 {
		extra := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(diff)))
		denominator.Mul(denominator, extra)
	}

	if denominator.IsZero() {
		return 0
	}
	scaled := new(uint256.Int).Div(numerator, denominator)

	scaledFloat := new(big.Float).SetInt(scaled.ToBig())
	result := new(big.Float).Quo(scaledFloat, new(big.Float).SetFloat64(1e18))
	f, _ := result.Float64()
	return f
}

// CalcPoolValueUSD returns USD TVL for a pool holding amt0Raw of token0 and
// amt1Raw of token1, using known prices where available and deriving the
// unknown side from the known side times poolPriceRatio otherwise. Returns
// 0 if neither side's price is known.
func (o *Oracle) CalcPoolValueUSD(token0, token1 common.Address, amt0Raw, amt1Raw *big.Int, dec0, dec1 int, poolPriceRatio float64) float64 {
	price0, ok0 := o.GetPriceUSD(token0)
	price1, ok1 := o.GetPriceUSD(token1)

	amt0 := toFloatUnits(amt0Raw, dec0)
	amt1 := toFloatUnits(amt1Raw, dec1)

	switch {
	case ok0 && ok1:
		return amt0*price0 + amt1*price1
	case ok0 && !ok1:
		derived := price0
		if poolPriceRatio != 0 {
			derived = price0 / poolPriceRatio
		}
		return amt0*price0 + amt1*derived
	case ok1 && !ok0:
		derived := price1
		if poolPriceRatio != 0 {
			derived = price1 * poolPriceRatio
		}
		return amt0*derived + amt1*price1
	default:
		return 0
	}
}

func toFloatUnits(raw *big.Int, decimals int) float64 {
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
