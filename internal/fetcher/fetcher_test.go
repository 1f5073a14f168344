package fetcher

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/protovox/poolradar/internal/cache"
	"github.com/protovox/poolradar/internal/chain"
	"github.com/protovox/poolradar/internal/discovery"
	"github.com/protovox/poolradar/internal/oracle"
	"github.com/protovox/poolradar/internal/registry"
	"github.com/protovox/poolradar/pkg/types"
)

var (
	wrapperAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	stableAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestFetcher() *Fetcher {
	wellKnown := map[common.Address]types.TokenInfo{
		wrapperAddr: {Address: wrapperAddr, Symbol: "WRAP", Name: "Wrapper", Decimals: 18},
		stableAddr:  {Address: stableAddr, Symbol: "USDX", Name: "Stable", Decimals: 18},
	}
	c := cache.New()
	reg := registry.New(nil, c, wellKnown)
	o := oracle.New(nil, c, oracle.Config{
		Wrapper:       wrapperAddr,
		WrapperDollar: 600.0,
		Stablecoins:   []common.Address{stableAddr},
	})
	return New(nil, reg, o, c)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func TestProtocolStatusVariants(t *testing.T) {
	s := protocolStatus(0, 0, nil, time.Millisecond)
	assert.Equal(t, "skipped", s.Status)

	s = protocolStatus(5, 5, nil, time.Millisecond)
	assert.Equal(t, "success", s.Status)

	s = protocolStatus(5, 0, assert.AnError, time.Millisecond)
	assert.Equal(t, "failed", s.Status)
	assert.NotEmpty(t, s.Error)
}

func TestTickNearExtreme(t *testing.T) {
	assert.False(t, tickNearExtreme(nil))
	assert.False(t, tickNearExtreme(big.NewInt(0)))
	assert.True(t, tickNearExtreme(new(big.Int).Set(minTick)))
	assert.True(t, tickNearExtreme(new(big.Int).Add(minTick, big.NewInt(50))))
	assert.True(t, tickNearExtreme(new(big.Int).Sub(maxTick, big.NewInt(50))))
	assert.False(t, tickNearExtreme(new(big.Int).Add(minTick, big.NewInt(rugTickBand+1))))
}

func TestAmountFloat(t *testing.T) {
	assert.Equal(t, 0.0, amountFloat(nil, 18))
	assert.Equal(t, 0.0, amountFloat(big.NewInt(0), 18))

	raw := new(big.Int).Mul(big.NewInt(5), pow10(18))
	assert.InDelta(t, 5.0, amountFloat(raw, 18), 1e-9)
}

func TestFormatV2BalancedPool(t *testing.T) {
	f := newTestFetcher()
	cand := discovery.Candidate{Address: common.HexToAddress("0xaaaa000000000000000000000000000000000a"), Kind: types.V2}

	t0, t1 := orderTokens(wrapperAddr, stableAddr)

	reserves := chain.V2Reserves{Reserve0: pow10(18), Reserve1: pow10(18)}
	r := rawPool{candidate: cand, token0: t0, token1: t1, v2: &reserves}

	info0 := types.TokenInfo{Address: t0, Decimals: 18}
	info1 := types.TokenInfo{Address: t1, Decimals: 18}
	pool := f.formatV2(wrapperAddr, r, t0, t1, info0, info1)

	assert.Equal(t, types.V2, pool.Kind)
	assert.Equal(t, int64(DefaultV2FeeBps), pool.FeeBps)
	assert.Greater(t, pool.Liquidity.TotalUSD, 0.0)
}

func TestFormatV3RuggedWhenTickNearExtreme(t *testing.T) {
	f := newTestFetcher()
	cand := discovery.Candidate{Address: common.HexToAddress("0xbbbb000000000000000000000000000000000b"), Kind: types.V3}
	t0, t1 := orderTokens(wrapperAddr, stableAddr)

	slot0 := chain.V3Slot0{SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96), Tick: big.NewInt(0), Unlocked: true}
	r := rawPool{
		candidate: cand,
		token0:    t0,
		token1:    t1,
		v3Fee:     2500,
		v3Liq:     big.NewInt(0),
		v3Slot0:   &slot0,
	}

	pool := f.formatV3(wrapperAddr, r, t0, t1, types.TokenInfo{}, types.TokenInfo{})
	assert.Equal(t, types.StatusRugged, pool.Liquidity.Status)
	assert.NotEmpty(t, pool.Liquidity.RugReason)
}

func TestPoolCacheKeyUsesProtocolPrefix(t *testing.T) {
	addr := common.HexToAddress("0xcccc000000000000000000000000000000000c")
	assert.Equal(t, "v2_"+chain.Key(addr), poolCacheKey(types.V2, addr))
	assert.Equal(t, "v3_"+chain.Key(addr), poolCacheKey(types.V3, addr))
}

func TestEnrichAndFormatReusesCachedPoolAcrossTargets(t *testing.T) {
	f := newTestFetcher()
	cand := discovery.Candidate{Address: common.HexToAddress("0xdddd000000000000000000000000000000000d"), Kind: types.V2}
	t0, t1 := orderTokens(wrapperAddr, stableAddr)
	reserves := chain.V2Reserves{Reserve0: pow10(18), Reserve1: pow10(18)}
	raw := rawPool{candidate: cand, token0: t0, token1: t1, v2: &reserves}

	pools, err := f.enrichAndFormat(context.Background(), wrapperAddr, []rawPool{raw})
	assert.NoError(t, err)
	assert.Len(t, pools, 1)

	_, ok := f.cache.Get(cache.PoolStore, poolCacheKey(types.V2, cand.Address))
	assert.True(t, ok, "formatted pool must be cached under its v2_-prefixed key")

	// A second call with stableAddr as target must hit the cache (no second
	// registry.GetMany round trip needed) yet still re-quote price-in-USD
	// against stableAddr rather than serving wrapperAddr's cached quote.
	pools2, err := f.enrichAndFormat(context.Background(), stableAddr, []rawPool{raw})
	assert.NoError(t, err)
	assert.Len(t, pools2, 1)
	assert.Equal(t, pools[0].Price.Token0Price, pools2[0].Price.Token0Price, "target-independent fields are reused as-is")
}

func TestOrderTokensIsLexicographic(t *testing.T) {
	a := common.HexToAddress("0x0000000000000000000000000000000000000a")
	b := common.HexToAddress("0x0000000000000000000000000000000000000b")
	t0, t1 := orderTokens(b, a)
	assert.Equal(t, a, t0)
	assert.Equal(t, b, t1)
}
