package registry

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protovox/poolradar/internal/cache"
	"github.com/protovox/poolradar/internal/chain"
	"github.com/protovox/poolradar/pkg/types"
)

var (
	wrapperAddr = common.HexToAddress("0xAAAA111111111111111111111111111111111111")
	stableAddr  = common.HexToAddress("0xBBBB222222222222222222222222222222222222")
	unknownAddr = common.HexToAddress("0xCCCC333333333333333333333333333333333333")
)

func wellKnownTable() map[common.Address]types.TokenInfo {
	return map[common.Address]types.TokenInfo{
		wrapperAddr: {Address: wrapperAddr, Symbol: "WRAP", Name: "Wrapper", Decimals: 18},
		stableAddr:  {Address: stableAddr, Symbol: "USDX", Name: "Stable", Decimals: 6},
	}
}

func TestGetTokenInfoReturnsWellKnownWithoutBatching(t *testing.T) {
	r := New(nil, cache.New(), wellKnownTable())

	info, err := r.GetTokenInfo(context.Background(), wrapperAddr)
	require.NoError(t, err)
	assert.Equal(t, "WRAP", info.Symbol)
	assert.Equal(t, 18, info.Decimals)
}

func TestGetManyMixesWellKnownAndCachedWithoutBatching(t *testing.T) {
	c := cache.New()
	r := New(nil, c, wellKnownTable())

	cached := types.TokenInfo{Address: unknownAddr, Symbol: "CACHED", Name: "Cached Token", Decimals: 9}
	c.Set(cache.TokenStore, "token_"+chain.Key(unknownAddr), cached, TTL)

	out, err := r.GetMany(context.Background(), []common.Address{wrapperAddr, stableAddr, unknownAddr})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "WRAP", out[wrapperAddr].Symbol)
	assert.Equal(t, "USDX", out[stableAddr].Symbol)
	assert.Equal(t, "CACHED", out[unknownAddr].Symbol)
}

func TestGetManyEmptyInputReturnsEmptyMap(t *testing.T) {
	r := New(nil, cache.New(), wellKnownTable())
	out, err := r.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetManyAllWellKnownNeverTouchesCacheOrBatcher(t *testing.T) {
	r := New(nil, cache.New(), wellKnownTable())
	out, err := r.GetMany(context.Background(), []common.Address{wrapperAddr, stableAddr})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
