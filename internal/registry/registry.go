// Package registry implements the token registry: address -> {symbol, name,
// decimals} resolution with a hardcoded well-known table, a TTL cache, and a
// single batched read for the uncached tail.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/protovox/poolradar/internal/batch"
	"github.com/protovox/poolradar/internal/cache"
	"github.com/protovox/poolradar/internal/chain"
	"github.com/protovox/poolradar/pkg/types"
)

// TTL is the lifetime of a resolved TokenInfo cache entry.
const TTL = time.Hour

// Registry resolves token metadata.
type Registry struct {
	batcher   *batch.Caller
	cache     *cache.Cache
	wellKnown map[common.Address]types.TokenInfo
}

// New constructs a Registry seeded with a hardcoded well-known table (the
// native wrapper, curated stablecoins, and the chain's ecosystem token).
func New(batcher *batch.Caller, c *cache.Cache, wellKnown map[common.Address]types.TokenInfo) *Registry {
	return &Registry{batcher: batcher, cache: c, wellKnown: wellKnown}
}

// GetTokenInfo resolves a single token address.
func (r *Registry) GetTokenInfo(ctx context.Context, addr common.Address) (types.TokenInfo, error) {
	if info, ok := r.wellKnown[addr]; ok {
		return info, nil
	}

	key := "token_" + chain.Key(addr)
	val, err := r.cache.GetOrFill(ctx, cache.TokenStore, key, TTL, func(ctx context.Context) (interface{}, error) {
		return r.fetchOne(ctx, addr)
	})
	if err != nil {
		return types.UnknownTokenInfo(addr), nil
	}
	info, ok := val.(types.TokenInfo)
	if !ok {
		return types.UnknownTokenInfo(addr), nil
	}
	return info, nil
}

// GetMany resolves a batch of addresses, splitting the uncached tail into
// one batched read.
func (r *Registry) GetMany(ctx context.Context, addrs []common.Address) (map[common.Address]types.TokenInfo, error) {
	out := make(map[common.Address]types.TokenInfo, len(addrs))
	var uncached []common.Address

	for _, addr := range addrs {
		if info, ok := r.wellKnown[addr]; ok {
			out[addr] = info
			continue
		}
		if val, ok := r.cache.Get(cache.TokenStore, "token_"+chain.Key(addr)); ok {
			if info, ok := val.(types.TokenInfo); ok {
				out[addr] = info
				continue
			}
		}
		uncached = append(uncached, addr)
	}

	if len(uncached) == 0 {
		return out, nil
	}

	fetched, err := r.fetchBatch(ctx, uncached)
	if err != nil {
		return nil, fmt.Errorf("registry: batch fetch: %w", err)
	}
	for addr, info := range fetched {
		out[addr] = info
		r.cache.Set(cache.TokenStore, "token_"+chain.Key(addr), info, TTL)
	}
	return out, nil
}

func (r *Registry) fetchOne(ctx context.Context, addr common.Address) (types.TokenInfo, error) {
	fetched, err := r.fetchBatch(ctx, []common.Address{addr})
	if err != nil {
		return types.TokenInfo{}, err
	}
	info, ok := fetched[addr]
	if !ok {
		return types.UnknownTokenInfo(addr), nil
	}
	return info, nil
}

// fetchBatch issues one aggregated {name, symbol, decimals} read across
// every address supplied, falling back to UNKNOWN per-field on decode
// failure rather than failing the whole call.
func (r *Registry) fetchBatch(ctx context.Context, addrs []common.Address) (map[common.Address]types.TokenInfo, error) {
	nameData, err := chain.ERC20ABI.Pack("name")
	if err != nil {
		return nil, err
	}
	symbolData, err := chain.ERC20ABI.Pack("symbol")
	if err != nil {
		return nil, err
	}
	decimalsData, err := chain.ERC20ABI.Pack("decimals")
	if err != nil {
		return nil, err
	}

	calls := make([]batch.Call, 0, len(addrs)*3)
	for _, addr := range addrs {
		calls = append(calls,
			batch.NewCall(addr, nameData),
			batch.NewCall(addr, symbolData),
			batch.NewCall(addr, decimalsData),
		)
	}

	results, err := r.batcher.Batch(ctx, calls)
	if err != nil {
		return nil, err
	}

	out := make(map[common.Address]types.TokenInfo, len(addrs))
	for i, addr := range addrs {
		nameRes := results[i*3]
		symbolRes := results[i*3+1]
		decimalsRes := results[i*3+2]

		info := types.TokenInfo{Address: addr, Symbol: "UNKNOWN", Name: "Unknown", Decimals: 18}

		if nameRes.Success {
			if name, err := chain.UnpackString(chain.ERC20ABI, "name", nameRes.ReturnData); err == nil {
				info.Name = name
			}
		}
		if symbolRes.Success {
			if symbol, err := chain.UnpackString(chain.ERC20ABI, "symbol", symbolRes.ReturnData); err == nil {
				info.Symbol = symbol
			}
		}
		if decimalsRes.Success {
			if dec, err := chain.UnpackUint8(chain.ERC20ABI, "decimals", decimalsRes.ReturnData); err == nil {
				info.Decimals = int(dec)
			}
		}

		out[addr] = info
	}
	return out, nil
}
