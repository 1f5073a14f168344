// Package discovery enumerates candidate pool addresses for a target token
// across both protocol families, the base-token set, and (for V3) the fee
// tier set, in a single batched call.
package discovery

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/protovox/poolradar/internal/batch"
	"github.com/protovox/poolradar/internal/chain"
	"github.com/protovox/poolradar/pkg/types"
)

// FeeTiers is the closed set of V3 fee-tier choices, in basis points.
var FeeTiers = []int64{100, 500, 2500, 3000, 10000}

// Mode restricts the base-token set used for discovery.
type Mode int

const (
	// ModeFast restricts the base set to the three highest-liquidity bases.
	ModeFast Mode = iota
	// ModeFull uses all five base tokens.
	ModeFull
)

// Candidate is one discovered pool address awaiting state reconstruction.
type Candidate struct {
	Address    common.Address
	Kind       types.ProtocolKind
	OtherToken common.Address
	FeeBps     int64 // V3 only
}

func (c Candidate) dedupKey() string {
	return fmt.Sprintf("%d_%s", c.Kind, strings.ToLower(c.Address.Hex()))
}

// Discoverer finds candidate pools for a target token.
type Discoverer struct {
	batcher     *batch.Caller
	v2Factory   common.Address
	v3Factory   common.Address
	fullBases   []common.Address
	fastBases   []common.Address // the 3 highest-liquidity bases, a subset of fullBases
}

// New constructs a Discoverer against the two factory contracts and the
// curated base-token set, ordered highest-liquidity first so ModeFast can
// take a prefix.
func New(batcher *batch.Caller, v2Factory, v3Factory common.Address, basesHighestLiquidityFirst []common.Address) *Discoverer {
	fast := basesHighestLiquidityFirst
	if len(fast) > 3 {
		fast = fast[:3]
	}
	return &Discoverer{
		batcher:   batcher,
		v2Factory: v2Factory,
		v3Factory: v3Factory,
		fullBases: basesHighestLiquidityFirst,
		fastBases: fast,
	}
}

// Discover builds and dispatches one batched call enumerating every
// (protocol, base, feeTier?) combination for target, then decodes and
// deduplicates the non-zero results.
func (d *Discoverer) Discover(ctx context.Context, target common.Address, mode Mode) ([]Candidate, error) {
	bases := d.fullBases
	if mode == ModeFast {
		bases = d.fastBases
	}

	type plan struct {
		base   common.Address
		kind   types.ProtocolKind
		feeBps int64
	}
	var plans []plan

	for _, base := range bases {
		if base == target {
			continue
		}
		plans = append(plans, plan{base: base, kind: types.V2})
		for _, fee := range FeeTiers {
			plans = append(plans, plan{base: base, kind: types.V3, feeBps: fee})
		}
	}

	calls := make([]batch.Call, len(plans))
	for i, p := range plans {
		var data []byte
		var err error
		var target2 common.Address
		if p.kind == types.V2 {
			data, err = chain.V2FactoryABI.Pack("getPair", target, p.base)
			target2 = d.v2Factory
		} else {
			data, err = chain.V3FactoryABI.Pack("getPool", target, p.base, big.NewInt(p.feeBps))
			target2 = d.v3Factory
		}
		if err != nil {
			return nil, fmt.Errorf("discovery: pack plan %d: %w", i, err)
		}
		calls[i] = batch.NewCall(target2, data)
	}

	results, err := d.batcher.Batch(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("discovery: batch: %w", err)
	}

	seen := make(map[string]struct{})
	var out []Candidate

	for i, res := range results {
		if !res.Success {
			continue
		}
		p := plans[i]
		var addr common.Address
		if p.kind == types.V2 {
			addr, err = chain.UnpackAddress(chain.V2FactoryABI, "getPair", res.ReturnData)
		} else {
			addr, err = chain.UnpackAddress(chain.V3FactoryABI, "getPool", res.ReturnData)
		}
		if err != nil || addr == (common.Address{}) {
			continue
		}

		cand := Candidate{Address: addr, Kind: p.kind, OtherToken: p.base, FeeBps: p.feeBps}
		key := cand.dedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cand)
	}

	return out, nil
}
