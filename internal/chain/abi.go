package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// These ABI fragments cover exactly the methods the engine reads. Parsed
// once at package init; inline fragments rather than full build artifacts
// since only a handful of view methods per contract are needed.
const (
	v2FactoryABIJSON = `[
		{"name":"getPair","type":"function","stateMutability":"view",
		 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],
		 "outputs":[{"name":"pair","type":"address"}]}
	]`

	v3FactoryABIJSON = `[
		{"name":"getPool","type":"function","stateMutability":"view",
		 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],
		 "outputs":[{"name":"pool","type":"address"}]}
	]`

	v2PairABIJSON = `[
		{"name":"token0","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"token1","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],
		 "outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]}
	]`

	v3PoolABIJSON = `[
		{"name":"token0","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"token1","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"name":"fee","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint24"}]},
		{"name":"liquidity","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint128"}]},
		{"name":"tickSpacing","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"int24"}]},
		{"name":"slot0","type":"function","stateMutability":"view","inputs":[],
		 "outputs":[
		   {"name":"sqrtPriceX96","type":"uint160"},
		   {"name":"tick","type":"int24"},
		   {"name":"observationIndex","type":"uint16"},
		   {"name":"observationCardinality","type":"uint16"},
		   {"name":"observationCardinalityNext","type":"uint16"},
		   {"name":"feeProtocol","type":"uint8"},
		   {"name":"unlocked","type":"bool"}
		 ]}
	]`

	erc20ABIJSON = `[
		{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
		{"name":"balanceOf","type":"function","stateMutability":"view",
		 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
	]`

	multicall3ABIJSON = `[
		{"name":"aggregate3","type":"function","stateMutability":"payable",
		 "inputs":[{"name":"calls","type":"tuple[]","components":[
		   {"name":"target","type":"address"},
		   {"name":"allowFailure","type":"bool"},
		   {"name":"callData","type":"bytes"}
		 ]}],
		 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		   {"name":"success","type":"bool"},
		   {"name":"returnData","type":"bytes"}
		 ]}]}
	]`
)

func mustParseABI(js string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic("chain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

// V2FactoryABI, V3FactoryABI, V2PairABI, V3PoolABI, ERC20ABI and
// Multicall3ABI are parsed once and shared read-only across the engine.
var (
	V2FactoryABI  = mustParseABI(v2FactoryABIJSON)
	V3FactoryABI  = mustParseABI(v3FactoryABIJSON)
	V2PairABI     = mustParseABI(v2PairABIJSON)
	V3PoolABI     = mustParseABI(v3PoolABIJSON)
	ERC20ABI      = mustParseABI(erc20ABIJSON)
	Multicall3ABI = mustParseABI(multicall3ABIJSON)
)

// Call3 mirrors Multicall3's Call3 struct: one sub-call within an aggregate3 batch.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result mirrors Multicall3's Result struct.
type Result struct {
	Success    bool
	ReturnData []byte
}

// PackAggregate3 encodes a batch of sub-calls into one aggregate3 call.
func PackAggregate3(calls []Call3) ([]byte, error) {
	type call3Tuple struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	}
	tuples := make([]call3Tuple, len(calls))
	for i, c := range calls {
		tuples[i] = call3Tuple{Target: c.Target, AllowFailure: c.AllowFailure, CallData: c.CallData}
	}
	return Multicall3ABI.Pack("aggregate3", tuples)
}

// UnpackAggregate3 decodes aggregate3's return data into positional results.
func UnpackAggregate3(data []byte) ([]Result, error) {
	type resultTuple struct {
		Success    bool
		ReturnData []byte
	}
	var out []resultTuple
	if err := Multicall3ABI.UnpackIntoInterface(&out, "aggregate3", data); err != nil {
		return nil, err
	}
	results := make([]Result, len(out))
	for i, r := range out {
		results[i] = Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}
