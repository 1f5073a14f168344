// Package batch implements the batch caller: it packs many read sub-calls
// into one Multicall3 aggregate3 call and decodes the positional results,
// transparently chunking above MaxCallsPerBatch so a single RPC payload
// stays bounded.
package batch

import (
	"context"
	"fmt"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/protovox/poolradar/internal/chain"
	"github.com/protovox/poolradar/internal/gateway"
)

// DefaultMaxCallsPerBatch bounds how many sub-calls ride in a single
// aggregate3 transaction before the Caller splits into multiple chunks.
const DefaultMaxCallsPerBatch = 300

// Call describes one sub-call to be batched. AllowFailure defaults to true
// at the call site (see NewCall) so one bad sub-call never aborts the batch.
type Call struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// NewCall builds a Call with AllowFailure defaulted to true.
func NewCall(target common.Address, callData []byte) Call {
	return Call{Target: target, AllowFailure: true, CallData: callData}
}

// CallResult is the decoded outcome of one sub-call, at the same index as
// the Call that produced it.
type CallResult struct {
	Success    bool
	ReturnData []byte
}

// Caller dispatches aggregate3 batches through the RPC Gateway.
type Caller struct {
	gw                *gateway.Gateway
	multicallAddress  common.Address
	maxCallsPerBatch  int
}

// New constructs a Caller against a deployed Multicall3 contract address.
func New(gw *gateway.Gateway, multicallAddress common.Address) *Caller {
	return &Caller{gw: gw, multicallAddress: multicallAddress, maxCallsPerBatch: DefaultMaxCallsPerBatch}
}

// WithMaxCallsPerBatch overrides the chunk size.
func (c *Caller) WithMaxCallsPerBatch(n int) *Caller {
	c.maxCallsPerBatch = n
	return c
}

// Batch executes calls, possibly across several chunked aggregate3
// transactions, and returns results in the same order as the input.
func (c *Caller) Batch(ctx context.Context, calls []Call) ([]CallResult, error) {
	results := make([]CallResult, len(calls))
	if len(calls) == 0 {
		return results, nil
	}

	chunkSize := c.maxCallsPerBatch
	if chunkSize <= 0 {
		chunkSize = DefaultMaxCallsPerBatch
	}

	for start := 0; start < len(calls); start += chunkSize {
		end := start + chunkSize
		if end > len(calls) {
			end = len(calls)
		}
		chunkResults, err := c.batchOnce(ctx, calls[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch: chunk [%d:%d]: %w", start, end, err)
		}
		copy(results[start:end], chunkResults)
	}

	return results, nil
}

func (c *Caller) batchOnce(ctx context.Context, calls []Call) ([]CallResult, error) {
	call3s := make([]chain.Call3, len(calls))
	for i, call := range calls {
		call3s[i] = chain.Call3{Target: call.Target, AllowFailure: call.AllowFailure, CallData: call.CallData}
	}

	payload, err := chain.PackAggregate3(call3s)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	target := c.multicallAddress
	raw, err := c.gw.Execute(ctx, func(ctx context.Context, client *ethclient.Client) ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: payload}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate3 call: %w", err)
	}

	decoded, err := chain.UnpackAggregate3(raw)
	if err != nil {
		return nil, fmt.Errorf("decode aggregate3 result: %w", err)
	}
	if len(decoded) != len(calls) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(decoded), len(calls))
	}

	out := make([]CallResult, len(decoded))
	for i, d := range decoded {
		out[i] = CallResult{Success: d.Success, ReturnData: d.ReturnData}
	}
	return out, nil
}

// DefaultSequentialChunkSize is the per-pool chunk size used by the pool
// fetcher's sequential fallback when both V2 and V3 aggregate3 batches fail
// outright.
const DefaultSequentialChunkSize = 8

// CallSingle executes one call directly against the gateway, bypassing
// Multicall3 entirely. Used by the sequential fallback path.
func (c *Caller) CallSingle(ctx context.Context, call Call) (CallResult, error) {
	target := call.Target
	raw, err := c.gw.Execute(ctx, func(ctx context.Context, client *ethclient.Client) ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: call.CallData}, nil)
	})
	if err != nil {
		if call.AllowFailure {
			return CallResult{Success: false}, nil
		}
		return CallResult{}, err
	}
	return CallResult{Success: true, ReturnData: raw}, nil
}
