// Package gateway implements the RPC gateway: an ordered set of chain
// endpoints with failure accounting, rotating failover, and linear backoff
// across retry passes.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/protovox/poolradar/internal/chain"
)

const (
	DefaultMaxRetries      = 3
	DefaultBackoffBase     = 200 * time.Millisecond
	DefaultTimeout         = 8 * time.Second
	failureSkipThreshold   = 2
	failureSkipWindow      = 60 * time.Second
)

// CallFunc is a caller-supplied read operation run against one endpoint.
type CallFunc func(ctx context.Context, client *ethclient.Client) ([]byte, error)

// endpoint tracks one RPC provider's health.
type endpoint struct {
	url    string
	client *ethclient.Client

	mu            sync.Mutex
	failureCount  int
	lastFailureAt time.Time
}

func (e *endpoint) maskedURL() string {
	return chain.MaskURL(e.url)
}

func (e *endpoint) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount++
	e.lastFailureAt = time.Now()
}

func (e *endpoint) recordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount = 0
	e.lastFailureAt = time.Time{}
}

func (e *endpoint) shouldSkip() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failureCount > failureSkipThreshold && time.Since(e.lastFailureAt) < failureSkipWindow
}

// EndpointStatus is a read-only health snapshot, for operational visibility
// only. Nothing in the engine depends on a caller reading it.
type EndpointStatus struct {
	MaskedURL     string
	FailureCount  int
	LastFailureAt time.Time
	Skipped       bool
}

// ErrAllProvidersFailed is returned once every endpoint has been tried
// across every retry pass.
type ErrAllProvidersFailed struct {
	Last error
}

func (e *ErrAllProvidersFailed) Error() string {
	return fmt.Sprintf("all rpc providers failed: %v", e.Last)
}

func (e *ErrAllProvidersFailed) Unwrap() error { return e.Last }

// Gateway fans a read operation out across an ordered, rotating set of
// endpoints with failure-aware skipping and linear backoff between passes.
type Gateway struct {
	mu         sync.Mutex
	endpoints  []*endpoint
	start      int
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout overrides the per-call timeout (default 8s).
func WithTimeout(d time.Duration) Option { return func(g *Gateway) { g.timeout = d } }

// WithMaxRetries overrides the number of full passes over the endpoint set.
func WithMaxRetries(n int) Option { return func(g *Gateway) { g.maxRetries = n } }

// WithBackoffBase overrides the linear backoff base between passes.
func WithBackoffBase(d time.Duration) Option { return func(g *Gateway) { g.backoff = d } }

// New constructs a Gateway from an ordered list of RPC URLs.
func New(urls []string, opts ...Option) (*Gateway, error) {
	if len(urls) == 0 {
		return nil, errors.New("gateway: at least one RPC endpoint is required")
	}
	g := &Gateway{
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoffBase,
	}
	for _, u := range urls {
		c, err := ethclient.Dial(u)
		if err != nil {
			return nil, fmt.Errorf("gateway: dial %s: %w", chain.MaskURL(u), err)
		}
		g.endpoints = append(g.endpoints, &endpoint{url: u, client: c})
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Snapshot returns a masked health view of every configured endpoint.
func (g *Gateway) Snapshot() []EndpointStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]EndpointStatus, len(g.endpoints))
	for i, e := range g.endpoints {
		e.mu.Lock()
		out[i] = EndpointStatus{
			MaskedURL:     e.maskedURL(),
			FailureCount:  e.failureCount,
			LastFailureAt: e.lastFailureAt,
			Skipped:       e.failureCount > failureSkipThreshold && time.Since(e.lastFailureAt) < failureSkipWindow,
		}
		e.mu.Unlock()
	}
	return out
}

// rotatingOrder returns endpoint indices starting at the current rotation
// point, wrapping around — "a successful endpoint becomes the new start".
func (g *Gateway) rotatingOrder() []int {
	g.mu.Lock()
	start := g.start
	n := len(g.endpoints)
	g.mu.Unlock()

	order := make([]int, n)
	for i := 0; i < n; i++ {
		order[i] = (start + i) % n
	}
	return order
}

func (g *Gateway) setStart(idx int) {
	g.mu.Lock()
	g.start = idx
	g.mu.Unlock()
}

// Execute runs op against endpoints in rotating order, skipping endpoints
// that have failed repeatedly and recently, retrying across up to
// maxRetries full passes with linear backoff between passes.
func (g *Gateway) Execute(ctx context.Context, op CallFunc) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		order := g.rotatingOrder()
		anySkippedAll := true

		for _, idx := range order {
			ep := g.endpoints[idx]
			if ep.shouldSkip() {
				continue
			}
			anySkippedAll = false

			callCtx, cancel := context.WithTimeout(ctx, g.timeout)
			result, err := op(callCtx, ep.client)
			cancel()

			if err == nil {
				ep.recordSuccess()
				g.setStart(idx)
				return result, nil
			}

			log.Printf("gateway: endpoint %s failed (attempt %d): %v", ep.maskedURL(), attempt, err)
			ep.recordFailure()
			lastErr = err
		}

		if anySkippedAll && lastErr == nil {
			lastErr = errors.New("gateway: every endpoint is in its failure skip window")
		}

		if attempt < g.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * g.backoff):
			}
		}
	}

	return nil, &ErrAllProvidersFailed{Last: lastErr}
}
