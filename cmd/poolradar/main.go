// Command poolradar bootstraps the pool analysis engine: load config and
// secrets, wire the full dependency graph, run cache warmers, then block
// until a shutdown signal. No HTTP server lives here — the transport layer
// that calls Analyzer/Router is deployed separately.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/protovox/poolradar/configs"
	"github.com/protovox/poolradar/internal/analyzer"
	"github.com/protovox/poolradar/internal/batch"
	"github.com/protovox/poolradar/internal/cache"
	"github.com/protovox/poolradar/internal/discovery"
	"github.com/protovox/poolradar/internal/fetcher"
	"github.com/protovox/poolradar/internal/gateway"
	"github.com/protovox/poolradar/internal/oracle"
	"github.com/protovox/poolradar/internal/registry"
	"github.com/protovox/poolradar/internal/router"
	"github.com/protovox/poolradar/pkg/types"
)

func main() {
	defer recoverAndDelayedExit()

	// No secrets are required for a read-only service, but an RPC API key
	// suffix may be supplied this way.
	if err := godotenv.Load(); err != nil {
		log.Printf("main: no .env file loaded: %v", err)
	}

	configPath := os.Getenv("POOLRADAR_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yml"
	}

	conf, err := configs.LoadConfig(configPath)
	if err != nil {
		panic(err)
	}

	engine, err := wire(conf)
	if err != nil {
		panic(err)
	}

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	engine.warm(warmCtx)
	warmCancel()

	bgCtx, cancel := context.WithCancel(context.Background())
	go engine.router.RunBackgroundRefresh(bgCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("main: received signal %v, shutting down", sig)
	cancel()
}

// engine bundles every constructed component. The dependency graph is
// built here, at the application root — no package-level singletons.
type engine struct {
	cache      *cache.Cache
	gateway    *gateway.Gateway
	batcher    *batch.Caller
	registry   *registry.Registry
	oracle     *oracle.Oracle
	discoverer *discovery.Discoverer
	fetcher    *fetcher.Fetcher
	analyzer   *analyzer.Analyzer
	router     *router.Router

	baseTokens []common.Address
}

func wire(conf *configs.Config) (*engine, error) {
	gw, err := gateway.New(conf.RPCEndpoints, conf.GatewayOptions()...)
	if err != nil {
		return nil, err
	}

	multicall, err := conf.ToMulticall3()
	if err != nil {
		return nil, err
	}
	batcher := batch.New(gw, multicall)

	c := cache.New()

	wellKnown, err := wellKnownTable(conf)
	if err != nil {
		return nil, err
	}
	reg := registry.New(batcher, c, wellKnown)

	oracleCfg, err := conf.ToOracleConfig()
	if err != nil {
		return nil, err
	}
	orc := oracle.New(batcher, c, oracleCfg)

	v2Factory, v3Factory, err := conf.ToFactories()
	if err != nil {
		return nil, err
	}
	baseTokens, err := conf.ToBaseTokens()
	if err != nil {
		return nil, err
	}
	disc := discovery.New(batcher, v2Factory, v3Factory, baseTokens)

	fetch := fetcher.New(batcher, reg, orc, c)

	stables, err := conf.ToStablecoins()
	if err != nil {
		return nil, err
	}
	az := analyzer.New(c, disc, fetch, reg, orc, analyzer.Config{
		Wrapper:           oracleCfg.Wrapper,
		Ecosystem:         oracleCfg.Ecosystem,
		Stablecoins:       stables,
		BasesHighestFirst: baseTokens,
	})

	sets, err := conf.ToIntermediateSets()
	if err != nil {
		return nil, err
	}
	curated, err := conf.ToCuratedPairs()
	if err != nil {
		return nil, err
	}
	rt := router.New(az, sets, curated)

	return &engine{
		cache: c, gateway: gw, batcher: batcher, registry: reg, oracle: orc,
		discoverer: disc, fetcher: fetch, analyzer: az, router: rt,
		baseTokens: baseTokens,
	}, nil
}

// wellKnownTable builds the Token Registry's hardcoded table: the wrapper,
// stablecoins (each mapped to a TokenInfo; the oracle separately fixes
// their USD price at 1.00), and the ecosystem token.
func wellKnownTable(conf *configs.Config) (map[common.Address]types.TokenInfo, error) {
	wrapper, err := conf.ToOracleConfig()
	if err != nil {
		return nil, err
	}
	table := map[common.Address]types.TokenInfo{
		wrapper.Wrapper:   {Address: wrapper.Wrapper, Symbol: "WNATIVE", Name: "Wrapped Native", Decimals: 18},
		wrapper.Ecosystem: {Address: wrapper.Ecosystem, Symbol: "ECO", Name: "Ecosystem Token", Decimals: 18},
	}
	for _, s := range wrapper.Stablecoins {
		table[s] = types.TokenInfo{Address: s, Symbol: "STABLE", Name: "Stablecoin", Decimals: 18}
	}
	return table, nil
}

// warm runs the startup warmers: resolve TokenInfo for the base-token
// set, trigger one oracle refresh, then pre-run AnalyzeToken for the base
// set sequentially.
func (e *engine) warm(ctx context.Context) {
	if _, err := e.registry.GetMany(ctx, e.baseTokens); err != nil {
		log.Printf("main: warm token registry: %v", err)
	}
	if err := e.oracle.RefreshFromChain(ctx); err != nil {
		log.Printf("main: warm oracle refresh: %v", err)
	}
	for _, t := range e.baseTokens {
		if _, err := e.analyzer.AnalyzeToken(ctx, t, false); err != nil {
			log.Printf("main: warm analyze %s: %v", t.Hex(), err)
		}
	}
}

// recoverAndDelayedExit is the single process-level panic handler: a true
// unhandled exception logs and schedules a delayed exit instead of
// crashing the process mid-stack.
func recoverAndDelayedExit() {
	if r := recover(); r != nil {
		log.Printf("main: unhandled panic: %v", r)
		time.Sleep(time.Second)
		os.Exit(1)
	}
}
