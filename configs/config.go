// Package configs loads the engine's YAML configuration and converts it
// into the constructor arguments each internal package expects.
package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/protovox/poolradar/internal/gateway"
	"github.com/protovox/poolradar/internal/oracle"
	"github.com/protovox/poolradar/internal/router"
)

// Config represents the entire configuration structure from config.yml.
type Config struct {
	RPCEndpoints []string     `yaml:"rpc_endpoints"`
	Gateway      GatewayYAML  `yaml:"gateway"`
	Contracts    ContractsYAML `yaml:"contracts"`
	BaseTokens   BaseTokensYAML `yaml:"base_tokens"`
	Oracle       OracleYAML   `yaml:"oracle"`
	CuratedPairs []PairYAML  `yaml:"curated_pairs"`
}

// GatewayYAML configures the RPC Gateway's timeout/retry/backoff knobs.
type GatewayYAML struct {
	TimeoutSec     int `yaml:"timeoutSec"`
	MaxRetries     int `yaml:"maxRetries"`
	BackoffBaseMs  int `yaml:"backoffBaseMs"`
}

// ContractsYAML names the deployed contracts the engine reads from.
type ContractsYAML struct {
	Multicall3 string `yaml:"multicall3"`
	V2Factory  string `yaml:"v2Factory"`
	V3Factory  string `yaml:"v3Factory"`
}

// BaseTokensYAML is the curated base-token table, highest-liquidity first,
// plus which of those are the wrapper/ecosystem/stablecoins.
type BaseTokensYAML struct {
	HighestLiquidityFirst []string `yaml:"highestLiquidityFirst"`
	Wrapper               string   `yaml:"wrapper"`
	Ecosystem             string   `yaml:"ecosystem"`
	Stablecoins           []string `yaml:"stablecoins"`
}

// OracleYAML seeds the Price Oracle's defaults and names its two refresh pools.
type OracleYAML struct {
	WrapperDollar float64 `yaml:"wrapperDollarSeed"`
	EcosystemUSD  float64 `yaml:"ecosystemDollarSeed"`

	WrapperStablePool      string `yaml:"wrapperStablePool"`
	WrapperStableQuoteIsT0 bool   `yaml:"wrapperStableQuoteIsToken0"`
	EcosystemPool          string `yaml:"ecosystemPool"`
	EcosystemQuoteIsT0     bool   `yaml:"ecosystemQuoteIsToken0"`
}

// PairYAML is one curated token pair the Router pre-warms in the background.
type PairYAML struct {
	TokenA string `yaml:"tokenA"`
	TokenB string `yaml:"tokenB"`
}

// LoadConfig reads and parses config.yml into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configs: read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("configs: parse config YAML: %w", err)
	}
	return &config, nil
}

// GatewayOptions converts the YAML gateway knobs into gateway.Option values,
// omitting any knob left at its zero value so gateway.New's own defaults apply.
func (c *Config) GatewayOptions() []gateway.Option {
	var opts []gateway.Option
	if c.Gateway.TimeoutSec > 0 {
		opts = append(opts, gateway.WithTimeout(time.Duration(c.Gateway.TimeoutSec)*time.Second))
	}
	if c.Gateway.MaxRetries > 0 {
		opts = append(opts, gateway.WithMaxRetries(c.Gateway.MaxRetries))
	}
	if c.Gateway.BackoffBaseMs > 0 {
		opts = append(opts, gateway.WithBackoffBase(time.Duration(c.Gateway.BackoffBaseMs)*time.Millisecond))
	}
	return opts
}

func parseAddr(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("configs: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAddrs(ss []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(ss))
	for _, s := range ss {
		a, err := parseAddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ToOracleConfig builds the oracle.Config the Price Oracle is seeded with.
func (c *Config) ToOracleConfig() (oracle.Config, error) {
	wrapper, err := parseAddr(c.BaseTokens.Wrapper)
	if err != nil {
		return oracle.Config{}, err
	}
	ecosystem, err := parseAddr(c.BaseTokens.Ecosystem)
	if err != nil {
		return oracle.Config{}, err
	}
	stables, err := parseAddrs(c.BaseTokens.Stablecoins)
	if err != nil {
		return oracle.Config{}, err
	}
	wrapperStablePool, err := parseAddr(c.Oracle.WrapperStablePool)
	if err != nil {
		return oracle.Config{}, err
	}
	ecosystemPool, err := parseAddr(c.Oracle.EcosystemPool)
	if err != nil {
		return oracle.Config{}, err
	}

	return oracle.Config{
		Wrapper:       wrapper,
		WrapperDollar: c.Oracle.WrapperDollar,
		Ecosystem:     ecosystem,
		EcosystemUSD:  c.Oracle.EcosystemUSD,
		Stablecoins:   stables,
		WrapperStablePool: oracle.PoolRef{
			Address:       wrapperStablePool,
			QuoteIsToken0: c.Oracle.WrapperStableQuoteIsT0,
		},
		EcosystemPool: oracle.PoolRef{
			Address:       ecosystemPool,
			QuoteIsToken0: c.Oracle.EcosystemQuoteIsT0,
		},
	}, nil
}

// ToBaseTokens parses the curated base-token table, highest-liquidity first.
func (c *Config) ToBaseTokens() ([]common.Address, error) {
	return parseAddrs(c.BaseTokens.HighestLiquidityFirst)
}

// ToStablecoins parses the stablecoin address set.
func (c *Config) ToStablecoins() ([]common.Address, error) {
	return parseAddrs(c.BaseTokens.Stablecoins)
}

// ToMulticall3 parses the deployed Multicall3 address.
func (c *Config) ToMulticall3() (common.Address, error) {
	return parseAddr(c.Contracts.Multicall3)
}

// ToFactories parses the V2 and V3 factory addresses.
func (c *Config) ToFactories() (v2, v3 common.Address, err error) {
	v2, err = parseAddr(c.Contracts.V2Factory)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	v3, err = parseAddr(c.Contracts.V3Factory)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return v2, v3, nil
}

// ToIntermediateSets splits the base-token table into the Router's
// PRIMARY (wrapper + stablecoins) and SECONDARY (ecosystem) sets.
func (c *Config) ToIntermediateSets() (router.IntermediateSets, error) {
	wrapper, err := parseAddr(c.BaseTokens.Wrapper)
	if err != nil {
		return router.IntermediateSets{}, err
	}
	ecosystem, err := parseAddr(c.BaseTokens.Ecosystem)
	if err != nil {
		return router.IntermediateSets{}, err
	}
	stables, err := c.ToStablecoins()
	if err != nil {
		return router.IntermediateSets{}, err
	}
	return router.IntermediateSets{
		Primary:   append([]common.Address{wrapper}, stables...),
		Secondary: []common.Address{ecosystem},
	}, nil
}

// ToCuratedPairs parses the background pre-warmer's curated pair list.
func (c *Config) ToCuratedPairs() ([][2]common.Address, error) {
	out := make([][2]common.Address, 0, len(c.CuratedPairs))
	for _, p := range c.CuratedPairs {
		a, err := parseAddr(p.TokenA)
		if err != nil {
			return nil, err
		}
		b, err := parseAddr(p.TokenB)
		if err != nil {
			return nil, err
		}
		out = append(out, [2]common.Address{a, b})
	}
	return out, nil
}
