package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
rpc_endpoints:
  - "https://rpc1.example.com"
  - "https://rpc2.example.com"
gateway:
  timeoutSec: 5
  maxRetries: 2
  backoffBaseMs: 100
contracts:
  multicall3: "0x1111111111111111111111111111111111111111"
  v2Factory: "0x2222222222222222222222222222222222222222"
  v3Factory: "0x3333333333333333333333333333333333333333"
base_tokens:
  highestLiquidityFirst:
    - "0x4444444444444444444444444444444444444444"
    - "0x5555555555555555555555555555555555555555"
  wrapper: "0x4444444444444444444444444444444444444444"
  ecosystem: "0x5555555555555555555555555555555555555555"
  stablecoins:
    - "0x6666666666666666666666666666666666666666"
oracle:
  wrapperDollarSeed: 600.0
  ecosystemDollarSeed: 2.0
  wrapperStablePool: "0x7777777777777777777777777777777777777777"
  wrapperStableQuoteIsToken0: true
  ecosystemPool: "0x8888888888888888888888888888888888888888"
  ecosystemQuoteIsToken0: false
curated_pairs:
  - tokenA: "0x4444444444444444444444444444444444444444"
    tokenB: "0x6666666666666666666666666666666666666666"
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadConfigParsesAllSections(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.RPCEndpoints, 2)
	assert.Equal(t, 5, cfg.Gateway.TimeoutSec)
	assert.Equal(t, 600.0, cfg.Oracle.WrapperDollar)
	assert.Len(t, cfg.CuratedPairs, 1)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestGatewayOptionsOmitsZeroValues(t *testing.T) {
	cfg := &Config{}
	assert.Empty(t, cfg.GatewayOptions())

	cfg.Gateway.TimeoutSec = 5
	assert.Len(t, cfg.GatewayOptions(), 1)
}

func TestToMulticall3AndFactories(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	mc, err := cfg.ToMulticall3()
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", mc.Hex())

	v2, v3, err := cfg.ToFactories()
	require.NoError(t, err)
	assert.NotEqual(t, v2, v3)
}

func TestToOracleConfigRejectsInvalidAddress(t *testing.T) {
	cfg := &Config{BaseTokens: BaseTokensYAML{Wrapper: "not-an-address"}}
	_, err := cfg.ToOracleConfig()
	assert.Error(t, err)
}

func TestToIntermediateSetsSplitsPrimaryAndSecondary(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	sets, err := cfg.ToIntermediateSets()
	require.NoError(t, err)
	assert.Len(t, sets.Primary, 2, "wrapper + one stablecoin")
	assert.Len(t, sets.Secondary, 1)
}

func TestToCuratedPairs(t *testing.T) {
	path := writeSampleConfig(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	pairs, err := cfg.ToCuratedPairs()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.NotEqual(t, pairs[0][0], pairs[0][1])
}

func TestGatewayOptionsCountsOnlyNonZeroKnobs(t *testing.T) {
	cfg := &Config{}
	cfg.Gateway.TimeoutSec = 3
	cfg.Gateway.MaxRetries = 2
	assert.Len(t, cfg.GatewayOptions(), 2)
}
