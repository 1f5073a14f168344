package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestWarningSeverityRank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, len(severityRank), WarningSeverity("UNKNOWN").Rank())
}

func TestPoolFeePercent(t *testing.T) {
	p := Pool{FeeBps: 3000}
	assert.Equal(t, 0.3, p.FeePercent())

	p.FeeBps = 100
	assert.Equal(t, 0.01, p.FeePercent())
}

func TestPoolPairAndTargetToken(t *testing.T) {
	target := common.HexToAddress("0x1111111111111111111111111111111111111111")
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")

	p := Pool{
		Token0: TokenInfo{Address: target, Symbol: "T"},
		Token1: TokenInfo{Address: other, Symbol: "O"},
	}
	assert.Equal(t, "O", p.PairToken(target).Symbol)
	assert.Equal(t, "T", p.TargetToken(target).Symbol)

	// target is token1 instead
	p2 := Pool{
		Token0: TokenInfo{Address: other, Symbol: "O"},
		Token1: TokenInfo{Address: target, Symbol: "T"},
	}
	assert.Equal(t, "O", p2.PairToken(target).Symbol)
	assert.Equal(t, "T", p2.TargetToken(target).Symbol)
}
