package discovery

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/protovox/poolradar/pkg/types"
)

func addrs(n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = common.BigToAddress(common.Big1)
		out[i][19] = byte(i + 1)
	}
	return out
}

func TestNewTruncatesFastBasesToThree(t *testing.T) {
	bases := addrs(5)
	d := New(nil, common.Address{}, common.Address{}, bases)

	assert.Len(t, d.fullBases, 5)
	assert.Len(t, d.fastBases, 3)
	assert.Equal(t, bases[:3], d.fastBases)
}

func TestNewKeepsAllBasesWhenFewerThanThree(t *testing.T) {
	bases := addrs(2)
	d := New(nil, common.Address{}, common.Address{}, bases)

	assert.Len(t, d.fastBases, 2)
}

func TestFeeTiersIncludesAllFiveTiers(t *testing.T) {
	assert.Equal(t, []int64{100, 500, 2500, 3000, 10000}, FeeTiers)
}

func TestCandidateDedupKeyDistinguishesKindAndAddress(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	c1 := Candidate{Address: a, Kind: types.V2}
	c2 := Candidate{Address: a, Kind: types.V3}
	c3 := Candidate{Address: b, Kind: types.V2}
	c4 := Candidate{Address: a, Kind: types.V2}

	assert.NotEqual(t, c1.dedupKey(), c2.dedupKey(), "same address, different kind")
	assert.NotEqual(t, c1.dedupKey(), c3.dedupKey(), "different address, same kind")
	assert.Equal(t, c1.dedupKey(), c4.dedupKey())
}
