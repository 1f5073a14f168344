package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackAggregate3RoundTrip(t *testing.T) {
	target := common.HexToAddress("0x1234567890123456789012345678901234567890")
	callData, err := ERC20ABI.Pack("decimals")
	require.NoError(t, err)

	calls := []Call3{
		{Target: target, AllowFailure: true, CallData: callData},
		{Target: target, AllowFailure: true, CallData: callData},
	}

	packed, err := PackAggregate3(calls)
	require.NoError(t, err)
	assert.NotEmpty(t, packed)

	method, err := Multicall3ABI.MethodById(packed[:4])
	require.NoError(t, err)
	assert.Equal(t, "aggregate3", method.Name)
}

func TestUnpackAggregate3PreservesOrder(t *testing.T) {
	type resultTuple struct {
		Success    bool
		ReturnData []byte
	}
	encoded, err := Multicall3ABI.Methods["aggregate3"].Outputs.Pack([]resultTuple{
		{Success: true, ReturnData: []byte{0x01}},
		{Success: false, ReturnData: []byte{}},
		{Success: true, ReturnData: []byte{0x02, 0x03}},
	})
	require.NoError(t, err)

	results, err := UnpackAggregate3(encoded)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.Equal(t, []byte{0x01}, results[0].ReturnData)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, []byte{0x02, 0x03}, results[2].ReturnData)
}

func TestUnpackV2Reserves(t *testing.T) {
	encoded, err := V2PairABI.Methods["getReserves"].Outputs.Pack(
		big.NewInt(1000), big.NewInt(2000), uint32(12345),
	)
	require.NoError(t, err)

	reserves, err := UnpackV2Reserves(encoded)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), reserves.Reserve0)
	assert.Equal(t, big.NewInt(2000), reserves.Reserve1)
	assert.Equal(t, uint32(12345), reserves.BlockTimestampLast)
}

func TestUnpackV3Slot0(t *testing.T) {
	encoded, err := V3PoolABI.Methods["slot0"].Outputs.Pack(
		new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(0),
		uint16(1), uint16(1), uint16(1), uint8(0), true,
	)
	require.NoError(t, err)

	slot0, err := UnpackV3Slot0(encoded)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), slot0.Tick)
	assert.True(t, slot0.Unlocked)
}
