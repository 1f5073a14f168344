package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// UnpackAddress decodes a single-address return value.
func UnpackAddress(a abi.ABI, method string, data []byte) (common.Address, error) {
	var out common.Address
	if err := a.UnpackIntoInterface(&out, method, data); err != nil {
		return common.Address{}, err
	}
	return out, nil
}

// UnpackString decodes a single-string return value.
func UnpackString(a abi.ABI, method string, data []byte) (string, error) {
	var out string
	if err := a.UnpackIntoInterface(&out, method, data); err != nil {
		return "", err
	}
	return out, nil
}

// UnpackUint8 decodes a single-uint8 return value (e.g. ERC-20 decimals).
func UnpackUint8(a abi.ABI, method string, data []byte) (uint8, error) {
	var out uint8
	if err := a.UnpackIntoInterface(&out, method, data); err != nil {
		return 0, err
	}
	return out, nil
}

// UnpackBigInt decodes a single-uintN/intN return value (balanceOf, liquidity, fee, ...).
func UnpackBigInt(a abi.ABI, method string, data []byte) (*big.Int, error) {
	var out *big.Int
	if err := a.UnpackIntoInterface(&out, method, data); err != nil {
		return nil, err
	}
	return out, nil
}

// V2Reserves is the decoded getReserves() tuple.
type V2Reserves struct {
	Reserve0           *big.Int
	Reserve1           *big.Int
	BlockTimestampLast uint32
}

// UnpackV2Reserves decodes a V2 pair's getReserves() return data.
func UnpackV2Reserves(data []byte) (V2Reserves, error) {
	var out V2Reserves
	if err := V2PairABI.UnpackIntoInterface(&out, "getReserves", data); err != nil {
		return V2Reserves{}, err
	}
	return out, nil
}

// V3Slot0 is the decoded slot0() tuple.
type V3Slot0 struct {
	SqrtPriceX96               *big.Int
	Tick                       *big.Int
	ObservationIndex           uint16
	ObservationCardinality     uint16
	ObservationCardinalityNext uint16
	FeeProtocol                uint8
	Unlocked                   bool
}

// UnpackV3Slot0 decodes a V3 pool's slot0() return data.
func UnpackV3Slot0(data []byte) (V3Slot0, error) {
	var out V3Slot0
	if err := V3PoolABI.UnpackIntoInterface(&out, "slot0", data); err != nil {
		return V3Slot0{}, err
	}
	return out, nil
}
