// Package chain holds the low-level EVM plumbing shared by every component:
// address canonicalization and the embedded ABI fragments used to pack and
// decode on-chain calls without pulling in per-contract generated bindings.
package chain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var hexAddrRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsHexAddress reports whether s matches the canonical 20-byte hex shape.
func IsHexAddress(s string) bool {
	return hexAddrRe.MatchString(s)
}

// ParseAddress validates and parses s into a common.Address, lowercased keys
// being the caller's concern (common.Address already normalizes case).
func ParseAddress(s string) (common.Address, error) {
	if !IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Key returns the lowercased hex string used as a cache/map key.
func Key(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// Less implements the canonical token0 < token1 bytewise-lowercased
// ordering factories use when assigning pair slots.
func Less(a, b common.Address) bool {
	return strings.Compare(Key(a), Key(b)) < 0
}

// SortPair returns (token0, token1) in canonical order.
func SortPair(a, b common.Address) (common.Address, common.Address) {
	if Less(a, b) {
		return a, b
	}
	return b, a
}

// MaskURL elides everything in a URL but the host, so RPC endpoint URLs
// (which often carry an API key in the path or query) are safe to log.
func MaskURL(raw string) string {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return "***"
	}
	scheme := raw[:idx]
	rest := raw[idx+3:]
	host := rest
	if slash := strings.IndexAny(rest, "/?"); slash >= 0 {
		host = rest[:slash]
	}
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	return fmt.Sprintf("%s://%s/***", scheme, host)
}
