package domain

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

var (
	ErrWalletFormat   = errors.New("domain: wallet address must be 0x followed by 40 hex characters")
	ErrWalletChecksum = errors.New("domain: wallet address checksum mismatch")
)

// ValidateWalletAddress accepts an empty value or an EVM address. Mixed-case addresses
// must carry a valid EIP-55 checksum.
func ValidateWalletAddress(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return ErrWalletFormat
	}
	body := addr[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return ErrWalletFormat
	}
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if ChecksumAddress(addr) != addr {
		return ErrWalletChecksum
	}
	return nil
}

// ChecksumAddress returns the EIP-55 form of a 0x-prefixed hex address.
func ChecksumAddress(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(addr), "0x"))
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}
