package lib

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAddress = errors.New("invalid address")

var addrRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress validates a participant account identifier and returns its
// checksummed canonical form. All-lowercase and all-uppercase inputs are
// accepted as checksum-agnostic; a mixed-case input must already carry the
// correct checksum.
func NormalizeAddress(addr string) (string, error) {
	if addr == "" {
		return "", WrapError(ErrInvalidAddress, errors.New("address is empty"))
	}
	if !addrRegex.MatchString(addr) {
		return "", WrapError(ErrInvalidAddress, fmt.Errorf("address %q is not a 0x-prefixed 40-hex string", addr))
	}

	checksummed := common.HexToAddress(addr).Hex()

	hexPart := addr[2:]
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) && addr != checksummed {
		return "", WrapError(ErrInvalidAddress, fmt.Errorf("address %q has an invalid checksum", addr))
	}

	return checksummed, nil
}

// AddrEqual compares two addresses ignoring checksum casing.
func AddrEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// AddrShort returns a shortened address for logging.
func AddrShort(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:5] + ".." + addr[len(addr)-3:]
}

func GetRandomAddr() common.Address {
	return common.BigToAddress(big.NewInt(rand.Int63()))
}
