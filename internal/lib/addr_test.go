package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddressLowercase(t *testing.T) {
	addr, err := NormalizeAddress("0x60ebdc73d89a9f02d1ca0ebcd842650873c4dec2")
	require.NoError(t, err)
	assert.Equal(t, "0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2", addr)
}

func TestNormalizeAddressChecksummedIdempotent(t *testing.T) {
	addr, err := NormalizeAddress("0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2")
	require.NoError(t, err)
	assert.Equal(t, "0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2", addr)
}

func TestNormalizeAddressInvalid(t *testing.T) {
	cases := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"no prefix", "60EbdC73d89a9f02D1cA0EbcD842650873c4dec2"},
		{"too short", "0x60EbdC73d89a9f02D1cA0EbcD842650873c4de"},
		{"too long", "0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2ff"},
		{"not hex", "0x60EbdC73d89a9f02D1cA0EbcD842650873c4dezz"},
		{"bad checksum", "0x60ebdC73d89a9f02D1cA0EbcD842650873c4dec2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeAddress(tc.addr)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestAddrEqual(t *testing.T) {
	assert.True(t, AddrEqual("0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2", "0x60ebdc73d89a9f02d1ca0ebcd842650873c4dec2"))
	assert.False(t, AddrEqual("0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2", "0x0000000000000000000000000000000000000001"))
}

func TestAddrShort(t *testing.T) {
	assert.Equal(t, "0x60E..ec2", AddrShort("0x60EbdC73d89a9f02D1cA0EbcD842650873c4dec2"), "should correctly shorten address")
	assert.Equal(t, "test", AddrShort("test"), "shorter strings should remain")
}
