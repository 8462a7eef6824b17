package wallet

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "checksummed", in: checksummed, want: checksummed},
		{name: "lowercase", in: strings.ToLower(checksummed), want: checksummed},
		{name: "uppercase digits", in: "0x" + strings.ToUpper(checksummed[2:]), want: checksummed},
		{name: "no prefix", in: strings.ToLower(checksummed[2:]), want: checksummed},
		{name: "surrounding whitespace", in: "  " + checksummed + "\n", want: checksummed},
		{name: "second vector", in: "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", want: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"too short":    "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA",
		"too long":     "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed00",
		"non hex":      "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeZ",
		"bad checksum": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD",
		"ens style":    "vitalik.eth",
		"prefix only":  "0x",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(in)
			require.True(t, errors.Is(err, ErrInvalidAddress), "got %v", err)
		})
	}
}

func TestSameAddress(t *testing.T) {
	require.True(t, SameAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB", "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"))
	require.False(t, SameAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB", "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb"))
	require.False(t, SameAddress("garbage", "garbage"))
}
