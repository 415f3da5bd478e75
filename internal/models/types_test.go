package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorToAmount(t *testing.T) {
	cases := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{9999, "99.99"},
		{123456789, "1234567.89"},
		{9223372036854775807, "92233720368547758.07"},
	}

	for _, tc := range cases {
		got := MinorToAmount(tc.minor)
		assert.Equal(t, tc.want, got.StringFixed(2), "minor=%d", tc.minor)
	}
}

func TestAmountToMinor(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"0", 0},
		{"0.01", 1},
		{"99.99", 9999},
		{"1234567.89", 123456789},
		{"5.675", 568}, // rounds half away from zero
	}

	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.amount)
		require.NoError(t, err)
		assert.Equal(t, tc.want, AmountToMinor(amount), "amount=%s", tc.amount)
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for _, minor := range []int64{0, 1, 99, 9999, 123456789} {
		assert.Equal(t, minor, AmountToMinor(MinorToAmount(minor)))
	}
}
