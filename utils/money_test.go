package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRoundDown100k(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want decimal.Decimal
	}{
		{d(1_428_571), d(1_400_000)},
		{d(100_000), d(100_000)},
		{d(99_999), d(0)},
		{decimal.RequireFromString("250000.75"), d(200_000)},
	}
	for _, tt := range tests {
		assert.True(t, tt.want.Equal(RoundDown100k(tt.in)), "RoundDown100k(%s)", tt.in)
	}
}

func TestSplit_RemainderGoesToLastLine(t *testing.T) {
	nominal, shares := Split(d(10_000_000), 7)

	assert.True(t, d(1_400_000).Equal(nominal))
	assert.Len(t, shares, 7)
	for i := 0; i < 6; i++ {
		assert.True(t, d(1_400_000).Equal(shares[i]), "line %d", i+1)
	}
	assert.True(t, d(1_600_000).Equal(shares[6]))

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	assert.True(t, d(10_000_000).Equal(sum))
}

func TestSplit_SmallTotal(t *testing.T) {
	nominal, shares := Split(d(250_000), 3)

	assert.True(t, nominal.IsZero())
	assert.True(t, shares[0].IsZero())
	assert.True(t, shares[1].IsZero())
	assert.True(t, d(250_000).Equal(shares[2]))
}

func TestSplit_SingleLine(t *testing.T) {
	_, shares := Split(d(3_333_333), 1)
	assert.True(t, d(3_333_333).Equal(shares[0]))
}

func TestSplit_ZeroLines(t *testing.T) {
	_, shares := Split(d(1_000_000), 0)
	assert.Nil(t, shares)
}
