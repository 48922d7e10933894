package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountInWordsUz(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "нол"},
		{7, "етти"},
		{1001, "бир минг бир"},
		{10_300_000, "ўн миллион уч юз минг"},
		{1_250_000, "бир миллион икки юз эллик минг"},
		{2_000_000_000, "икки миллиард"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AmountInWordsUz(decimal.NewFromInt(tt.amount)), "сумма %d", tt.amount)
	}

	// копейки не пишутся
	assert.Equal(t, "беш юз", AmountInWordsUz(decimal.RequireFromString("500.75")))
}
