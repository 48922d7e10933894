package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+998 90 123-45-67": "+998901234567",
		"998901234567":      "+998901234567",
		"901234567":         "+998901234567",
		"(90) 123 45 67":    "+998901234567",
		"12345":             "",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), "NormalizePhone(%q)", in)
	}
	assert.Equal(t, "998901234567", PhoneDigits("90 123 45 67"))
}

func TestAmountInWordsUz_Basic(t *testing.T) {
	assert.Equal(t, "нол", AmountInWordsUz(decimal.Zero))
	assert.Equal(t, "ўн беш", AmountInWordsUz(decimal.NewFromInt(15)))
	assert.Equal(t, "бир миллион тўрт юз минг", AmountInWordsUz(decimal.NewFromInt(1_400_000)))
	assert.Equal(t, "бир юз йигирма уч", AmountInWordsUz(decimal.NewFromInt(123)))
}
