package utils

import (
	"github.com/shopspring/decimal"
)

// RoundingStep шаг округления ежемесячного платежа (100 000 сум)
var RoundingStep = decimal.NewFromInt(100000)

// RoundDown100k округляет сумму вниз до ближайших 100 000
func RoundDown100k(x decimal.Decimal) decimal.Decimal {
	return x.Div(RoundingStep).Floor().Mul(RoundingStep)
}

// Split делит сумму на n платежей.
// Первые n-1 платежей равны номиналу, округленному вниз до 100 000,
// последний забирает остаток. Если номинал обнулился, весь остаток
// уходит в последний платеж.
func Split(total decimal.Decimal, n int) (nominal decimal.Decimal, shares []decimal.Decimal) {
	if n <= 0 {
		return decimal.Zero, nil
	}

	nominal = RoundDown100k(total.Div(decimal.NewFromInt(int64(n))))
	shares = make([]decimal.Decimal, n)

	remaining := total
	for i := 0; i < n-1; i++ {
		share := decimal.Min(nominal, remaining)
		if share.IsNegative() {
			share = decimal.Zero
		}
		shares[i] = share
		remaining = remaining.Sub(share)
	}
	shares[n-1] = remaining

	return nominal, shares
}

// Money приводит сумму к двум знакам после запятой
func Money(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}
