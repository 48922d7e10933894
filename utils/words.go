package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	uzUnits  = []string{"", "бир", "икки", "уч", "тўрт", "беш", "олти", "етти", "саккиз", "тўққиз"}
	uzTens   = []string{"", "ўн", "йигирма", "ўттиз", "қирқ", "эллик", "олтимиш", "етмиш", "саксон", "тўқсон"}
	uzScales = []string{"", "минг", "миллион", "миллиард", "триллион", "квадриллион"}
)

// AmountInWordsUz возвращает целую часть суммы прописью на узбекском
func AmountInWordsUz(amount decimal.Decimal) string {
	n := amount.Abs().IntPart()
	if n == 0 {
		return "нол"
	}

	var groups []int64
	for n > 0 {
		groups = append(groups, n%1000)
		n /= 1000
	}

	var words []string
	for idx := len(groups) - 1; idx >= 0; idx-- {
		g := groups[idx]
		if g == 0 {
			continue
		}
		var part []string
		if h := g / 100; h > 0 {
			part = append(part, uzUnits[h]+" юз")
		}
		if t := (g % 100) / 10; t > 0 {
			part = append(part, uzTens[t])
		}
		if u := g % 10; u > 0 {
			part = append(part, uzUnits[u])
		}
		if idx < len(uzScales) && uzScales[idx] != "" {
			part = append(part, uzScales[idx])
		}
		words = append(words, part...)
	}

	return strings.Join(words, " ")
}
