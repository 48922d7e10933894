package utils

import (
	"strings"
	"unicode"
)

// NormalizePhone приводит номер к формату +998XXXXXXXXX.
// Берутся последние 9 цифр номера. Если цифр меньше 9, возвращается пустая строка.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) < 9 {
		return ""
	}
	return "+998" + digits[len(digits)-9:]
}

// PhoneDigits возвращает номер без знака плюс, в формате SMS шлюза
func PhoneDigits(phone string) string {
	return strings.TrimPrefix(NormalizePhone(phone), "+")
}
