package utils

import "time"

// DaysIn возвращает количество дней в месяце
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay возвращает дату с днем, ограниченным длиной месяца
func ClampDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	// нормализуем переполнение месяца
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := DaysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

// AddMonthsClamped сдвигает дату на k календарных месяцев и ставит день платежа
func AddMonthsClamped(t time.Time, k int, payDay int) time.Time {
	return ClampDay(t.Year(), t.Month()+time.Month(k), payDay, t.Location())
}

// FirstDueDate возвращает дату первого ежемесячного платежа.
// Если день платежа уже прошел в месяце старта, берется следующий месяц.
func FirstDueDate(start time.Time, payDay int) time.Time {
	if payDay < start.Day() {
		return AddMonthsClamped(start, 1, payDay)
	}
	return AddMonthsClamped(start, 0, payDay)
}

// StartOfDay обрезает время до полуночи
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
