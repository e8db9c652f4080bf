// Package billing приводит цены подписок к месячному эквиваленту и
// вычисляет дату следующего списания.
//
// Периоды считаются фиксированным числом дней (7/30/90/365), а не календарными
// месяцами: сохранённые next_billing_date опираются именно на эту арифметику.
package billing

import (
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// WeeksPerMonth — среднее число недель в месяце.
const WeeksPerMonth = 4.33

const day = 24 * time.Hour

// MonthlyEquivalent возвращает стоимость подписки в пересчёте на месяц.
// Неизвестный период трактуется как помесячный.
func MonthlyEquivalent(price float64, cycle models.BillingCycle) float64 {
	switch cycle {
	case models.CycleWeekly:
		return price * WeeksPerMonth
	case models.CycleMonthly:
		return price
	case models.CycleQuarterly:
		return price / 3
	case models.CycleYearly:
		return price / 12
	case models.CycleLifetime:
		return 0
	default:
		return price
	}
}

// Monthly — MonthlyEquivalent для подписки.
func Monthly(s models.Subscription) float64 {
	return MonthlyEquivalent(s.Price, s.BillingCycle)
}

// Period возвращает длину одного периода в днях; 0 значит, что дата не продвигается.
func Period(cycle models.BillingCycle) int {
	switch cycle {
	case models.CycleWeekly:
		return 7
	case models.CycleMonthly:
		return 30
	case models.CycleQuarterly:
		return 90
	case models.CycleYearly:
		return 365
	default:
		return 0
	}
}

// NextBilling сдвигает start на целые периоды, пока дата не станет строго позже ref.
// Для LIFETIME и неизвестных периодов возвращает start без изменений.
func NextBilling(start time.Time, cycle models.BillingCycle, ref time.Time) time.Time {
	step := Period(cycle)
	if step == 0 {
		return start
	}
	next := Date(start)
	ref = Date(ref)
	for !next.After(ref) {
		next = next.AddDate(0, 0, step)
	}
	return next
}

// Date отбрасывает время суток, оставляя дату в UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween возвращает число календарных дней от from до to (может быть отрицательным).
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)) / day)
}
