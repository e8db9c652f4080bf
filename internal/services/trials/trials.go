// Package trials классифицирует пробные периоды по срочности окончания.
package trials

import (
	"fmt"
	"sort"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/billing"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// CriticalLookaheadDays — окно, в котором ищутся критичные триалы для push-уведомлений.
const CriticalLookaheadDays = 3

// Classify определяет срочность по числу оставшихся дней.
func Classify(daysLeft int) models.TrialUrgency {
	switch {
	case daysLeft <= 1:
		return models.UrgencyCritical
	case daysLeft <= 3:
		return models.UrgencyWarning
	case daysLeft <= 7:
		return models.UrgencyUpcoming
	default:
		return models.UrgencySafe
	}
}

// Alerts возвращает триалы, заканчивающиеся в ближайшие lookaheadDays дней,
// отсортированные по срочности, затем по числу оставшихся дней.
// Уже закончившиеся триалы не попадают в список.
func Alerts(subs []models.Subscription, today time.Time, lookaheadDays int) []models.TrialAlert {
	alerts := make([]models.TrialAlert, 0)
	for _, s := range subs {
		if !s.IsTrial || s.TrialEndDate == nil || s.Status == models.StatusCancelled {
			continue
		}
		days := billing.DaysBetween(today, *s.TrialEndDate)
		if days < 0 || days > lookaheadDays {
			continue
		}
		alerts = append(alerts, models.TrialAlert{
			Subscription:    s,
			DaysLeft:        days,
			Urgency:         Classify(days),
			PriceAfterTrial: s.Price,
			Message:         message(s, days),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Urgency.Rank(), alerts[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		return alerts[i].DaysLeft < alerts[j].DaysLeft
	})
	return alerts
}

// Critical возвращает критичные и предупреждающие триалы в окне CriticalLookaheadDays.
func Critical(subs []models.Subscription, today time.Time) []models.TrialAlert {
	var res []models.TrialAlert
	for _, a := range Alerts(subs, today, CriticalLookaheadDays) {
		if a.Urgency == models.UrgencyCritical || a.Urgency == models.UrgencyWarning {
			res = append(res, a)
		}
	}
	return res
}

// Summarize собирает сводку по списку алертов.
func Summarize(alerts []models.TrialAlert) models.TrialsSummary {
	if len(alerts) == 0 {
		return models.TrialsSummary{Message: "У тебя нет активных триалов 👍"}
	}

	sum := models.TrialsSummary{Total: len(alerts), Alerts: alerts}
	for _, a := range alerts {
		switch a.Urgency {
		case models.UrgencyCritical:
			sum.Critical++
		case models.UrgencyWarning:
			sum.Warning++
		}
		sum.PotentialCharges += a.PriceAfterTrial
	}

	switch {
	case sum.Critical > 0:
		sum.Message = fmt.Sprintf("🔴 %d триал(ов) заканчиваются в ближайшие 1-2 дня!", sum.Critical)
	case sum.Warning > 0:
		sum.Message = fmt.Sprintf("🟡 %d триал(ов) заканчиваются в ближайшие 3 дня", sum.Warning)
	default:
		sum.Message = fmt.Sprintf("🟢 %d триал(ов) активно, всё под контролем", sum.Total)
	}
	return sum
}

func message(s models.Subscription, days int) string {
	switch {
	case days == 0:
		return fmt.Sprintf("⚠️ %s — триал заканчивается СЕГОДНЯ! Проверь, не спишутся ли деньги", s.Name)
	case days == 1:
		return fmt.Sprintf("🔴 %s — триал заканчивается ЗАВТРА! Отмени сейчас, если не нужна подписка", s.Name)
	case days <= 3:
		return fmt.Sprintf("🟡 %s — осталось %d дн. до списания %.0f₽", s.Name, days, s.Price)
	default:
		return fmt.Sprintf("🟢 %s — %d дн. до конца триала", s.Name, days)
	}
}
