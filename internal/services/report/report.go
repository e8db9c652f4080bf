// Package report собирает аналитический отчёт по подпискам пользователя:
// итоги за месяц и год, разбивку по категориям, сравнение со средним пользователем.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/billing"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Reference — эталонные значения «среднего пользователя».
// Это заглушки до появления статистики по всей базе, поэтому сравнение помечается как иллюстративное.
type Reference struct {
	AvgMonthly float64 `yaml:"avg_monthly" env-default:"2500"`
	AvgCount   int     `yaml:"avg_count" env-default:"7"`
}

// DefaultReference возвращает эталонные значения по умолчанию.
func DefaultReference() Reference {
	return Reference{AvgMonthly: 2500, AvgCount: 7}
}

// CategoryNamer возвращает отображаемое имя категории.
type CategoryNamer interface {
	CategoryName(id string) string
}

// Aggregator строит отчёты.
type Aggregator struct {
	names CategoryNamer
	ref   Reference
}

// NewAggregator создаёт Aggregator.
func NewAggregator(names CategoryNamer, ref Reference) *Aggregator {
	return &Aggregator{names: names, ref: ref}
}

// Build строит отчёт по списку подписок (без отменённых). Советы заполняет вызывающий код.
// При отсутствии активных подписок все агрегаты нулевые, а DaysUntilNextBilling равен nil.
// Пустой список даёт и нулевое сравнение со средним.
func (a *Aggregator) Build(subs []models.Subscription, today time.Time) models.AnalyticsReport {
	rep := models.AnalyticsReport{
		SubscriptionsCount: len(subs),
		ByCategory:         []models.CategoryBreakdown{},
		Tips:               []models.Tip{},
	}

	var active []models.Subscription
	for _, s := range subs {
		switch s.Status {
		case models.StatusActive:
			active = append(active, s)
		case models.StatusPaused:
			rep.PausedCount++
		}
		if s.IsTrial {
			rep.TrialsCount++
		}
	}
	rep.ActiveCount = len(active)

	var total float64
	for _, s := range active {
		total += billing.Monthly(s)
	}
	rep.TotalMonthly = round(total, 2)
	rep.TotalYearly = round(total*12, 2)
	rep.ByCategory = a.categories(active, total)
	// Без подписок сравнивать не с чем: разница со «средним» была бы отрицательной по всем полям.
	rep.Comparison = models.ComparisonStats{Illustrative: true}
	if len(subs) > 0 {
		rep.Comparison = a.Compare(total, len(active))
	}

	if len(active) == 0 {
		return rep
	}

	rep.AvgSubscriptionPrice = round(total/float64(len(active)), 2)

	sorted := make([]models.Subscription, len(active))
	copy(sorted, active)
	sort.SliceStable(sorted, func(i, j int) bool {
		return billing.Monthly(sorted[i]) > billing.Monthly(sorted[j])
	})
	mostExpensive, cheapest := sorted[0], sorted[len(sorted)-1]
	rep.MostExpensive = &mostExpensive
	rep.Cheapest = &cheapest

	for _, s := range active {
		if s.NextBillingDate.IsZero() {
			continue
		}
		days := billing.DaysBetween(today, s.NextBillingDate)
		if days < 0 {
			continue
		}
		if rep.DaysUntilNextBilling == nil || days < *rep.DaysUntilNextBilling {
			d := days
			rep.DaysUntilNextBilling = &d
			rep.NextBillingAmount = s.Price
		}
	}
	return rep
}

func (a *Aggregator) categories(active []models.Subscription, total float64) []models.CategoryBreakdown {
	var order []string
	byID := make(map[string]*models.CategoryBreakdown)
	for _, s := range active {
		cat := s.Category
		if cat == "" {
			cat = models.DefaultCategory
		}
		b, ok := byID[cat]
		if !ok {
			b = &models.CategoryBreakdown{CategoryID: cat, CategoryName: a.names.CategoryName(cat)}
			byID[cat] = b
			order = append(order, cat)
		}
		b.Amount += billing.Monthly(s)
		b.Count++
	}

	res := make([]models.CategoryBreakdown, 0, len(order))
	for _, cat := range order {
		b := *byID[cat]
		if total > 0 {
			b.Percent = round(b.Amount/total*100, 1)
		}
		b.Amount = round(b.Amount, 2)
		res = append(res, b)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Amount > res[j].Amount
	})
	return res
}

// Compare сравнивает траты пользователя с эталонными значениями.
func (a *Aggregator) Compare(monthly float64, count int) models.ComparisonStats {
	st := models.ComparisonStats{
		YourMonthly:  round(monthly, 2),
		AvgMonthly:   a.ref.AvgMonthly,
		DiffMonthly:  round(monthly-a.ref.AvgMonthly, 2),
		YourCount:    count,
		AvgCount:     a.ref.AvgCount,
		DiffCount:    count - a.ref.AvgCount,
		Illustrative: true,
	}
	if a.ref.AvgMonthly > 0 {
		st.DiffPercent = round((monthly/a.ref.AvgMonthly-1)*100, 1)
	}
	switch {
	case monthly > a.ref.AvgMonthly:
		st.Position = "выше среднего"
	case monthly < a.ref.AvgMonthly:
		st.Position = "ниже среднего"
	default:
		st.Position = "на уровне среднего"
	}
	return st
}

// Forecast возвращает прогноз трат при текущем месячном уровне.
func Forecast(monthly float64) models.SpendingForecast {
	return models.SpendingForecast{
		Monthly:   round(monthly, 2),
		Quarterly: round(monthly*3, 2),
		Yearly:    round(monthly*12, 2),
		FiveYears: round(monthly*60, 2),
		TenYears:  round(monthly*120, 2),
	}
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
