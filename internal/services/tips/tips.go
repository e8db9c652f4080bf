// Package tips формирует список советов по оптимизации расходов на подписки
// на основе фиксированного набора эвристик.
package tips

import (
	"fmt"
	"sort"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/billing"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Thresholds — настраиваемые константы эвристик.
// Доли «можно сэкономить» являются оценками, а не измерениями.
type Thresholds struct {
	MaxTips              int     `yaml:"max_tips" env-default:"10"`
	HighSpendMonthly     float64 `yaml:"high_spend_monthly" env-default:"5000"`
	HighSpendRecoverable float64 `yaml:"high_spend_recoverable" env-default:"0.2"`
	CrowdedCategorySize  int     `yaml:"crowded_category_size" env-default:"3"`
	CrowdedRecoverable   float64 `yaml:"crowded_recoverable" env-default:"0.3"`
	AnnualizePriceFrom   float64 `yaml:"annualize_price_from" env-default:"300"`
	AnnualSavingRate     float64 `yaml:"annual_saving_rate" env-default:"0.15"`
	TrialWindowDays      int     `yaml:"trial_window_days" env-default:"7"`
	SecurityCategory     string  `yaml:"security_category" env-default:"vpn"`
	StreamingCategory    string  `yaml:"streaming_category" env-default:"streaming"`
	StreamingMonthly     float64 `yaml:"streaming_monthly" env-default:"1500"`
	StreamingRecoverable float64 `yaml:"streaming_recoverable" env-default:"0.4"`
	ReferenceIncome      float64 `yaml:"reference_income" env-default:"80000"`
	WantsShareOfIncome   float64 `yaml:"wants_share_of_income" env-default:"0.3"`
}

// DefaultThresholds возвращает значения по умолчанию.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxTips:              10,
		HighSpendMonthly:     5000,
		HighSpendRecoverable: 0.2,
		CrowdedCategorySize:  3,
		CrowdedRecoverable:   0.3,
		AnnualizePriceFrom:   300,
		AnnualSavingRate:     0.15,
		TrialWindowDays:      7,
		SecurityCategory:     "vpn",
		StreamingCategory:    "streaming",
		StreamingMonthly:     1500,
		StreamingRecoverable: 0.4,
		ReferenceIncome:      80000,
		WantsShareOfIncome:   0.3,
	}
}

// Catalog описывает данные каталога, нужные движку советов.
type Catalog interface {
	Families() []catalog.Family
	CategoryName(id string) string
}

// Engine генерирует советы.
type Engine struct {
	cfg     Thresholds
	catalog Catalog
}

// NewEngine создаёт движок советов.
func NewEngine(cfg Thresholds, c Catalog) *Engine {
	return &Engine{cfg: cfg, catalog: c}
}

// Generate возвращает не более MaxTips советов, отсортированных по приоритету,
// затем по убыванию потенциальной экономии.
func (e *Engine) Generate(subs []models.Subscription, today time.Time) []models.Tip {
	if len(subs) == 0 {
		return []models.Tip{{
			Title:       "🚀 Начни отслеживать",
			Description: "Добавь свои подписки, чтобы видеть полную картину расходов",
			Priority:    models.TipHigh,
			Category:    models.TipInsight,
			Action:      "add_subscription",
		}}
	}

	var active []models.Subscription
	for _, s := range subs {
		if s.Status == models.StatusActive {
			active = append(active, s)
		}
	}
	total := sumMonthly(active)

	var tips []models.Tip
	tips = append(tips, e.highSpend(total)...)
	tips = append(tips, e.crowdedCategories(active)...)
	tips = append(tips, e.annualBilling(active)...)
	tips = append(tips, e.paused(subs)...)
	tips = append(tips, e.expiringTrials(subs, today)...)
	tips = append(tips, e.families(active)...)
	tips = append(tips, e.security(active)...)
	tips = append(tips, e.streaming(active)...)
	if total > 0 {
		tips = append(tips, e.budgetRule())
	}

	sort.SliceStable(tips, func(i, j int) bool {
		ri, rj := tips[i].Priority.Rank(), tips[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return tips[i].PotentialSaving > tips[j].PotentialSaving
	})
	if e.cfg.MaxTips > 0 && len(tips) > e.cfg.MaxTips {
		tips = tips[:e.cfg.MaxTips]
	}
	return tips
}

func (e *Engine) highSpend(total float64) []models.Tip {
	if total <= e.cfg.HighSpendMonthly {
		return nil
	}
	return []models.Tip{{
		Title: "💸 Высокие траты на подписки",
		Description: fmt.Sprintf("Ты тратишь %.0f₽/мес на подписки. Это %.0f₽ в год! Проверь, все ли сервисы ты используешь.",
			total, total*12),
		PotentialSaving: total * e.cfg.HighSpendRecoverable,
		Priority:        models.TipHigh,
		Category:        models.TipSaving,
		Action:          "duplicates",
	}}
}

func (e *Engine) crowdedCategories(active []models.Subscription) []models.Tip {
	var order []string
	byCategory := make(map[string][]models.Subscription)
	for _, s := range active {
		cat := s.Category
		if cat == "" {
			cat = models.DefaultCategory
		}
		if _, ok := byCategory[cat]; !ok {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], s)
	}

	var tips []models.Tip
	for _, cat := range order {
		group := byCategory[cat]
		if len(group) < e.cfg.CrowdedCategorySize {
			continue
		}
		name := e.catalog.CategoryName(cat)
		catTotal := sumMonthly(group)
		tips = append(tips, models.Tip{
			Title: fmt.Sprintf("📊 Много подписок: %s", name),
			Description: fmt.Sprintf("У тебя %d подписок в категории «%s» на сумму %.0f₽/мес. Возможно, некоторые дублируют друг друга?",
				len(group), name, catTotal),
			PotentialSaving: catTotal * e.cfg.CrowdedRecoverable,
			Priority:        models.TipMedium,
			Category:        models.TipOptimization,
		})
	}
	return tips
}

func (e *Engine) annualBilling(active []models.Subscription) []models.Tip {
	var count int
	var saving float64
	for _, s := range active {
		if s.BillingCycle == models.CycleMonthly && s.Price >= e.cfg.AnnualizePriceFrom {
			count++
			saving += s.Price * e.cfg.AnnualSavingRate
		}
	}
	if count == 0 {
		return nil
	}
	return []models.Tip{{
		Title:           "📅 Переходи на годовые подписки",
		Description:     fmt.Sprintf("У тебя %d помесячных подписок. Годовая оплата обычно на 15-20%% дешевле.", count),
		PotentialSaving: saving,
		Priority:        models.TipMedium,
		Category:        models.TipSaving,
	}}
}

func (e *Engine) paused(subs []models.Subscription) []models.Tip {
	var count int
	for _, s := range subs {
		if s.Status == models.StatusPaused {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return []models.Tip{{
		Title:       "⏸️ Подписки на паузе",
		Description: fmt.Sprintf("У тебя %d подписок на паузе. Если не планируешь возобновлять — отмени их.", count),
		Priority:    models.TipLow,
		Category:    models.TipOptimization,
	}}
}

func (e *Engine) expiringTrials(subs []models.Subscription, today time.Time) []models.Tip {
	var count int
	var charges float64
	for _, s := range subs {
		if !s.IsTrial || s.TrialEndDate == nil {
			continue
		}
		days := billing.DaysBetween(today, *s.TrialEndDate)
		if days < 0 || days > e.cfg.TrialWindowDays {
			continue
		}
		count++
		charges += s.Price
	}
	if count == 0 {
		return nil
	}
	return []models.Tip{{
		Title: "⏱️ Триалы заканчиваются!",
		Description: fmt.Sprintf("%d пробных периодов истекают в ближайшие %d дней. Если не отменить — спишется %.0f₽",
			count, e.cfg.TrialWindowDays, charges),
		PotentialSaving: charges,
		Priority:        models.TipHigh,
		Category:        models.TipReminder,
		Action:          "trials",
	}}
}

func (e *Engine) families(active []models.Subscription) []models.Tip {
	var tips []models.Tip
	for _, f := range e.catalog.Families() {
		var members int
		var hasBundle bool
		for _, s := range active {
			if !f.Member(s.ServiceID) {
				continue
			}
			members++
			if f.IsBundle(s.ServiceID) {
				hasBundle = true
			}
		}
		if members < 2 || hasBundle {
			continue
		}
		tips = append(tips, models.Tip{
			Title:           fmt.Sprintf("🧩 Объедини сервисы: %s", f.Name),
			Description:     fmt.Sprintf("У тебя несколько подписок %s. %s", f.Name, f.Message),
			PotentialSaving: f.EstimatedSaving,
			Priority:        models.TipHigh,
			Category:        models.TipSaving,
			Action:          "duplicates",
		})
	}
	return tips
}

func (e *Engine) security(active []models.Subscription) []models.Tip {
	var prices []float64
	for _, s := range active {
		if s.Category == e.cfg.SecurityCategory {
			prices = append(prices, billing.Monthly(s))
		}
	}
	if len(prices) < 2 {
		return nil
	}
	sort.Float64s(prices)
	var saving float64
	for _, p := range prices[1:] {
		saving += p
	}
	return []models.Tip{{
		Title:           "🔒 Несколько VPN?",
		Description:     "У тебя больше одного VPN-сервиса. Обычно достаточно одного надёжного.",
		PotentialSaving: saving,
		Priority:        models.TipMedium,
		Category:        models.TipOptimization,
	}}
}

func (e *Engine) streaming(active []models.Subscription) []models.Tip {
	var total float64
	for _, s := range active {
		if s.Category == e.cfg.StreamingCategory {
			total += billing.Monthly(s)
		}
	}
	if total <= e.cfg.StreamingMonthly {
		return nil
	}
	return []models.Tip{{
		Title: "🎬 Много стримингов",
		Description: fmt.Sprintf("На видео-сервисы уходит %.0f₽/мес. Возможно, стоит чередовать подписки, а не держать все сразу?",
			total),
		PotentialSaving: total * e.cfg.StreamingRecoverable,
		Priority:        models.TipMedium,
		Category:        models.TipInsight,
	}}
}

func (e *Engine) budgetRule() models.Tip {
	return models.Tip{
		Title: "💡 Знаешь правило 50/30/20?",
		Description: fmt.Sprintf("Подписки относятся к «желаниям» (30%% бюджета). При доходе %.0f₽ это максимум %.0f₽/мес на все развлечения.",
			e.cfg.ReferenceIncome, e.cfg.ReferenceIncome*e.cfg.WantsShareOfIncome),
		Priority: models.TipLow,
		Category: models.TipInsight,
	}
}

func sumMonthly(subs []models.Subscription) float64 {
	var total float64
	for _, s := range subs {
		total += billing.Monthly(s)
	}
	return total
}
