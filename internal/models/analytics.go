package models

// OverlapType — тип найденного пересечения подписок.
type OverlapType string

const (
	// OverlapIncluded — сервис уже входит в другую подписку пользователя.
	OverlapIncluded OverlapType = "included"
	// OverlapSimilar — похожие сервисы одной категории.
	OverlapSimilar OverlapType = "similar"
	// OverlapRedundant — пару сервисов выгоднее заменить бандлом.
	OverlapRedundant OverlapType = "redundant"
	// OverlapFamilyUpgrade — выгоднее семейный тариф. Правилами пока не выдаётся.
	OverlapFamilyUpgrade OverlapType = "family"
)

// Label возвращает человекочитаемое название типа пересечения.
func (t OverlapType) Label() string {
	switch t {
	case OverlapIncluded:
		return "🔄 Уже включено"
	case OverlapSimilar:
		return "🔀 Похожие сервисы"
	case OverlapRedundant:
		return "💰 Можно объединить"
	case OverlapFamilyUpgrade:
		return "👨‍👩‍👧‍👦 Семейный план выгоднее"
	default:
		return "❓ Неизвестно"
	}
}

// OverlapAlert — пара подписок с избыточными тратами.
type OverlapAlert struct {
	MainSub         Subscription `json:"main_subscription"`
	DuplicateSub    Subscription `json:"duplicate_subscription"`
	OverlapType     OverlapType  `json:"overlap_type"`
	PotentialSaving float64      `json:"potential_saving"`
	Recommendation  string       `json:"recommendation"`
	Priority        int          `json:"priority"`
}

// TipPriority — приоритет совета.
type TipPriority string

const (
	TipHigh   TipPriority = "high"
	TipMedium TipPriority = "medium"
	TipLow    TipPriority = "low"
)

// Rank — порядок сортировки: меньше значит важнее.
func (p TipPriority) Rank() int {
	switch p {
	case TipHigh:
		return 0
	case TipMedium:
		return 1
	default:
		return 2
	}
}

// TipCategory — категория совета.
type TipCategory string

const (
	TipSaving       TipCategory = "saving"
	TipOptimization TipCategory = "optimization"
	TipReminder     TipCategory = "reminder"
	TipInsight      TipCategory = "insight"
)

// Tip — совет по оптимизации расходов.
type Tip struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	PotentialSaving float64     `json:"potential_saving"`
	Priority        TipPriority `json:"priority"`
	Category        TipCategory `json:"category"`
	Action          string      `json:"action,omitempty"`
}

// TrialUrgency — срочность окончания пробного периода.
type TrialUrgency string

const (
	UrgencyCritical TrialUrgency = "critical"
	UrgencyWarning  TrialUrgency = "warning"
	UrgencyUpcoming TrialUrgency = "upcoming"
	UrgencySafe     TrialUrgency = "safe"
)

// Rank — порядок сортировки: меньше значит срочнее.
func (u TrialUrgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyWarning:
		return 1
	case UrgencyUpcoming:
		return 2
	default:
		return 3
	}
}

// TrialAlert — информация о заканчивающемся триале.
type TrialAlert struct {
	Subscription    Subscription `json:"subscription"`
	DaysLeft        int          `json:"days_left"`
	Urgency         TrialUrgency `json:"urgency"`
	PriceAfterTrial float64      `json:"price_after_trial"`
	Message         string       `json:"message"`
}

// TrialsSummary — сводка по триалам пользователя.
type TrialsSummary struct {
	Total            int          `json:"total"`
	Critical         int          `json:"critical"`
	Warning          int          `json:"warning"`
	PotentialCharges float64      `json:"potential_charges"`
	Message          string       `json:"message"`
	Alerts           []TrialAlert `json:"alerts,omitempty"`
}

// CategoryBreakdown — траты в одной категории.
type CategoryBreakdown struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Amount       float64 `json:"amount"`
	Percent      float64 `json:"percent"`
	Count        int     `json:"count"`
}

// AnalyticsReport — полный аналитический отчёт пользователя.
// DaysUntilNextBilling равен nil, если ближайших списаний нет.
type AnalyticsReport struct {
	TotalMonthly         float64             `json:"total_monthly"`
	TotalYearly          float64             `json:"total_yearly"`
	SubscriptionsCount   int                 `json:"subscriptions_count"`
	ActiveCount          int                 `json:"active_count"`
	PausedCount          int                 `json:"paused_count"`
	TrialsCount          int                 `json:"trials_count"`
	ByCategory           []CategoryBreakdown `json:"by_category"`
	Tips                 []Tip               `json:"tips"`
	AvgSubscriptionPrice float64             `json:"avg_subscription_price"`
	MostExpensive        *Subscription       `json:"most_expensive,omitempty"`
	Cheapest             *Subscription       `json:"cheapest,omitempty"`
	NextBillingAmount    float64             `json:"next_billing_amount"`
	DaysUntilNextBilling *int                `json:"days_until_next_billing"`
	Comparison           ComparisonStats     `json:"comparison"`
}

// ComparisonStats — сравнение со «средним пользователем».
// Illustrative всегда true: эталонные значения заданы конфигом, а не посчитаны по базе.
type ComparisonStats struct {
	YourMonthly  float64 `json:"your_monthly"`
	AvgMonthly   float64 `json:"avg_monthly"`
	DiffMonthly  float64 `json:"diff_monthly"`
	DiffPercent  float64 `json:"diff_percent"`
	YourCount    int     `json:"your_count"`
	AvgCount     int     `json:"avg_count"`
	DiffCount    int     `json:"diff_count"`
	Position     string  `json:"position"`
	Illustrative bool    `json:"illustrative"`
}

// SpendingForecast — прогноз трат на разные горизонты.
type SpendingForecast struct {
	Monthly   float64 `json:"monthly"`
	Quarterly float64 `json:"quarterly"`
	Yearly    float64 `json:"yearly"`
	FiveYears float64 `json:"five_years"`
	TenYears  float64 `json:"ten_years"`
}
