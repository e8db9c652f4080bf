package bot

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const (
	textStart = "👋 Привет! Я помогу следить за подписками: напомню о списаниях, " +
		"найду дублирующиеся сервисы и подскажу, где сэкономить.\n\n" +
		"Добавьте первую подписку: /add yandex_plus\nВсе команды: /help"
	textHelp = "Команды:\n" +
		"/list — активные подписки\n" +
		"/add <сервис> [цена] [период] — добавить подписку\n" +
		"/delete <id> — удалить подписку\n" +
		"/pause <id> — приостановить\n" +
		"/resume <id> — возобновить\n" +
		"/overlaps — пересечения подписок\n" +
		"/tips — советы по экономии\n" +
		"/report — отчёт о тратах\n" +
		"/trials — пробные периоды\n" +
		"/catalog <запрос> — поиск по каталогу\n" +
		"/webapp — открыть веб-приложение"
	textUnknown       = "Неизвестная команда. Список команд: /help"
	textInternalError = "⚠️ Что-то пошло не так, попробуйте позже"
	textLimitReached  = "🔒 Достигнут лимит бесплатного тарифа. Удалите или приостановите одну из подписок"
)

var cycleNames = map[models.BillingCycle]string{
	models.CycleWeekly:    "нед.",
	models.CycleMonthly:   "мес.",
	models.CycleQuarterly: "квартал",
	models.CycleYearly:    "год",
	models.CycleLifetime:  "навсегда",
}

func money(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d ₽", int64(v))
	}
	return fmt.Sprintf("%.2f ₽", v)
}

// RenderList форматирует список подписок.
func RenderList(subs []models.Subscription) string {
	if len(subs) == 0 {
		return "У вас пока нет подписок. Добавьте: /add <сервис>"
	}
	var sb strings.Builder
	sb.WriteString("📋 Ваши подписки:\n")
	for _, s := range subs {
		fmt.Fprintf(&sb, "\n#%d %s — %s / %s", s.ID, s.Name, money(s.Price), cycleNames[s.BillingCycle])
		switch s.Status {
		case models.StatusPaused:
			sb.WriteString(" ⏸")
		case models.StatusTrial:
			sb.WriteString(" 🆓")
		}
		if s.BillingCycle != models.CycleLifetime && s.Status != models.StatusPaused {
			fmt.Fprintf(&sb, "\n   следующее списание %s", s.NextBillingDate.Format(models.DateLayout))
		}
	}
	return sb.String()
}

// RenderAdded подтверждает создание подписки.
func RenderAdded(id int, req models.DummySubscription, c Lookup) string {
	name := req.Name
	if rec, ok := c.ByID(req.ServiceID); ok {
		name = rec.Name
	}
	return fmt.Sprintf("✅ Подписка #%d «%s» добавлена", id, name)
}

// RenderOverlaps форматирует найденные пересечения.
func RenderOverlaps(alerts []models.OverlapAlert, total float64) string {
	if len(alerts) == 0 {
		return "✨ Пересечений не найдено"
	}
	var sb strings.Builder
	sb.WriteString("🔍 Найдены пересечения:\n")
	for _, a := range alerts {
		fmt.Fprintf(&sb, "\n%s: %s и %s\n%s\nЭкономия: %s/мес.\n",
			a.OverlapType.Label(), a.MainSub.Name, a.DuplicateSub.Name, a.Recommendation, money(a.PotentialSaving))
	}
	fmt.Fprintf(&sb, "\n💰 Всего можно сэкономить: %s/мес.", money(total))
	return sb.String()
}

// RenderTips форматирует советы.
func RenderTips(tips []models.Tip) string {
	if len(tips) == 0 {
		return "👍 Советов пока нет, расходы выглядят оптимально"
	}
	var sb strings.Builder
	sb.WriteString("💡 Советы:\n")
	for i, t := range tips {
		fmt.Fprintf(&sb, "\n%d. %s\n%s\n", i+1, t.Title, t.Description)
		if t.PotentialSaving > 0 {
			fmt.Fprintf(&sb, "Экономия: %s/мес.\n", money(t.PotentialSaving))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderReport форматирует аналитический отчёт.
func RenderReport(r models.AnalyticsReport) string {
	if r.SubscriptionsCount == 0 {
		return "📊 Подписок нет, отчёт пуст"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Отчёт\n\nВ месяц: %s\nВ год: %s\n", money(r.TotalMonthly), money(r.TotalYearly))
	fmt.Fprintf(&sb, "Подписок: %d (активных %d, на паузе %d, триалов %d)\n",
		r.SubscriptionsCount, r.ActiveCount, r.PausedCount, r.TrialsCount)
	if len(r.ByCategory) > 0 {
		sb.WriteString("\nПо категориям:\n")
		for _, c := range r.ByCategory {
			fmt.Fprintf(&sb, "• %s: %s (%.0f%%)\n", c.CategoryName, money(c.Amount), c.Percent)
		}
	}
	if r.MostExpensive != nil {
		fmt.Fprintf(&sb, "\nСамая дорогая: %s (%s)\n", r.MostExpensive.Name, money(r.MostExpensive.Price))
	}
	if r.DaysUntilNextBilling != nil {
		fmt.Fprintf(&sb, "Ближайшее списание через %d дн.: %s\n", *r.DaysUntilNextBilling, money(r.NextBillingAmount))
	}
	fmt.Fprintf(&sb, "\nВы тратите %s среднего пользователя (%s/мес.)",
		positionPhrase(r.Comparison.Position), money(r.Comparison.AvgMonthly))
	return sb.String()
}

func positionPhrase(position string) string {
	switch position {
	case "выше среднего":
		return "больше"
	case "ниже среднего":
		return "меньше"
	default:
		return "на уровне"
	}
}

// RenderTrials форматирует сводку по пробным периодам.
func RenderTrials(s models.TrialsSummary) string {
	if s.Total == 0 {
		return "🆓 Активных пробных периодов нет"
	}
	var sb strings.Builder
	sb.WriteString(s.Message)
	for _, a := range s.Alerts {
		sb.WriteString("\n" + a.Message)
	}
	return sb.String()
}

// RenderCatalog форматирует результаты поиска по каталогу.
func RenderCatalog(query string, found []catalog.ServiceRecord) string {
	if len(found) == 0 {
		return fmt.Sprintf("По запросу «%s» ничего не найдено", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 Найдено по запросу «%s»:\n", query)
	for _, s := range found {
		fmt.Fprintf(&sb, "\n%s — %s (id: %s)", s.Name, money(s.DefaultPrice), s.ID)
	}
	sb.WriteString("\n\nДобавить: /add <id>")
	return sb.String()
}

// WebAppLink добавляет токен к адресу веб-приложения.
func WebAppLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
