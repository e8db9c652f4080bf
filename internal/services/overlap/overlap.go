// Package overlap ищет пересечения между подписками пользователя:
// сервисы, уже включённые в другую подписку, похожие сервисы одной категории
// и пары сервисов, которые выгоднее заменить бандлом.
//
// Детектор детерминирован: один и тот же набор подписок всегда даёт
// один и тот же список алертов в одном и том же порядке.
package overlap

import (
	"fmt"
	"sort"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/billing"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Приоритеты алертов: чем больше, тем важнее.
const (
	PriorityIncluded  = 5
	PriorityRedundant = 4
	PrioritySimilar   = 3
)

// Catalog описывает данные каталога, нужные детектору.
type Catalog interface {
	IncludedServices(serviceID string) []string
	SimilarClusters(category string) [][]string
	Bundles() []catalog.BundleOffer
}

// Detector ищет пересечения подписок.
type Detector struct {
	catalog Catalog
}

// NewDetector создаёт детектор поверх каталога.
func NewDetector(c Catalog) *Detector {
	return &Detector{catalog: c}
}

// Detect возвращает алерты для активных и пробных подписок, отсортированные
// по убыванию приоритета, затем по убыванию потенциальной экономии.
// Для набора меньше чем из двух подписок возвращает пустой список.
func (d *Detector) Detect(subs []models.Subscription) []models.OverlapAlert {
	active := make([]models.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.IsActiveOrTrial() {
			active = append(active, s)
		}
	}
	if len(active) < 2 {
		return []models.OverlapAlert{}
	}

	alerts := make([]models.OverlapAlert, 0)
	alerts = append(alerts, d.included(active)...)
	alerts = append(alerts, d.similar(active)...)
	alerts = append(alerts, d.bundles(active)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Priority != alerts[j].Priority {
			return alerts[i].Priority > alerts[j].Priority
		}
		return alerts[i].PotentialSaving > alerts[j].PotentialSaving
	})
	return alerts
}

// included находит сервисы, за которые пользователь платит отдельно,
// хотя они уже входят в другую его подписку.
func (d *Detector) included(subs []models.Subscription) []models.OverlapAlert {
	byService := make(map[string][]int)
	for i, s := range subs {
		if s.ServiceID != "" {
			byService[s.ServiceID] = append(byService[s.ServiceID], i)
		}
	}

	var alerts []models.OverlapAlert
	for i, sub := range subs {
		if sub.ServiceID == "" {
			continue
		}
		for _, includedID := range d.includedSet(sub) {
			for _, j := range byService[includedID] {
				if j == i {
					continue
				}
				dup := subs[j]
				saving := billing.Monthly(dup)
				alerts = append(alerts, models.OverlapAlert{
					MainSub:         sub,
					DuplicateSub:    dup,
					OverlapType:     models.OverlapIncluded,
					PotentialSaving: saving,
					Recommendation:  fmt.Sprintf("💡 %s уже входит в %s! Можно сэкономить %.0f₽/мес", dup.Name, sub.Name, saving),
					Priority:        PriorityIncluded,
				})
			}
		}
	}
	return alerts
}

func (d *Detector) includedSet(sub models.Subscription) []string {
	ids := d.catalog.IncludedServices(sub.ServiceID)
	seen := make(map[string]struct{}, len(ids)+len(sub.IncludedServices))
	res := make([]string, 0, len(ids)+len(sub.IncludedServices))
	for _, list := range [][]string{ids, sub.IncludedServices} {
		for _, id := range list {
			if id == "" || id == sub.ServiceID {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			res = append(res, id)
		}
	}
	return res
}

// similar ищет несколько сервисов из одного кластера внутри категории.
// Самый дешёвый остаётся основным, остальные помечаются как дубли.
func (d *Detector) similar(subs []models.Subscription) []models.OverlapAlert {
	var order []string
	byCategory := make(map[string][]models.Subscription)
	for _, s := range subs {
		cat := s.Category
		if cat == "" {
			cat = models.DefaultCategory
		}
		if _, ok := byCategory[cat]; !ok {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], s)
	}

	var alerts []models.OverlapAlert
	for _, cat := range order {
		group := byCategory[cat]
		if len(group) < 2 {
			continue
		}
		for _, cluster := range d.catalog.SimilarClusters(cat) {
			members := inCluster(group, cluster)
			if len(members) < 2 {
				continue
			}
			sort.SliceStable(members, func(i, j int) bool {
				return billing.Monthly(members[i]) < billing.Monthly(members[j])
			})
			cheapest := members[0]
			for _, dup := range members[1:] {
				alerts = append(alerts, models.OverlapAlert{
					MainSub:         cheapest,
					DuplicateSub:    dup,
					OverlapType:     models.OverlapSimilar,
					PotentialSaving: billing.Monthly(dup),
					Recommendation:  fmt.Sprintf("🤔 %s и %s — похожие сервисы. Нужны ли оба?", dup.Name, cheapest.Name),
					Priority:        PrioritySimilar,
				})
			}
		}
	}
	return alerts
}

func inCluster(subs []models.Subscription, cluster []string) []models.Subscription {
	set := make(map[string]struct{}, len(cluster))
	for _, id := range cluster {
		set[id] = struct{}{}
	}
	var res []models.Subscription
	for _, s := range subs {
		if _, ok := set[s.ServiceID]; ok && s.ServiceID != "" {
			res = append(res, s)
		}
	}
	return res
}

// bundles ищет пары отдельных подписок, которые дешевле взять одним бандлом.
func (d *Detector) bundles(subs []models.Subscription) []models.OverlapAlert {
	first := make(map[string]models.Subscription)
	for _, s := range subs {
		if s.ServiceID == "" {
			continue
		}
		if _, ok := first[s.ServiceID]; !ok {
			first[s.ServiceID] = s
		}
	}

	var alerts []models.OverlapAlert
	for _, offer := range d.catalog.Bundles() {
		sub1, ok1 := first[offer.Services[0]]
		sub2, ok2 := first[offer.Services[1]]
		if !ok1 || !ok2 {
			continue
		}
		current := billing.Monthly(sub1) + billing.Monthly(sub2)
		saving := current - offer.Price
		if saving <= 0 {
			continue
		}
		alerts = append(alerts, models.OverlapAlert{
			MainSub:         sub1,
			DuplicateSub:    sub2,
			OverlapType:     models.OverlapRedundant,
			PotentialSaving: saving,
			Recommendation:  fmt.Sprintf("💰 %s Экономия: %.0f₽/мес", offer.Message, saving),
			Priority:        PriorityRedundant,
		})
	}
	return alerts
}

// TotalPotentialSavings суммирует экономию, учитывая каждую дублирующую
// подписку не более одного раза.
func TotalPotentialSavings(alerts []models.OverlapAlert) float64 {
	seen := make(map[int]struct{}, len(alerts))
	var total float64
	for _, a := range alerts {
		if _, ok := seen[a.DuplicateSub.ID]; ok {
			continue
		}
		seen[a.DuplicateSub.ID] = struct{}{}
		total += a.PotentialSaving
	}
	return total
}
