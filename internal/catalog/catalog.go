// Package catalog предоставляет read-only индекс известных сервисов подписок:
// метаданные, включения бандлов, кластеры похожих сервисов, выгодные бандлы
// и семейства сервисов одного провайдера.
//
// Индекс строится один раз при старте и после этого не изменяется,
// поэтому безопасен для конкурентного чтения без блокировок.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

//go:embed catalog.yaml
var defaultData []byte

// ServiceRecord — запись каталога об одном сервисе.
type ServiceRecord struct {
	ID               string                `yaml:"id" json:"id"`
	Name             string                `yaml:"name" json:"name"`
	Category         string                `yaml:"category" json:"category"`
	DefaultPrice     float64               `yaml:"default_price" json:"default_price"`
	BillingCycles    []models.BillingCycle `yaml:"billing_cycles" json:"billing_cycles"`
	IncludedServices []string              `yaml:"included_services" json:"included_services,omitempty"`
	CancelURL        string                `yaml:"cancel_url" json:"cancel_url,omitempty"`
}

// Category — категория подписок.
type Category struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// BundleOffer — пара отдельных сервисов и бандл, который их заменяет.
type BundleOffer struct {
	Services []string `yaml:"services"`
	Bundle   string   `yaml:"bundle"`
	Price    float64  `yaml:"price"`
	Message  string   `yaml:"message"`
}

// Family — семейство сервисов одного провайдера.
type Family struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Prefix          string   `yaml:"prefix"`
	Bundles         []string `yaml:"bundles"`
	EstimatedSaving float64  `yaml:"estimated_saving"`
	Message         string   `yaml:"message"`
}

// Member сообщает, относится ли сервис к семейству.
func (f Family) Member(serviceID string) bool {
	return serviceID != "" && strings.HasPrefix(serviceID, f.Prefix)
}

// IsBundle сообщает, является ли сервис объединяющей подпиской семейства.
func (f Family) IsBundle(serviceID string) bool {
	for _, b := range f.Bundles {
		if b == serviceID {
			return true
		}
	}
	return false
}

type inclusion struct {
	Service  string   `yaml:"service"`
	Includes []string `yaml:"includes"`
}

type cluster struct {
	Category string   `yaml:"category"`
	Services []string `yaml:"services"`
}

type document struct {
	Categories []Category      `yaml:"categories"`
	Services   []ServiceRecord `yaml:"services"`
	Inclusions []inclusion     `yaml:"inclusions"`
	Similar    []cluster       `yaml:"similar"`
	Bundles    []BundleOffer   `yaml:"bundles"`
	Families   []Family        `yaml:"families"`
}

// Index — неизменяемый индекс каталога.
type Index struct {
	categories []Category
	services   []ServiceRecord
	byID       map[string]int
	inclusions map[string][]string
	similar    map[string][][]string
	bundles    []BundleOffer
	families   []Family
}

// Load разбирает YAML-документ каталога.
func Load(data []byte) (*Index, error) {
	const op = "catalog.Load"

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idx := &Index{
		categories: doc.Categories,
		services:   doc.Services,
		byID:       make(map[string]int, len(doc.Services)),
		inclusions: make(map[string][]string, len(doc.Inclusions)),
		similar:    make(map[string][][]string),
		bundles:    doc.Bundles,
		families:   doc.Families,
	}
	for i, s := range doc.Services {
		if s.ID == "" {
			return nil, fmt.Errorf("%s: service #%d has empty id", op, i)
		}
		if _, dup := idx.byID[s.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate service id %q", op, s.ID)
		}
		idx.byID[s.ID] = i
	}
	for _, b := range doc.Bundles {
		if len(b.Services) != 2 {
			return nil, fmt.Errorf("%s: bundle %q must pair exactly two services", op, b.Bundle)
		}
	}
	for _, inc := range doc.Inclusions {
		idx.inclusions[inc.Service] = append(idx.inclusions[inc.Service], inc.Includes...)
	}
	for _, c := range doc.Similar {
		idx.similar[c.Category] = append(idx.similar[c.Category], c.Services)
	}
	return idx, nil
}

// Default возвращает индекс встроенного каталога.
func Default() (*Index, error) {
	return Load(defaultData)
}

// MustDefault как Default, но паникует при ошибке разбора встроенного каталога.
func MustDefault() *Index {
	idx, err := Default()
	if err != nil {
		panic(err)
	}
	return idx
}

// ByID возвращает запись по идентификатору сервиса.
func (i *Index) ByID(id string) (ServiceRecord, bool) {
	pos, ok := i.byID[id]
	if !ok {
		return ServiceRecord{}, false
	}
	return i.services[pos], true
}

// ByCategory возвращает сервисы категории в порядке каталога.
func (i *Index) ByCategory(category string) []ServiceRecord {
	var res []ServiceRecord
	for _, s := range i.services {
		if s.Category == category {
			res = append(res, s)
		}
	}
	return res
}

// Search ищет сервисы по подстроке в названии или идентификаторе без учёта регистра.
func (i *Index) Search(query string) []ServiceRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var res []ServiceRecord
	for _, s := range i.services {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.ID), q) {
			res = append(res, s)
		}
	}
	return res
}

// Categories возвращает все категории.
func (i *Index) Categories() []Category {
	return i.categories
}

// CategoryName возвращает отображаемое имя категории.
func (i *Index) CategoryName(id string) string {
	for _, c := range i.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return "📦 Другое"
}

// IncludedServices возвращает объединение статической карты включений и
// included_services из записи каталога, без повторов и в стабильном порядке.
func (i *Index) IncludedServices(serviceID string) []string {
	var res []string
	seen := make(map[string]struct{})
	add := func(ids []string) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			res = append(res, id)
		}
	}
	add(i.inclusions[serviceID])
	if rec, ok := i.ByID(serviceID); ok {
		add(rec.IncludedServices)
	}
	return res
}

// SimilarClusters возвращает кластеры похожих сервисов для категории.
func (i *Index) SimilarClusters(category string) [][]string {
	return i.similar[category]
}

// Bundles возвращает выгодные бандлы.
func (i *Index) Bundles() []BundleOffer {
	return i.bundles
}

// Families возвращает семейства провайдеров.
func (i *Index) Families() []Family {
	return i.families
}
