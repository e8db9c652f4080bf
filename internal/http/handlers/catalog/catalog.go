// Package catalog реализует HTTP-обработчики справочника сервисов.
// Справочник общий для всех пользователей и не требует авторизации.
package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/catalog"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// Index описывает используемые методы каталога.
type Index interface {
	ByID(id string) (catalog.ServiceRecord, bool)
	ByCategory(category string) []catalog.ServiceRecord
	Search(query string) []catalog.ServiceRecord
	Categories() []catalog.Category
}

type Handler struct {
	log   *slog.Logger
	index Index
}

func New(log *slog.Logger, index Index) *Handler {
	return &Handler{
		log:   log,
		index: index,
	}
}

// Search godoc
// @Summary Поиск по каталогу
// @Description Ищет сервисы по подстроке q или возвращает сервисы категории category.
// @Tags Catalog
// @Produce  json
// @Param q query string false "Подстрока названия или ID"
// @Param category query string false "ID категории"
// @Success 200 {object} map[string]any "Найденные сервисы"
// @Failure 400 {object} response.ErrorResponse "Не задан ни q, ни category"
// @Router /catalog [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.search"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	var res []catalog.ServiceRecord
	switch {
	case q != "":
		res = h.index.Search(q)
	case category != "":
		res = h.index.ByCategory(category)
	default:
		log.Info("empty catalog query")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("query parameter q or category is required"))
		return
	}
	if res == nil {
		res = []catalog.ServiceRecord{}
	}

	log.Debug("catalog search", slog.String("q", q), slog.String("category", category), slog.Int("found", len(res)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"services": res,
	}))
}

// Service godoc
// @Summary Сервис каталога
// @Tags Catalog
// @Produce  json
// @Param id path string true "ID сервиса"
// @Success 200 {object} map[string]any "Запись каталога"
// @Failure 404 {object} response.ErrorResponse "Сервис не найден"
// @Router /catalog/{id} [get]
func (h *Handler) Service(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.index.ByID(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("service not found"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"service": rec,
	}))
}

// Categories godoc
// @Summary Категории подписок
// @Tags Catalog
// @Produce  json
// @Success 200 {object} map[string]any "Категории"
// @Router /catalog/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"categories": h.index.Categories(),
	}))
}
