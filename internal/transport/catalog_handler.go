package transport

import (
	"context"
	"net/http"

	"mattress-store/internal/catalog"
	"mattress-store/internal/domain"
	"mattress-store/internal/middleware"
	"mattress-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogReader loads the joined product catalog
type CatalogReader interface {
	Load(ctx context.Context) ([]domain.Item, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Item, error)
}

// ProductListResponse is the visible part of the catalog for one query
type ProductListResponse struct {
	Products []domain.Item `json:"products"`
	Total    int           `json:"total"`
	Message  string        `json:"message,omitempty"`
}

// CatalogHandler serves the public storefront endpoints
type CatalogHandler struct {
	catalog    CatalogReader
	categories service.CategoryService
	settings   service.SettingsService
	logger     *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(
	catalog CatalogReader,
	categories service.CategoryService,
	settings service.SettingsService,
	logger *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		catalog:    catalog,
		categories: categories,
		settings:   settings,
		logger:     logger,
	}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/categories", h.ListCategories)
		r.Get("/settings", h.GetSettings)
	})
}

// ListProducts loads the whole catalog and returns the items visible for
// the ?q= search text and ?category= name
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := catalog.NewQuery(r.URL.Query().Get("q"), r.URL.Query().Get("category"))

	items, err := h.catalog.Load(r.Context())
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	visible := catalog.DeriveVisible(items, query)
	response := ProductListResponse{
		Products: visible,
		Total:    len(visible),
	}
	if len(visible) == 0 {
		response.Message = catalog.EmptyMessage(query)
	}

	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// GetProduct returns one product joined with its category name
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "product not found")
	if !ok {
		return
	}

	item, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// ListCategories returns all categories ordered by name
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// GetSettings returns the store contact information
func (h *CatalogHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

// parseID reads the {id} URL parameter. Ids are opaque to clients, so a
// malformed one is reported as not found.
func parseID(w http.ResponseWriter, r *http.Request, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, notFound)
		return uuid.Nil, false
	}
	return id, true
}
