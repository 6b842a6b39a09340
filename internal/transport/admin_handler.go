package transport

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"mattress-store/internal/domain"
	"mattress-store/internal/middleware"
	"mattress-store/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	// maxImageSize bounds a single uploaded image
	maxImageSize = 10 << 20
	// maxProductForm bounds a whole product form with its images
	maxProductForm = domain.MaxProductImages*maxImageSize + 1<<20
	// maxFormMemory is kept in memory, the rest of the upload spills to disk
	maxFormMemory = 32 << 20
)

// CategoryRequest represents the category create and rename payload
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SettingsRequest represents the store settings payload
type SettingsRequest struct {
	StoreName string `json:"store_name" validate:"required,max=120"`
	Slogan    string `json:"slogan" validate:"max=200"`
	Email     string `json:"email" validate:"omitempty,email"`
	WhatsApp  string `json:"whatsapp" validate:"max=30"`
	Address   string `json:"address" validate:"max=300"`
}

// SessionUser is the authenticated admin as seen by the API
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// SessionResponse confirms a valid admin session
type SessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          SessionUser `json:"user"`
}

// AdminHandler handles the authenticated product, category and settings mutations
type AdminHandler struct {
	products   service.ProductService
	categories service.CategoryService
	settings   service.SettingsService
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	products service.ProductService,
	categories service.CategoryService,
	settings service.SettingsService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		products:   products,
		categories: categories,
		settings:   settings,
		logger:     logger,
	}
}

// RegisterRoutes registers the admin routes behind the given middleware,
// which must authenticate the caller
func (h *AdminHandler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(guards...)

		r.Get("/session", h.Session)

		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)

		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{id}", h.RenameCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)

		r.Put("/settings", h.SaveSettings)
	})
}

// Session reports the caller of a valid admin token
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	role, _ := middleware.GetUserRole(r.Context())
	email, _ := middleware.GetUserEmail(r.Context())

	middleware.RespondWithJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		User:          SessionUser{ID: userID, Email: email, Role: role},
	})
}

// CreateProduct handles the multipart product form
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, cleanup, err := readProductForm(w, r)
	defer cleanup()
	if err != nil {
		h.respondFormError(w, err)
		return
	}

	product, err := h.products.Create(r.Context(), input)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// UpdateProduct overwrites a product with the submitted form
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "product not found")
	if !ok {
		return
	}

	input, cleanup, err := readProductForm(w, r)
	defer cleanup()
	if err != nil {
		h.respondFormError(w, err)
		return
	}

	product, err := h.products.Update(r.Context(), id, input)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "product not found")
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateCategory adds a category
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	category, err := h.categories.Create(r.Context(), req.Name)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// RenameCategory changes the name of a category
func (h *AdminHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "category not found")
	if !ok {
		return
	}

	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	category, err := h.categories.Rename(r.Context(), id, req.Name)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a category, leaving its products uncategorized
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "category not found")
	if !ok {
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SaveSettings replaces the store settings
func (h *AdminHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	settings, err := h.settings.Save(r.Context(), service.SettingsInput{
		StoreName: req.StoreName,
		Slogan:    req.Slogan,
		Email:     req.Email,
		WhatsApp:  req.WhatsApp,
		Address:   req.Address,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(w, r, v); err != nil {
		h.logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *AdminHandler) respondFormError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validationErr):
		middleware.RespondWithServiceError(w, err, h.logger)
	case errors.As(err, &tooLarge):
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "upload too large")
	default:
		h.logger.Debug("Product form rejected", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form body")
	}
}

// readProductForm parses a multipart or urlencoded product form. The
// returned cleanup closes the opened files and must always be called.
func readProductForm(w http.ResponseWriter, r *http.Request) (service.ProductInput, func(), error) {
	cleanup := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, maxProductForm)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return service.ProductInput{}, cleanup, err
		}
		if err := r.ParseForm(); err != nil {
			return service.ProductInput{}, cleanup, err
		}
	}

	input := service.ProductInput{
		Name:           r.PostFormValue("name"),
		Description:    r.PostFormValue("description"),
		Price:          r.PostFormValue("price"),
		Stock:          r.PostFormValue("stock"),
		CategoryID:     r.PostFormValue("category_id"),
		ImageURL:       r.PostFormValue("image_url"),
		RetainedImages: formValues(r, "retained_images"),
	}

	if raw := strings.TrimSpace(r.PostFormValue("is_featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return service.ProductInput{}, cleanup, domain.NewValidationError("is_featured", "is_featured must be true or false")
		}
		input.IsFeatured = &featured
	}

	if r.MultipartForm == nil {
		return input, cleanup, nil
	}

	headers := append(r.MultipartForm.File["images"], r.MultipartForm.File["images[]"]...)
	files := make([]multipart.File, 0, len(headers))
	cleanup = func() {
		for _, f := range files {
			f.Close()
		}
		r.MultipartForm.RemoveAll()
	}

	// Counted here so that no file is opened for an oversized batch
	if len(headers) > domain.MaxProductImages {
		return service.ProductInput{}, cleanup, domain.NewValidationError("images", fmt.Sprintf("a product can have at most %d images", domain.MaxProductImages))
	}

	for _, header := range headers {
		if header.Size > maxImageSize {
			return service.ProductInput{}, cleanup, domain.NewValidationError("images", header.Filename+" is larger than 10 MB")
		}
		if contentType := header.Header.Get("Content-Type"); contentType != "" && !strings.HasPrefix(contentType, "image/") {
			return service.ProductInput{}, cleanup, domain.NewValidationError("images", header.Filename+" is not an image")
		}

		f, err := header.Open()
		if err != nil {
			return service.ProductInput{}, cleanup, err
		}
		files = append(files, f)
		input.NewImages = append(input.NewImages, service.ImageUpload{Filename: header.Filename, Body: f})
	}

	return input, cleanup, nil
}

// formValues returns the values of a repeated field, accepting the
// name[] spelling browsers use for arrays
func formValues(r *http.Request, name string) []string {
	values := append([]string{}, r.PostForm[name]...)
	return append(values, r.PostForm[name+"[]"]...)
}
