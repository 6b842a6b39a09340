package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"mattress-store/internal/catalog"
	"mattress-store/internal/domain"
	"mattress-store/internal/middleware"
	"mattress-store/internal/service"
	"mattress-store/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type testEnv struct {
	router     http.Handler
	products   *mockProductRepository
	categories *mockCategoryRepository
	settings   *mockSettingsRepository
	fs         afero.Fs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	bucket, err := storage.NewBucket(fs, "products", "http://localhost:8080/storage")
	require.NoError(t, err)

	env := &testEnv{
		products:   newMockProductRepository(),
		categories: newMockCategoryRepository(),
		settings:   &mockSettingsRepository{},
		fs:         fs,
	}

	logger := zap.NewNop()
	productService := service.NewProductService(env.products, bucket, logger)
	categoryService := service.NewCategoryService(env.categories)
	settingsService := service.NewSettingsService(env.settings)

	router := chi.NewRouter()
	NewCatalogHandler(catalog.NewLoader(env.products, env.categories, logger), categoryService, settingsService, logger).
		RegisterRoutes(router)
	NewAdminHandler(productService, categoryService, settingsService, logger).
		RegisterRoutes(router,
			middleware.AuthMiddleware(testSecret, logger),
			middleware.RequireRole([]string{"authenticated"}, logger),
		)

	env.router = router
	return env
}

func (e *testEnv) addCategory(name string) *domain.Category {
	category := &domain.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	e.categories.categories[category.ID] = category
	return category
}

func (e *testEnv) addProduct(name, description string, category *domain.Category, age time.Duration) *domain.Product {
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString("1999.90"),
		CreatedAt: time.Now().Add(-age),
		UpdatedAt: time.Now().Add(-age),
	}
	if description != "" {
		product.Description = &description
	}
	if category != nil {
		product.CategoryID = &category.ID
	}
	e.products.products[product.ID] = product
	return product
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "admin-1",
		"role":  role,
		"email": "admin@loja.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func adminRequest(t *testing.T, method, path string, body io.Reader, contentType string) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "authenticated"))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

type formFile struct {
	name        string
	contentType string
	content     string
}

func productForm(t *testing.T, fields map[string][]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, values := range fields {
		for _, value := range values {
			require.NoError(t, writer.WriteField(name, value))
		}
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, f.name))
		header.Set("Content-Type", f.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) ProductListResponse {
	t.Helper()
	var response ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func names(items []domain.Item) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, item.Name)
	}
	return result
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	mattresses := env.addCategory("Colchões")
	pillows := env.addCategory("Travesseiros")
	env.addProduct("Colchão Casal Molas", "", mattresses, 3*time.Hour)
	env.addProduct("Colchão Solteiro", "espuma D33 para casal jovem", mattresses, 2*time.Hour)
	env.addProduct("Travesseiro Nasa", "", pillows, time.Hour)
	env.addProduct("Protetor Casal", "", nil, 0)

	tests := []struct {
		name    string
		query   string
		want    []string
		message string
	}{
		{"everything newest first", "", []string{"Protetor Casal", "Travesseiro Nasa", "Colchão Solteiro", "Colchão Casal Molas"}, ""},
		{"search matches name and description", "?q=CASAL", []string{"Protetor Casal", "Colchão Solteiro", "Colchão Casal Molas"}, ""},
		{"category is exact and drops uncategorized", "?q=casal&category=colchões", []string{"Colchão Solteiro", "Colchão Casal Molas"}, ""},
		{"search by category name", "?q=travesseiros", []string{"Travesseiro Nasa"}, ""},
		{"no search results", "?q=berço", []string{}, "no products found for your search"},
		{"empty category", "?category=Acessórios", []string{}, "no products found in this category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(httptest.NewRequest("GET", "/api/products"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code)

			response := decodeList(t, w)
			assert.Equal(t, tt.want, names(response.Products))
			assert.Equal(t, len(tt.want), response.Total)
			assert.Equal(t, tt.message, response.Message)
		})
	}
}

func TestListProductsJoinsPresentationFields(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Colchão King", "", env.addCategory("Colchões"), 0)
	product.Price = decimal.RequireFromString("2999.99")
	product.ImageURL = `["https://x/1.jpg","https://x/2.jpg"]`

	w := env.do(httptest.NewRequest("GET", "/api/products", nil))
	require.Equal(t, http.StatusOK, w.Code)

	items := decodeList(t, w).Products
	require.Len(t, items, 1)
	assert.Equal(t, "2.999,99", items[0].PriceDisplay)
	assert.Equal(t, []string{"https://x/1.jpg", "https://x/2.jpg"}, items[0].ImageList)
	require.NotNil(t, items[0].CategoryName)
	assert.Equal(t, "Colchões", *items[0].CategoryName)
}

func TestListProductsFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.products.listErr = errors.New("connection refused")

	w := env.do(httptest.NewRequest("GET", "/api/products", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var response middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "could not load products", response.Error.Message)
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Base Box", "", nil, 0)

	w := env.do(httptest.NewRequest("GET", "/api/products/"+product.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var item domain.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, product.ID, item.ID)
	assert.Nil(t, item.CategoryName)

	assert.Equal(t, http.StatusNotFound, env.do(httptest.NewRequest("GET", "/api/products/"+uuid.NewString(), nil)).Code)
	assert.Equal(t, http.StatusNotFound, env.do(httptest.NewRequest("GET", "/api/products/not-an-id", nil)).Code)
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest("GET", "/api/admin/session", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/admin/session", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "anon"))
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)

	w = env.do(adminRequest(t, "GET", "/api/admin/session", nil, ""))
	require.Equal(t, http.StatusOK, w.Code)

	var session SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.True(t, session.Authenticated)
	assert.Equal(t, SessionUser{ID: "admin-1", Email: "admin@loja.com", Role: "authenticated"}, session.User)
}

func TestCreateProductWithImages(t *testing.T) {
	env := newTestEnv(t)
	category := env.addCategory("Colchões")

	body, contentType := productForm(t, map[string][]string{
		"name":        {"Colchão King"},
		"description": {"Molas ensacadas"},
		"price":       {"R$ 2.999,99"},
		"stock":       {"3"},
		"category_id": {category.ID.String()},
		"is_featured": {"true"},
	},
		formFile{"frente.JPG", "image/jpeg", "front"},
		formFile{"lado.png", "image/png", "side"},
	)

	w := env.do(adminRequest(t, "POST", "/api/admin/products", body, contentType))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	stored := env.products.products[created.ID]
	require.NotNil(t, stored)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("2999.99")))
	assert.Equal(t, 3, stored.Stock)
	assert.True(t, stored.IsFeatured)

	images := domain.DecodeImages(stored.ImageURL)
	require.Len(t, images, 2)
	for i, want := range []string{"front", "side"} {
		assert.True(t, strings.HasPrefix(images[i], "http://localhost:8080/storage/products/"))
		key := strings.TrimPrefix(images[i], "http://localhost:8080/storage/products/")
		content, err := afero.ReadFile(env.fs, "products/"+key)
		require.NoError(t, err)
		assert.Equal(t, want, string(content))
	}
	assert.True(t, strings.HasSuffix(images[0], ".jpg"))
}

func TestCreateProductRejectsSixImages(t *testing.T) {
	env := newTestEnv(t)

	var files []formFile
	for i := 0; i < 6; i++ {
		files = append(files, formFile{fmt.Sprintf("%d.jpg", i), "image/jpeg", "x"})
	}
	body, contentType := productForm(t, map[string][]string{"name": {"Colchão"}, "price": {"100"}}, files...)

	w := env.do(adminRequest(t, "POST", "/api/admin/products", body, contentType))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_errors")
	assert.Empty(t, env.products.products)

	entries, err := afero.ReadDir(env.fs, "products")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateProductRejectsNonImageFile(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := productForm(t, map[string][]string{"name": {"Colchão"}, "price": {"100"}},
		formFile{"notes.txt", "text/plain", "hello"})

	w := env.do(adminRequest(t, "POST", "/api/admin/products", body, contentType))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.products.products)
}

func TestCreateProductFromURLEncodedForm(t *testing.T) {
	env := newTestEnv(t)
	body := strings.NewReader("name=Travesseiro&price=49%2C90&image_url=https%3A%2F%2Fx%2Flegacy.jpg")

	w := env.do(adminRequest(t, "POST", "/api/admin/products", body, "application/x-www-form-urlencoded"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "https://x/legacy.jpg", env.products.products[created.ID].ImageURL)
	assert.True(t, env.products.products[created.ID].Price.Equal(decimal.RequireFromString("49.90")))
}

func TestCreateProductValidationError(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := productForm(t, map[string][]string{"name": {"Colchão"}, "price": {"caro"}})

	w := env.do(adminRequest(t, "POST", "/api/admin/products", body, contentType))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var response struct {
		Error struct {
			Details struct {
				ValidationErrors []domain.ValidationError `json:"validation_errors"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Error.Details.ValidationErrors, 1)
	assert.Equal(t, "price", response.Error.Details.ValidationErrors[0].Field)
}

func TestUpdateProductKeepsRetainedImages(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Colchão Casal", "", nil, time.Hour)
	product.ImageURL = `["https://x/a.jpg","https://x/b.jpg"]`
	createdAt := product.CreatedAt

	body, contentType := productForm(t, map[string][]string{
		"name":              {"Colchão Casal Plus"},
		"price":             {"1.499,00"},
		"retained_images[]": {"https://x/b.jpg", "data:image/png;base64,AAAA"},
	}, formFile{"novo.webp", "image/webp", "new"})

	w := env.do(adminRequest(t, "PUT", "/api/admin/products/"+product.ID.String(), body, contentType))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := env.products.products[product.ID]
	assert.Equal(t, "Colchão Casal Plus", stored.Name)
	assert.True(t, stored.CreatedAt.Equal(createdAt))

	images := domain.DecodeImages(stored.ImageURL)
	require.Len(t, images, 2)
	assert.Equal(t, "https://x/b.jpg", images[0])
	assert.True(t, strings.HasSuffix(images[1], ".webp"))
}

func TestUpdateMissingProduct(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := productForm(t, map[string][]string{"name": {"Colchão"}, "price": {"100"}})

	w := env.do(adminRequest(t, "PUT", "/api/admin/products/"+uuid.NewString(), body, contentType))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Base Box", "", nil, 0)

	w := env.do(adminRequest(t, "DELETE", "/api/admin/products/"+product.ID.String(), nil, ""))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.products.products)

	w = env.do(adminRequest(t, "DELETE", "/api/admin/products/"+product.ID.String(), nil, ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(adminRequest(t, "POST", "/api/admin/categories", strings.NewReader(`{"name":"Colchões"}`), "application/json"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do(adminRequest(t, "POST", "/api/admin/categories", strings.NewReader(`{"name":"Colchões"}`), "application/json"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(adminRequest(t, "POST", "/api/admin/categories", strings.NewReader(`{"name":""}`), "application/json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"name"`)

	w = env.do(adminRequest(t, "PUT", "/api/admin/categories/"+created.ID.String(), strings.NewReader(`{"name":"Colchões Premium"}`), "application/json"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest("GET", "/api/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var categories []domain.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "Colchões Premium", categories[0].Name)

	w = env.do(adminRequest(t, "DELETE", "/api/admin/categories/"+created.ID.String(), nil, ""))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(adminRequest(t, "DELETE", "/api/admin/categories/"+created.ID.String(), nil, ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest("GET", "/api/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(adminRequest(t, "PUT", "/api/admin/settings",
		strings.NewReader(`{"store_name":"Loja dos Colchões","email":"not-an-email"}`), "application/json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(adminRequest(t, "PUT", "/api/admin/settings",
		strings.NewReader(`{"store_name":"Loja dos Colchões","slogan":"Durma bem","email":"contato@loja.com","whatsapp":"5511999999999"}`), "application/json"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(httptest.NewRequest("GET", "/api/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var settings domain.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "Loja dos Colchões", settings.StoreName)
	assert.Equal(t, "5511999999999", settings.WhatsApp)
}
