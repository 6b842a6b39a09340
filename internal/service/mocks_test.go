package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"mattress-store/internal/domain"
	"mattress-store/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockProductRepository struct {
	products  map[uuid.UUID]*domain.Product
	calls     int
	createErr error
	updateErr error
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.calls++
	if m.createErr != nil {
		return m.createErr
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.calls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.calls++
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.calls++
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	found := *product
	return &found, nil
}

func (m *mockProductRepository) List(ctx context.Context, order repository.SortOrder) ([]*domain.Product, error) {
	m.calls++
	products := []*domain.Product{}
	for _, p := range m.products {
		products = append(products, p)
	}
	return products, nil
}

// mockObjectStore is safe for the concurrent uploads of one save
type mockObjectStore struct {
	mu      sync.Mutex
	objects map[string]string
	puts    int
	failOn  string
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string]string)}
}

func (m *mockObjectStore) Put(ctx context.Context, key string, body io.Reader) (string, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts++
	if m.failOn != "" && string(content) == m.failOn {
		return "", errors.New("storage quota exceeded")
	}
	m.objects[key] = string(content)
	return m.PublicURL(key), nil
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *mockObjectStore) PublicURL(key string) string {
	return "https://cdn.test/products/" + key
}

func (m *mockObjectStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func upload(name, content string) ImageUpload {
	return ImageUpload{Filename: name, Body: strings.NewReader(content)}
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
	err        error
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if m.err != nil {
		return m.err
	}
	for _, c := range m.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if m.err != nil {
		return m.err
	}
	if _, exists := m.categories[category.ID]; !exists {
		return repository.ErrCategoryNotFound
	}
	for _, c := range m.categories {
		if c.Name == category.Name && c.ID != category.ID {
			return repository.ErrCategoryAlreadyExists
		}
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	if _, exists := m.categories[id]; !exists {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	categories := []*domain.Category{}
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	return categories, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	category, exists := m.categories[id]
	if !exists {
		return nil, repository.ErrCategoryNotFound
	}
	found := *category
	return &found, nil
}

type mockSettingsRepository struct {
	settings *domain.Settings
	creates  int
	updates  int
}

func (m *mockSettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	if m.settings == nil {
		return nil, repository.ErrSettingsNotFound
	}
	found := *m.settings
	return &found, nil
}

func (m *mockSettingsRepository) Create(ctx context.Context, settings *domain.Settings) error {
	m.creates++
	stored := *settings
	m.settings = &stored
	return nil
}

func (m *mockSettingsRepository) Update(ctx context.Context, settings *domain.Settings) error {
	m.updates++
	if m.settings == nil || m.settings.ID != settings.ID {
		return repository.ErrSettingsNotFound
	}
	stored := *settings
	m.settings = &stored
	return nil
}
