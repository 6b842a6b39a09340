package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"mattress-store/internal/domain"
	"mattress-store/internal/repository"
	"mattress-store/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImageUpload is a new image file attached to a product save
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// ProductInput is the admin form submitted to create or update a product.
// Price and Stock are kept as typed by the admin.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Stock       string
	CategoryID  string
	IsFeatured  *bool

	// ImageURL is the raw image reference kept when the save ends with no images
	ImageURL       string
	RetainedImages []string
	NewImages      []ImageUpload
}

// ProductService defines the admin operations on products
type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
	store       storage.ObjectStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	store storage.ObjectStore,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		store:       store,
		logger:      logger,
		now:         time.Now,
	}
}

type validatedProduct struct {
	name        string
	description *string
	price       decimal.Decimal
	stock       int
	categoryID  *uuid.UUID
	retained    []string
}

// Create validates the input, uploads new images and inserts the product
func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	v, err := validateProductInput(input)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.uploadImages(ctx, input.NewImages)
	if err != nil {
		return nil, err
	}

	imageURL, err := domain.EncodeImages(append(v.retained, uploaded...), input.ImageURL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        v.name,
		Description: v.description,
		Price:       v.price,
		Discount:    decimal.Zero,
		Stock:       v.stock,
		CategoryID:  v.categoryID,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logOrphans(uploaded, err)
		return nil, domain.NewOperationError("create product", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	return product, nil
}

// Update validates the input, uploads new images and overwrites the product.
// The id and creation time never change.
func (s *productService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	v, err := validateProductInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, domain.NewOperationError("load product", err)
	}

	uploaded, err := s.uploadImages(ctx, input.NewImages)
	if err != nil {
		return nil, err
	}

	imageURL, err := domain.EncodeImages(append(v.retained, uploaded...), existing.ImageURL)
	if err != nil {
		return nil, err
	}

	product := *existing
	product.Name = v.name
	product.Description = v.description
	product.Price = v.price
	product.Stock = v.stock
	product.CategoryID = v.categoryID
	product.ImageURL = imageURL
	product.UpdatedAt = s.now()
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	if err := s.productRepo.Update(ctx, &product); err != nil {
		s.logOrphans(uploaded, err)
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, domain.NewOperationError("update product", err)
	}

	s.logger.Info("Product updated", zap.String("product_id", product.ID.String()))
	return &product, nil
}

// Delete removes the product row. Its images stay in the bucket.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return err
		}
		return domain.NewOperationError("delete product", err)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// uploadImages stores all uploads concurrently and returns their URLs in
// input order. If any upload fails the whole batch fails.
func (s *productService) uploadImages(ctx context.Context, uploads []ImageUpload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	urls := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)

	for i, upload := range uploads {
		g.Go(func() error {
			url, err := s.store.Put(gctx, storage.ObjectKey(upload.Filename), upload.Body)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		uploaded := make([]string, 0, len(urls))
		for _, url := range urls {
			if url != "" {
				uploaded = append(uploaded, url)
			}
		}
		s.logOrphans(uploaded, err)
		return nil, domain.NewOperationError("upload image", err)
	}

	return urls, nil
}

// logOrphans records images left in the bucket by a failed save
func (s *productService) logOrphans(urls []string, cause error) {
	if len(urls) == 0 {
		return
	}
	s.logger.Warn("Uploaded images orphaned by failed save",
		zap.Strings("urls", urls),
		zap.Error(cause),
	)
}

func validateProductInput(input ProductInput) (*validatedProduct, error) {
	v := &validatedProduct{
		name: strings.TrimSpace(input.Name),
	}

	if v.name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}

	if description := strings.TrimSpace(input.Description); description != "" {
		v.description = &description
	}

	price, err := domain.ParsePrice(input.Price)
	if err != nil {
		return nil, err
	}
	v.price = price

	// Blank or unparseable stock counts as zero
	if stock, err := strconv.Atoi(strings.TrimSpace(input.Stock)); err == nil {
		if stock < 0 {
			return nil, domain.NewValidationError("stock", "stock must not be negative")
		}
		v.stock = stock
	}

	if categoryID := strings.TrimSpace(input.CategoryID); categoryID != "" {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			return nil, domain.NewValidationError("category_id", "invalid category")
		}
		v.categoryID = &id
	}

	for _, url := range input.RetainedImages {
		url = strings.TrimSpace(url)
		// Unsaved previews are never persisted
		if url == "" || strings.HasPrefix(url, "data:") {
			continue
		}
		v.retained = append(v.retained, url)
	}

	if len(v.retained)+len(input.NewImages) > domain.MaxProductImages {
		return nil, domain.NewValidationError("images", "a product can have at most 5 images")
	}

	return v, nil
}
