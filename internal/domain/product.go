package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product row in the catalog
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description *string         `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Discount    decimal.Decimal `json:"discount" db:"discount"` // reserved, never interpreted
	Stock       int             `json:"stock" db:"stock"`
	IsFeatured  bool            `json:"is_featured" db:"is_featured"`
	CategoryID  *uuid.UUID      `json:"category_id" db:"category_id"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Images returns the decoded image list of the product
func (p *Product) Images() []string {
	return DecodeImages(p.ImageURL)
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Item is a product joined with the name of its category.
// CategoryName is nil when the product has no category or the reference
// does not resolve.
type Item struct {
	Product
	CategoryName *string  `json:"category_name"`
	ImageList    []string `json:"images"`
	PriceDisplay string   `json:"price_display"`
}

// NewItem joins a product with its resolved category name
func NewItem(p Product, categoryName *string) Item {
	return Item{
		Product:      p,
		CategoryName: categoryName,
		ImageList:    p.Images(),
		PriceDisplay: FormatPrice(p.Price),
	}
}

// Settings holds the store contact information shown on the storefront
type Settings struct {
	ID        uuid.UUID `json:"id" db:"id"`
	StoreName string    `json:"store_name" db:"store_name"`
	Slogan    string    `json:"slogan" db:"slogan"`
	Email     string    `json:"email" db:"email"`
	WhatsApp  string    `json:"whatsapp" db:"whatsapp"`
	Address   string    `json:"address" db:"address"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
