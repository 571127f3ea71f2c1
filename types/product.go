package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an item in the storefront catalog.
// It contains display metadata, a price, and the ordered set of image URLs
// that reference objects in the configured blob store.
type Product struct {
	// ID is the unique identifier of the product, assigned by the store.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the product.
	Title string `json:"title" db:"title"`

	// Caption is a short free-form description shown alongside the title.
	Caption string `json:"caption" db:"caption"`

	// Price is the product's price. It is persisted as NUMERIC and encoded
	// in JSON as a decimal string to avoid float rounding.
	Price decimal.Decimal `json:"price" db:"price"`

	// Images is the ordered list of public image URLs for the product.
	// Order is upload (or kept) order and the first entry is the cover image.
	// It is persisted in the legacy image_url column as a JSON array.
	Images []string `json:"images" db:"image_url"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the product.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CoverImage returns the first image URL, or nil when the product has none.
func (p Product) CoverImage() *string {
	if len(p.Images) == 0 {
		return nil
	}
	cover := p.Images[0]
	return &cover
}
