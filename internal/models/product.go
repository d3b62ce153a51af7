package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents an inventory item.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Category    string          `json:"category" gorm:"type:varchar(100);not null;index"`
	Image       string          `json:"image" gorm:"type:text;default:''"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductInput is the create payload. Pointer fields let the server tell an
// absent field apart from an empty one.
type ProductInput struct {
	Name        *string          `json:"name" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Description *string          `json:"description" validate:"required"`
	Category    *string          `json:"category" validate:"required"`
	Image       *string          `json:"image"`
}

// Product builds a record from the input. The ID is left for the repository.
func (in ProductInput) Product() *Product {
	p := &Product{}
	ProductPatch(in).Apply(p)
	return p
}

// ProductPatch carries a full or partial update. Nil fields are left unchanged.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
}

// Columns returns the column assignments for the fields present in the patch.
func (p ProductPatch) Columns() map[string]any {
	cols := make(map[string]any, 5)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Image != nil {
		cols["image"] = *p.Image
	}
	return cols
}

// Apply copies the fields present in the patch onto product.
func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
}
