package repositories

import (
	"context"
	"errors"

	"inventory/internal/models"
)

// ErrProductNotFound is returned when no product has the requested ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// List returns every product whose name, description or category contains
	// search, ignoring case. An empty search returns all products.
	List(ctx context.Context, search string) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}
