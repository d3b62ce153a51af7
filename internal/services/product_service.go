package services

import (
	"context"
	"fmt"

	"inventory/internal/events"
	"inventory/internal/models"
	"inventory/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	notifier *events.Notifier
}

// NewProductService creates a new ProductService. notifier may be nil.
func NewProductService(repo repositories.ProductRepository, notifier *events.Notifier) *ProductService {
	return &ProductService{
		repo:     repo,
		notifier: notifier,
	}
}

// ListProducts returns the products matching search, or all of them when
// search is empty.
func (s *ProductService) ListProducts(ctx context.Context, search string) ([]models.Product, error) {
	products, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct stores a new product; the repository assigns its ID.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.repo.Create(ctx, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	s.notifier.Notify(ctx, events.ProductCreated, product.ID, product)
	return nil
}

// UpdateProduct applies patch to an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.notifier.Notify(ctx, events.ProductUpdated, product.ID, product)
	return product, nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.notifier.Notify(ctx, events.ProductDeleted, id, nil)
	return nil
}
