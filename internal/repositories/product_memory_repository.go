package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"inventory/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
	now      func() time.Time
	last     time.Time
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns products matching search, oldest first.
func (r *MemoryProductRepository) List(_ context.Context, search string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(search)
	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if term == "" || matches(p, term) {
			productList = append(productList, p)
		}
	}
	sort.Slice(productList, func(i, j int) bool {
		a, b := productList[i], productList[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return productList, nil
}

func matches(p models.Product, term string) bool {
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.Category), term)
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return &product, nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product.ID = uuid.NewString()
	now := r.now()
	// Creation order must survive clocks with coarse resolution.
	if !now.After(r.last) {
		now = r.last.Add(time.Nanosecond)
	}
	r.last = now
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *MemoryProductRepository) Update(_ context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	patch.Apply(&product)
	product.UpdatedAt = r.now()
	r.products[id] = product
	return &product, nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	delete(r.products, id)
	return nil
}
