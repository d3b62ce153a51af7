package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inventory/internal/database"
	"inventory/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// searchClause takes the driver's lowercase function in every %[1]s.
const searchClause = `%[1]s(name) LIKE ? ESCAPE '\' OR %[1]s(description) LIKE ? ESCAPE '\' OR %[1]s(category) LIKE ? ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List retrieves products matching search, oldest first.
func (r *GORMProductRepository) List(ctx context.Context, search string) ([]models.Product, error) {
	products := make([]models.Product, 0)
	q := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
	if search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		q = q.Where(fmt.Sprintf(searchClause, database.LowerFunc(r.db)), pattern, pattern, pattern)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create inserts a new product. The ID is always assigned here.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = uuid.NewString()
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update applies patch to the product with the given ID and returns the stored row.
func (r *GORMProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).Where("id = ?", id).Updates(patch.Columns())
		if res.Error != nil {
			return fmt.Errorf("failed to update product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		if err := tx.First(&product, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to reload product %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return nil
}
