package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"inventory/internal/events"
	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, search string) ([]models.Product, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSink records published events.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Publish(ctx context.Context, key string, v any) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

func eventOfType(typ events.Type) any {
	return mock.MatchedBy(func(e events.Event) bool { return e.Type == typ })
}

func TestProductService_ListProducts(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	expectedProducts := []models.Product{
		{ID: "1", Name: "Product A", Price: decimal.NewFromInt(10)},
		{ID: "2", Name: "Product B", Price: decimal.NewFromInt(20)},
	}

	mockRepo.On("List", ctx, "").Return(expectedProducts, nil).Once()
	products, err := service.ListProducts(ctx, "")
	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)

	// A repository returning nil still yields an empty list
	mockRepo.On("List", ctx, "zzz").Return(nil, nil).Once()
	products, err = service.ListProducts(ctx, "zzz")
	assert.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	mockRepo.On("List", ctx, "x").Return(nil, errors.New("connection reset")).Once()
	_, err = service.ListProducts(ctx, "x")
	assert.ErrorContains(t, err, "connection reset")
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	expectedProduct := &models.Product{ID: "1", Name: "Product A"}

	mockRepo.On("GetByID", ctx, "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProduct(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	mockRepo.On("GetByID", ctx, "99").Return(nil, fmt.Errorf("product with ID 99: %w", repositories.ErrProductNotFound)).Once()
	product, err = service.GetProduct(ctx, "99")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	sink := new(MockSink)
	service := services.NewProductService(mockRepo, events.NewNotifier(sink, zap.NewNop()))

	newProduct := &models.Product{Name: "New Product", Price: decimal.NewFromInt(50)}

	mockRepo.On("Create", ctx, newProduct).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Product).ID = "generated"
	}).Return(nil).Once()
	sink.On("Publish", mock.Anything, "generated", eventOfType(events.ProductCreated)).Return(nil).Once()

	err := service.CreateProduct(ctx, newProduct)
	assert.NoError(t, err)
	assert.Equal(t, "generated", newProduct.ID)

	// Failed inserts publish nothing
	mockRepo.On("Create", ctx, newProduct).Return(fmt.Errorf("database error")).Once()
	err = service.CreateProduct(ctx, newProduct)
	assert.ErrorContains(t, err, "database error")

	mockRepo.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestProductService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	sink := new(MockSink)
	service := services.NewProductService(mockRepo, events.NewNotifier(sink, zap.NewNop()))

	name := "Product A Updated"
	patch := models.ProductPatch{Name: &name}
	updated := &models.Product{ID: "1", Name: name}

	mockRepo.On("Update", ctx, "1", patch).Return(updated, nil).Once()
	sink.On("Publish", mock.Anything, "1", eventOfType(events.ProductUpdated)).Return(nil).Once()

	product, err := service.UpdateProduct(ctx, "1", patch)
	assert.NoError(t, err)
	assert.Equal(t, updated, product)

	mockRepo.On("Update", ctx, "99", patch).Return(nil, fmt.Errorf("product with ID 99: %w", repositories.ErrProductNotFound)).Once()
	_, err = service.UpdateProduct(ctx, "99", patch)
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)

	mockRepo.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestProductService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	sink := new(MockSink)
	service := services.NewProductService(mockRepo, events.NewNotifier(sink, zap.NewNop()))

	mockRepo.On("Delete", ctx, "1").Return(nil).Once()
	sink.On("Publish", mock.Anything, "1", eventOfType(events.ProductDeleted)).Return(errors.New("broker down")).Once()

	// A broker failure does not fail the delete
	err := service.DeleteProduct(ctx, "1")
	assert.NoError(t, err)

	mockRepo.On("Delete", ctx, "99").Return(fmt.Errorf("product with ID 99: %w", repositories.ErrProductNotFound)).Once()
	err = service.DeleteProduct(ctx, "99")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)

	mockRepo.AssertExpectations(t)
	sink.AssertExpectations(t)
}
