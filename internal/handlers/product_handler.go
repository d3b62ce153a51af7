package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"inventory/internal/events"
	"inventory/internal/middleware"
	"inventory/internal/models"
	"inventory/internal/repositories"
	"inventory/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

var errNoDatabase = errors.New("no database session on request")

// RepositoryFunc resolves the product repository for a request.
type RepositoryFunc func(c *fiber.Ctx) (repositories.ProductRepository, error)

// RequestRepository builds a GORM repository over the session that the
// middleware.Database handler attached to the request.
func RequestRepository(c *fiber.Ctx) (repositories.ProductRepository, error) {
	db := middleware.DB(c)
	if db == nil {
		return nil, errNoDatabase
	}
	return repositories.NewGORMProductRepository(db), nil
}

// FixedRepository serves every request from the same repository.
func FixedRepository(repo repositories.ProductRepository) RepositoryFunc {
	return func(*fiber.Ctx) (repositories.ProductRepository, error) {
		return repo, nil
	}
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	repository RepositoryFunc
	notifier   *events.Notifier
	validate   *validator.Validate
	log        *zap.Logger
}

// NewProductHandler creates a new ProductHandler. notifier may be nil.
func NewProductHandler(repository RepositoryFunc, notifier *events.Notifier, log *zap.Logger) *ProductHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductHandler{
		repository: repository,
		notifier:   notifier,
		validate:   newValidator(),
		log:        log,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterRoutes registers the product routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

func (h *ProductHandler) service(c *fiber.Ctx) (*services.ProductService, error) {
	repo, err := h.repository(c)
	if err != nil {
		return nil, err
	}
	return services.NewProductService(repo, h.notifier), nil
}

// HandleListProducts lists products, filtered by the optional search query.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	products, err := svc.ListProducts(c.UserContext(), c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id := utils.CopyString(c.Params("id"))
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	product, err := svc.GetProduct(c.UserContext(), id)
	if err != nil {
		return h.productError(c, id, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product. Only the presence of the
// required fields is checked here.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input models.ProductInput
	if err := c.BodyParser(&input); err != nil {
		h.log.Debug("invalid create body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		missing := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			missing = append(missing, e.Field())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "missing required fields",
			"fields": missing,
		})
	}

	svc, err := h.service(c)
	if err != nil {
		return err
	}
	product := input.Product()
	if err := svc.CreateProduct(c.UserContext(), product); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a full or partial update.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id := utils.CopyString(c.Params("id"))

	var patch models.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		h.log.Debug("invalid update body", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	svc, err := h.service(c)
	if err != nil {
		return err
	}
	product, err := svc.UpdateProduct(c.UserContext(), id, patch)
	if err != nil {
		return h.productError(c, id, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := utils.CopyString(c.Params("id"))
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteProduct(c.UserContext(), id); err != nil {
		return h.productError(c, id, err)
	}
	return c.JSON(fiber.Map{
		"message": "product deleted",
		"id":      id,
	})
}

// productError answers 404 for unknown IDs and hands anything else to the
// app's error handler.
func (h *ProductHandler) productError(c *fiber.Ctx, id string, err error) error {
	if errors.Is(err, repositories.ErrProductNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "product not found",
			"id":    id,
		})
	}
	return fmt.Errorf("product %s: %w", id, err)
}
