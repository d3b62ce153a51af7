package viewmodel

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"inventory/internal/client"
	"inventory/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned, wrapped in a *ValidationError, when a form
// fails the client-side rules. Such a form is never sent.
var ErrInvalidInput = errors.New("invalid product input")

// DefaultCategory preselects the category of a new form.
const DefaultCategory = "Electronics"

// SuggestedCategories are offered by the form. The server accepts any category.
var SuggestedCategories = []string{"Electronics", "Clothing", "Home", "Accessories", "Sports"}

// ProductForm is the editable state of a product before it is submitted.
type ProductForm struct {
	Name        string          `json:"name" validate:"required,min=3"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

// NewProductForm returns an empty form with the default category.
func NewProductForm() ProductForm {
	return ProductForm{Category: DefaultCategory}
}

// FormFromProduct fills a form for editing p.
func FormFromProduct(p models.Product) ProductForm {
	return ProductForm{
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
	}
}

func (f ProductForm) payload() client.ProductPayload {
	return client.ProductPayload{
		Name:        f.Name,
		Price:       f.Price,
		Description: f.Description,
		Category:    f.Category,
		Image:       f.Image,
	}
}

// ValidationError lists the fields of a rejected form with one message each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

const priceScale = 2

var messages = map[string]string{
	"name":  "name must be at least 3 characters",
	"price": "price must be greater than 0",
}

type formValidator struct {
	validate *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return &formValidator{validate: v}
}

// check returns nil or a *ValidationError.
func (fv *formValidator) check(f ProductForm) error {
	fields := make(map[string]string)
	if err := fv.validate.Struct(f); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		for _, fe := range ve {
			msg, ok := messages[fe.Field()]
			if !ok {
				msg = fe.Field() + " is invalid"
			}
			fields[fe.Field()] = msg
		}
	}
	// Prices are stored with two decimal places.
	if _, bad := fields["price"]; !bad && !f.Price.Equal(f.Price.Round(priceScale)) {
		fields["price"] = "price must have at most 2 decimal places"
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
