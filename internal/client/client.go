// Package client talks to the product API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inventory/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("product not found")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrUnavailable      = errors.New("product api unavailable")
)

const defaultTimeout = 5 * time.Second

// ProductPayload is the body of create and update requests.
type ProductPayload struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
}

type ProductClient struct {
	BaseURL string
	Client  *http.Client
}

// New returns a client for the API at baseURL. A zero timeout selects the default.
func New(baseURL string, timeout time.Duration) *ProductClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ProductClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// List fetches the products matching search. An empty search lists everything.
func (c *ProductClient) List(ctx context.Context, search string) ([]models.Product, error) {
	target := c.BaseURL + "/api/products"
	if search != "" {
		target += "?search=" + url.QueryEscape(search)
	}

	var products []models.Product
	if err := c.do(ctx, http.MethodGet, target, nil, http.StatusOK, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Create posts a new product and returns the stored record.
func (c *ProductClient) Create(ctx context.Context, in ProductPayload) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/api/products", in, http.StatusCreated, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces the editable fields of product id.
func (c *ProductClient) Update(ctx context.Context, id string, in ProductPayload) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPut, c.productURL(id), in, http.StatusOK, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes product id.
func (c *ProductClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.productURL(id), nil, http.StatusOK, nil)
}

func (c *ProductClient) productURL(id string) string {
	return c.BaseURL + "/api/products/" + url.PathEscape(id)
}

func (c *ProductClient) do(ctx context.Context, method, target string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case want:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	default:
		return fmt.Errorf("%w: status=%d%s", ErrUnexpectedStatus, resp.StatusCode, errorMessage(resp.Body))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the "error" field of an API error body, if any.
func errorMessage(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil || body.Error == "" {
		return ""
	}
	return " (" + body.Error + ")"
}
