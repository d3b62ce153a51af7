package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"inventory/internal/events"
	"inventory/internal/handlers"
	"inventory/internal/models"
	"inventory/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSink keeps every published event in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Publish(_ context.Context, _ string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, v.(events.Event))
	return nil
}

func (s *recordingSink) types() []events.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Type, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// setupApp mounts the product routes over an in-memory repository.
func setupApp(sink events.Sink) *fiber.App {
	app := fiber.New()
	handler := handlers.NewProductHandler(
		handlers.FixedRepository(repositories.NewMemoryProductRepository()),
		events.NewNotifier(sink, zap.NewNop()),
		zap.NewNop(),
	)
	handler.RegisterRoutes(app.Group("/api"))
	return app
}

func send(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestProductEndpointsPublishEvents(t *testing.T) {
	sink := &recordingSink{}
	app := setupApp(sink)

	resp, created := send(t, app, http.MethodPost, "/api/products", map[string]any{
		"name":        "Desk Lamp",
		"price":       39.9,
		"description": "LED",
		"category":    "Home",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	resp, updated := send(t, app, http.MethodPut, "/api/products/"+id, map[string]any{"category": "Office"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Office", updated["category"])
	assert.Equal(t, "Desk Lamp", updated["name"])

	resp, _ = send(t, app, http.MethodDelete, "/api/products/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []events.Type{
		events.ProductCreated,
		events.ProductUpdated,
		events.ProductDeleted,
	}, sink.types())
}

func TestFailedMutationsPublishNothing(t *testing.T) {
	sink := &recordingSink{}
	app := setupApp(sink)

	resp, _ := send(t, app, http.MethodPost, "/api/products", map[string]any{"name": "Lamp"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := send(t, app, http.MethodDelete, "/api/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "product not found", body["error"])
	assert.Equal(t, "missing", body["id"])

	assert.Empty(t, sink.types())
}

func TestUpdateRejectsMalformedBody(t *testing.T) {
	app := setupApp(nil)

	req := httptest.NewRequest(http.MethodPut, "/api/products/any", bytes.NewBufferString(`{"price": "cheap"`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListReturnsEmptyArray(t *testing.T) {
	app := setupApp(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/products?search=none", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestRequestRepositoryWithoutSession(t *testing.T) {
	app := fiber.New()
	handlers.NewProductHandler(handlers.RequestRepository, nil, nil).RegisterRoutes(app.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
