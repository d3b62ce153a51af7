package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inventory/internal/app"
	"inventory/internal/client"
	"inventory/internal/repositories"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAPI serves the real product API over an in-memory repository.
func newAPI(t *testing.T) *client.ProductClient {
	t.Helper()
	api := app.New(app.Deps{Repository: repositories.NewMemoryProductRepository()})
	srv := httptest.NewServer(adaptor.FiberApp(api))
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", time.Second)
}

func payload(name string, price string) client.ProductPayload {
	return client.ProductPayload{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Description: "desc",
		Category:    "Electronics",
	}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newAPI(t)

	products, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	created, err := c.Create(ctx, payload("Wireless Mouse", "24.99"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, decimal.RequireFromString("24.99").Equal(created.Price))

	_, err = c.Create(ctx, payload("Yoga Mat", "30"))
	require.NoError(t, err)

	found, err := c.List(ctx, "wireless mouse")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	updated, err := c.Update(ctx, created.ID, payload("Wireless Mouse 2", "29.99"))
	require.NoError(t, err)
	assert.Equal(t, "Wireless Mouse 2", updated.Name)

	require.NoError(t, c.Delete(ctx, created.ID))
	assert.ErrorIs(t, c.Delete(ctx, created.ID), client.ErrNotFound)

	_, err = c.Update(ctx, created.ID, payload("Ghost", "1"))
	assert.ErrorIs(t, err, client.ErrNotFound)

	remaining, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Yoga Mat", remaining[0].Name)
}

func TestClientEscapesSearch(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("search")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, 0).List(context.Background(), "50% off & more")
	require.NoError(t, err)
	assert.Equal(t, "50% off & more", got)
}

func TestClientUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL, 0).List(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "status=500")
	assert.Contains(t, err.Error(), "internal server error")
}

func TestClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.New(url, 0).List(context.Background(), "")
	assert.True(t, errors.Is(err, client.ErrUnavailable), "got %v", err)
}

func TestClientHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.New("http://127.0.0.1:1", 0).List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}
