package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catalog/internal/cache"
	"catalog/internal/handlers"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite, the in-process
// cache and the product handler.
func setupApp(t *testing.T, opts ...services.Option) (*fiber.App, *repositories.GORMProductRepository) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to in-memory database")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	productRepo := repositories.NewGORMProductRepository(db)
	require.NoError(t, productRepo.Migrate(context.Background()))

	productService := services.NewProductService(productRepo, cache.NewMemoryCache(time.Minute), opts...)

	app := fiber.New()
	handlers.NewProductHandler(productService, nil).RegisterRoutes(app)
	return app, productRepo
}

// seedProductsForTest populates the product repository for tests.
func seedProductsForTest(t *testing.T, repo repositories.ProductRepository) {
	t.Helper()
	desc1, desc2 := "desc1", "desc2"
	products := []models.Product{
		{Name: "demo1", Description: &desc1, ProductType: "type1", Quantity: 1, Price: 1000, SupplierCode: "SUP01"},
		{Name: "demo2", Description: &desc2, ProductType: "type2", Quantity: 2, Price: 2000, SupplierCode: "SUP02"},
	}
	for i := range products {
		require.NoError(t, repo.Create(context.Background(), &products[i]))
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	jsonBody, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	return resp
}

func TestCreateProductEndpoint(t *testing.T) {
	app, _ := setupApp(t)

	resp := postJSON(t, app, "/products", map[string]any{
		"name":         "demo",
		"productType":  "type",
		"quantity":     1,
		"price":        1000,
		"supplierCode": "SUP01",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Status  string         `json:"status"`
		Results map[string]any `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "Success", body.Status)
	assert.Equal(t, float64(1), body.Results["id"])
	assert.Equal(t, "demo", body.Results["name"])
	assert.Equal(t, "SUP01", body.Results["supplierCode"])
	assert.NotContains(t, body.Results, "desc")
	assert.NotContains(t, body.Results, "supplierName")
}

func TestCreateProductEndpoint_InvalidRequestIsNotStored(t *testing.T) {
	app, repo := setupApp(t)

	resp := postJSON(t, app, "/products", map[string]any{
		"name":         "demo",
		"productType":  "type",
		"quantity":     0,
		"price":        150,
		"supplierCode": "SUP01",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "FAILED", body["status"])
	assert.Len(t, body["errors"], 2)

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetProductsEndpoint(t *testing.T) {
	app, repo := setupApp(t)
	seedProductsForTest(t, repo)

	resp := get(t, app, "/products")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string           `json:"status"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 2)
	assert.Equal(t, "demo1", body.Results[0]["name"])
	assert.Equal(t, "desc1", body.Results[0]["desc"])
	assert.Equal(t, "demo2", body.Results[1]["name"])
}

func TestGetProductsEndpoint_EmptyStoreReturnsEmptyArray(t *testing.T) {
	app, _ := setupApp(t)

	resp := get(t, app, "/products")
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.JSONEq(t, `[]`, string(body["results"]))
}

func TestGetProductByIDEndpoint(t *testing.T) {
	app, repo := setupApp(t)
	seedProductsForTest(t, repo)

	resp := get(t, app, "/products/2")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results map[string]any `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(2), body.Results["id"])
	assert.Equal(t, "demo2", body.Results["name"])

	missing := get(t, app, "/products/999")
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestGetProductsByTypeEndpoint(t *testing.T) {
	app, repo := setupApp(t)
	seedProductsForTest(t, repo)

	resp := get(t, app, "/products/types")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results json.RawMessage `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.JSONEq(t, `{
		"type1": [{"id":1,"name":"demo1","desc":"desc1","productType":"type1","quantity":1,"price":1000,"supplierCode":"SUP01"}],
		"type2": [{"id":2,"name":"demo2","desc":"desc2","productType":"type2","quantity":2,"price":2000,"supplierCode":"SUP02"}]
	}`, string(body.Results))
	assert.Less(t, bytes.Index(body.Results, []byte(`"type1"`)), bytes.Index(body.Results, []byte(`"type2"`)))
}

func TestCreateThenList_InvalidateOnCreate(t *testing.T) {
	app, _ := setupApp(t, services.WithInvalidateOnCreate(true))

	first := get(t, app, "/products")
	first.Body.Close()

	created := postJSON(t, app, "/products", map[string]any{
		"name": "demo", "productType": "type", "quantity": 3, "price": 200, "supplierCode": "SUP01",
	})
	created.Body.Close()
	require.Equal(t, http.StatusCreated, created.StatusCode)

	resp := get(t, app, "/products")
	defer resp.Body.Close()
	var body struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Results, 1)
}
