package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog/internal/models"
)

// InMemoryProductRepository is an in-memory implementation of ProductRepository.
// IDs are assigned from a sequence starting at 1.
type InMemoryProductRepository struct {
	mu       sync.RWMutex
	products map[int64]models.Product
	order    []int64
	nextID   int64
}

// NewInMemoryProductRepository creates a new instance of InMemoryProductRepository.
func NewInMemoryProductRepository() *InMemoryProductRepository {
	return &InMemoryProductRepository{
		products: make(map[int64]models.Product),
		nextID:   1,
	}
}

// GetAll returns all products in ID order.
func (r *InMemoryProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.order))
	for _, id := range r.order {
		productList = append(productList, copyProduct(r.products[id]))
	}
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %d: %w", id, ErrProductNotFound)
	}
	p := copyProduct(product)
	return &p, nil
}

// Create adds a new product and assigns it the next ID.
func (r *InMemoryProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	product.ID = r.nextID
	product.CreatedAt = now
	product.UpdatedAt = now
	r.nextID++

	r.products[product.ID] = copyProduct(*product)
	r.order = append(r.order, product.ID)
	return nil
}

// copyProduct detaches the optional fields so callers cannot mutate stored state.
func copyProduct(p models.Product) models.Product {
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	if p.SupplierName != nil {
		s := *p.SupplierName
		p.SupplierName = &s
	}
	return p
}
