package repositories

import (
	"context"
	"errors"

	"catalog/internal/models"
)

// ErrProductNotFound is returned by GetByID when no product has the given ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// GetAll returns every product ordered by ID.
	GetAll(ctx context.Context) ([]models.Product, error)
	// GetByID returns ErrProductNotFound (possibly wrapped) when the ID is unknown.
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	// Create persists product and sets its ID.
	Create(ctx context.Context, product *models.Product) error
}
