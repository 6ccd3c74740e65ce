// Package mapper converts between the wire-facing product DTOs and the entity.
package mapper

import (
	"catalog/internal/dto"
	"catalog/internal/models"
)

// ToEntity converts a create request to an entity. The ID is left for the store to assign.
func ToEntity(req dto.ProductRequest) models.Product {
	return models.Product{
		Name:         req.Name,
		Description:  cloneString(req.Description),
		ProductType:  req.ProductType,
		Quantity:     req.Quantity,
		Price:        req.Price,
		SupplierName: cloneString(req.SupplierName),
		SupplierCode: req.SupplierCode,
	}
}

// ToResponse converts a persisted entity to its response shape.
func ToResponse(p models.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Desc:         cloneString(p.Description),
		ProductType:  p.ProductType,
		Quantity:     p.Quantity,
		Price:        p.Price,
		SupplierName: cloneString(p.SupplierName),
		SupplierCode: p.SupplierCode,
	}
}

// ToResponseList maps every entity in order. It never returns nil.
func ToResponseList(products []models.Product) []dto.ProductResponse {
	responses := make([]dto.ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToResponse(p)
	}
	return responses
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
