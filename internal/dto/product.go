package dto

// ProductRequest is the body accepted by POST /products.
type ProductRequest struct {
	Name         string  `json:"name" validate:"notblank"`
	Description  *string `json:"description,omitempty"`
	ProductType  string  `json:"productType" validate:"notblank"`
	Quantity     int     `json:"quantity" validate:"min=1"`
	Price        float64 `json:"price" validate:"min=200,max=500000"`
	SupplierName *string `json:"supplierName,omitempty"`
	SupplierCode string  `json:"supplierCode" validate:"notblank"`
}

// ProductResponse is the caller-visible projection of a product.
// Absent text fields are left out of the JSON.
type ProductResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name,omitempty"`
	Desc         *string `json:"desc,omitempty"`
	ProductType  string  `json:"productType,omitempty"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	SupplierName *string `json:"supplierName,omitempty"`
	SupplierCode string  `json:"supplierCode,omitempty"`
}
