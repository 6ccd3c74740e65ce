package models

import "time"

// Product represents a product in the catalog.
type Product struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"type:varchar(255);not null"`
	Description  *string `gorm:"type:varchar(1000)"`
	ProductType  string  `gorm:"type:varchar(100);not null;index"`
	Quantity     int     `gorm:"not null"`
	Price        float64 `gorm:"not null"`
	SupplierName *string `gorm:"type:varchar(255)"`
	SupplierCode string  `gorm:"type:varchar(50);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName pins the table name regardless of GORM's naming strategy.
func (Product) TableName() string {
	return "products"
}
