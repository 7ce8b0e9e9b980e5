// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	SellerID    uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"size:100;index"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	Status      ProductStatus  `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	SalesCount  int64          `json:"sales_count" gorm:"default:0"`

	// Relationships
	Seller User `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
}
