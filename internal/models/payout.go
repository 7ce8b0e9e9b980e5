// internal/models/payout.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Payout is one seller withdrawal request. The requested amount is debited
// from available_balance the moment the row is created; a rejection credits
// it back exactly once.
type Payout struct {
	BaseModel
	PayoutNumber string    `json:"payout_number" gorm:"uniqueIndex;size:32;not null"`
	SellerID     uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`
	Amount       float64   `json:"amount" gorm:"type:decimal(12,2);not null"`

	// MethodDetails is a snapshot of the seller's destination at request
	// time; it must not follow later profile edits.
	Method        string `json:"method" gorm:"size:20;not null"`
	MethodDetails JSONB  `json:"method_details" gorm:"type:jsonb"`

	Status PayoutStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`

	ApprovedBy      *uuid.UUID `json:"approved_by" gorm:"type:uuid"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectedBy      *uuid.UUID `json:"rejected_by" gorm:"type:uuid"`
	RejectedAt      *time.Time `json:"rejected_at"`
	TransactionID   string     `json:"transaction_id,omitempty" gorm:"size:255"`
	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"type:text"`

	// Relationships
	Seller User    `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:PayoutID"`
}
