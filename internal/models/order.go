// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Order is one purchase transaction. Money fields are written once at
// creation; only the engine touches the status and escrow columns afterwards.
type Order struct {
	BaseModel
	OrderNumber string         `json:"order_number" gorm:"uniqueIndex;size:32;not null"`
	BuyerID     *uuid.UUID     `json:"buyer_id" gorm:"type:uuid;index"`
	BuyerEmail  string         `json:"buyer_email" gorm:"size:255"`
	SellerID    uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	ItemIDs     pq.StringArray `json:"item_ids" gorm:"type:text[]"`

	// seller_amount + platform_fee == total_amount, fixed at creation.
	TotalAmount  float64 `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	PlatformFee  float64 `json:"platform_fee" gorm:"type:decimal(10,2);not null"`
	SellerAmount float64 `json:"seller_amount" gorm:"type:decimal(10,2);not null"`

	Status       OrderStatus  `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	EscrowStatus EscrowStatus `json:"escrow_status" gorm:"type:varchar(20);default:'pending';index"`

	PaymentMethod   PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null;index"`
	TransactionRef  string        `json:"transaction_ref,omitempty" gorm:"size:255;index"`
	CryptoInvoiceID string        `json:"crypto_invoice_id,omitempty" gorm:"size:255;index"`
	CryptoStatus    string        `json:"crypto_status,omitempty" gorm:"size:50"`

	IsPaid     bool       `json:"is_paid" gorm:"default:false"`
	PaidAt     *time.Time `json:"paid_at"`
	VerifiedAt *time.Time `json:"verified_at"`
	VerifiedBy *uuid.UUID `json:"verified_by" gorm:"type:uuid"`
	ReceiptURL string     `json:"receipt_url,omitempty" gorm:"size:512"`

	CancelReason string `json:"cancel_reason,omitempty" gorm:"type:text"`

	// AvailableAt is when held funds unlock; PayoutID is set once the order
	// has been allocated to a completed payout.
	AvailableAt *time.Time `json:"available_at" gorm:"index"`
	PaidOutAt   *time.Time `json:"paid_out_at"`
	PayoutID    *uuid.UUID `json:"payout_id" gorm:"type:uuid;index"`

	// Relationships
	Buyer  *User   `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller User    `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Payout *Payout `json:"payout,omitempty" gorm:"foreignKey:PayoutID"`
}
