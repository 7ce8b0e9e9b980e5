// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	UserType     UserType   `json:"user_type" gorm:"type:varchar(20);not null"`
	Status       UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	ProfileData  JSONB      `json:"profile_data" gorm:"type:jsonb"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	// Payout destination on file. Snapshotted into each payout at request
	// time so later profile edits do not follow funds already requested.
	PayoutMethod  string `json:"payout_method,omitempty" gorm:"size:20"`
	PayoutDetails JSONB  `json:"payout_details,omitempty" gorm:"type:jsonb"`

	// Seller ledger fields. Mutated only inside ledger/payout transactions,
	// never through a free-standing setter.
	PendingBalance   float64 `json:"pending_balance" gorm:"type:decimal(12,2);not null;default:0"`
	AvailableBalance float64 `json:"available_balance" gorm:"type:decimal(12,2);not null;default:0"`
	TotalEarnings    float64 `json:"total_earnings" gorm:"type:decimal(12,2);not null;default:0"`

	// Relationships
	Products []Product `json:"products,omitempty" gorm:"foreignKey:SellerID"`
	Orders   []Order   `json:"orders,omitempty" gorm:"foreignKey:SellerID"`
	Payouts  []Payout  `json:"payouts,omitempty" gorm:"foreignKey:SellerID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// HasPayoutDestination reports whether a withdrawal destination is on file.
func (u *User) HasPayoutDestination() bool {
	return u.PayoutMethod != "" && len(u.PayoutDetails) > 0
}
