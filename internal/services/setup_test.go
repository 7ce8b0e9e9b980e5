// internal/services/setup_test.go
package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.Payout{},
		&models.AdminSettings{},
		&models.AuditLog{},
		&models.AdminNotification{},
		&models.ReconciliationLog{},
	))

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			PlatformFeePercent: 10,
			HoldingPeriodDays:  7,
			MinimumPayout:      50,
			PayoutMethods:      []string{"bank", "paypal", "crypto"},
		},
	}
}

func createTestSeller(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	seller := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		UserType:     models.UserTypeSeller,
		Status:       models.UserStatusActive,
		PayoutMethod: "bank",
		PayoutDetails: models.JSONB{
			"account_number": "12345678",
			"bank_name":      "Test Bank",
		},
	}
	require.NoError(t, db.Create(seller).Error)
	return seller
}

func createTestProduct(t *testing.T, db *gorm.DB, seller *models.User, price float64) *models.Product {
	t.Helper()

	product := &models.Product{
		SellerID: seller.ID,
		Title:    "Test Course",
		Price:    price,
		Status:   models.ProductStatusActive,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func reloadSeller(t *testing.T, db *gorm.DB, id interface{}) *models.User {
	t.Helper()

	var seller models.User
	require.NoError(t, db.First(&seller, "id = ?", id).Error)
	return &seller
}
