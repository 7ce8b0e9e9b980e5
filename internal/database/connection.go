// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.Payout{},
		&models.AdminSettings{},
		&models.AuditLog{},
		&models.AdminNotification{},
		&models.ReconciliationLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_status ON products(category, status)",

		// Order indexes: manual reconciliation looks up pending manual
		// orders by transaction_ref; the sweep scans matured escrow rows.
		"CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_method ON orders(status, payment_method)",
		"CREATE INDEX IF NOT EXISTS idx_orders_transaction_ref ON orders(transaction_ref)",
		"CREATE INDEX IF NOT EXISTS idx_orders_crypto_invoice ON orders(crypto_invoice_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_escrow_due ON orders(escrow_status, available_at)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payout ON orders(payout_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Payout indexes
		"CREATE INDEX IF NOT EXISTS idx_payouts_seller ON payouts(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_payouts_status ON payouts(status, created_at DESC)",

		// Admin indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notifications_status ON admin_notifications(status, priority)",
		"CREATE INDEX IF NOT EXISTS idx_admin_settings_category ON admin_settings(category, key)",
		"CREATE INDEX IF NOT EXISTS idx_reconciliation_logs_status ON reconciliation_logs(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_reconciliation_logs_source ON reconciliation_logs(source, created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@edumarket.com",
			UserType: models.UserTypeAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"first_name": "System",
				"last_name":  "Administrator",
				"role":       "super_admin",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Create default platform settings
	defaultSettings := []models.AdminSettings{
		{
			Category:    "general",
			Key:         "platform_name",
			Value:       models.JSONB{"value": "EduMarket"},
			DataType:    "string",
			Description: "Platform name displayed to users",
		},
		{
			Category:    "payments",
			Key:         "platform_fee_percentage",
			Value:       models.JSONB{"value": cfg.Payment.PlatformFeePercent},
			DataType:    "float",
			Description: "Platform commission percentage taken on each order",
		},
		{
			Category:    "payments",
			Key:         "holding_period_days",
			Value:       models.JSONB{"value": cfg.Payment.HoldingPeriodDays},
			DataType:    "integer",
			Description: "Days seller funds are held before becoming withdrawable",
		},
		{
			Category:    "payments",
			Key:         "minimum_payout",
			Value:       models.JSONB{"value": cfg.Payment.MinimumPayout},
			DataType:    "float",
			Description: "Minimum amount for payout requests",
		},
		{
			Category:    "payments",
			Key:         "payout_methods",
			Value:       models.JSONB{"value": cfg.Payment.PayoutMethods},
			DataType:    "array",
			Description: "Enabled payout destinations",
		},
	}

	for _, setting := range defaultSettings {
		var count int64
		db.Model(&models.AdminSettings{}).Where("category = ? AND key = ?", setting.Category, setting.Key).Count(&count)

		if count == 0 {
			// Get admin user ID for the UpdatedBy field
			var admin models.User
			if err := db.Where("user_type = ?", models.UserTypeAdmin).First(&admin).Error; err == nil {
				setting.UpdatedBy = admin.ID
				if err := db.Create(&setting).Error; err != nil {
					log.Printf("Warning: Failed to create setting %s.%s: %v", setting.Category, setting.Key, err)
				}
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
