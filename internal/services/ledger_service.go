// internal/services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/database"
	"github.com/javajoker/edumarket-backend/internal/models"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

// LedgerService owns the order state machine and every seller balance
// mutation. All other code paths (webhooks, admin actions, the sweep
// worker) go through its operations; no caller touches balance columns
// directly.
type LedgerService struct {
	db                  *gorm.DB
	config              *config.Config
	notificationService *NotificationService
}

type CreateOrderRequest struct {
	ItemIDs       []string             `json:"item_ids" validate:"required,min=1"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=manual card crypto"`
	BuyerID       *uuid.UUID           `json:"buyer_id,omitempty"`
	BuyerEmail    string               `json:"buyer_email" validate:"omitempty,email"`
}

// PaymentProof carries the channel-specific evidence attached when an
// order is confirmed paid.
type PaymentProof struct {
	Method     models.PaymentMethod
	Reference  string
	VerifiedBy *uuid.UUID
	ReceiptURL string
}

func NewLedgerService(db *gorm.DB, config *config.Config, notificationService *NotificationService) *LedgerService {
	return &LedgerService{
		db:                  db,
		config:              config,
		notificationService: notificationService,
	}
}

// roundCents keeps money arithmetic on exact cent boundaries.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateOrder computes platform fee and seller amount from the active
// commission rate and creates the order in status pending. The money
// fields are immutable after this point.
func (s *LedgerService) CreateOrder(req *CreateOrderRequest) (*models.Order, error) {
	if len(req.ItemIDs) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrValidation)
	}

	itemIDs := make([]uuid.UUID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed item id %q", ErrValidation, raw)
		}
		itemIDs = append(itemIDs, id)
	}

	var products []models.Product
	if err := s.db.Where("id IN ? AND status = ?", itemIDs, models.ProductStatusActive).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve order items: %w", err)
	}
	if len(products) != len(itemIDs) {
		return nil, fmt.Errorf("%w: one or more items are unknown or inactive", ErrValidation)
	}

	sellerID := products[0].SellerID
	total := 0.0
	for _, p := range products {
		if p.SellerID != sellerID {
			return nil, fmt.Errorf("%w: items span multiple sellers", ErrValidation)
		}
		total += p.Price
	}
	total = roundCents(total)

	if total <= 0 {
		return nil, fmt.Errorf("%w: order total must be positive for %s payments", ErrValidation, req.PaymentMethod)
	}

	platformFee := roundCents(total * s.config.Payment.PlatformFeePercent / 100)
	sellerAmount := roundCents(total - platformFee)
	if sellerAmount <= 0 {
		return nil, fmt.Errorf("%w: seller amount must be positive", ErrValidation)
	}

	orderNumber, err := utils.GenerateOrderNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}

	availableAt := time.Now().AddDate(0, 0, s.config.Payment.HoldingPeriodDays)

	order := &models.Order{
		OrderNumber:   orderNumber,
		BuyerID:       req.BuyerID,
		BuyerEmail:    req.BuyerEmail,
		SellerID:      sellerID,
		ItemIDs:       req.ItemIDs,
		TotalAmount:   total,
		PlatformFee:   platformFee,
		SellerAmount:  sellerAmount,
		Status:        models.OrderStatusPending,
		EscrowStatus:  models.EscrowStatusPending,
		PaymentMethod: req.PaymentMethod,
		AvailableAt:   &availableAt,
	}

	if err := s.db.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

// MarkPaid confirms payment on a pending order and credits the seller's
// pending balance in the same transaction. It is idempotent: confirming
// an order that is already paid (duplicate webhook delivery, double
// click) succeeds without a second credit. Returns whether this call
// applied the credit.
func (s *LedgerService) MarkPaid(orderID uuid.UUID, proof PaymentProof) (bool, error) {
	credited := false
	var paid models.Order

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if order.Status.IsPaidVariant() {
			// Duplicate delivery; nothing to do.
			return nil
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: order %s is %s", ErrInvalidState, order.OrderNumber, order.Status)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":  models.OrderStatusPaid,
			"is_paid": true,
			"paid_at": now,
		}
		if proof.Reference != "" {
			updates["transaction_ref"] = proof.Reference
		}
		if proof.VerifiedBy != nil {
			updates["verified_by"] = *proof.VerifiedBy
			updates["verified_at"] = now
		}
		if proof.ReceiptURL != "" {
			updates["receipt_url"] = proof.ReceiptURL
		}

		// Status-guarded write: of two concurrent confirmations only one
		// row update succeeds, and only the winner credits the balance.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", order.SellerID).
			Updates(map[string]interface{}{
				"pending_balance": gorm.Expr("pending_balance + ?", order.SellerAmount),
				"total_earnings":  gorm.Expr("total_earnings + ?", order.SellerAmount),
			}).Error; err != nil {
			return fmt.Errorf("failed to credit seller balance: %w", err)
		}

		if len(order.ItemIDs) > 0 {
			itemIDs := make([]uuid.UUID, 0, len(order.ItemIDs))
			for _, raw := range order.ItemIDs {
				if id, err := uuid.Parse(raw); err == nil {
					itemIDs = append(itemIDs, id)
				}
			}
			if err := tx.Model(&models.Product{}).
				Where("id IN ?", itemIDs).
				Update("sales_count", gorm.Expr("sales_count + 1")).Error; err != nil {
				return fmt.Errorf("failed to bump sales counts: %w", err)
			}
		}

		credited = true
		paid = order
		return nil
	})
	if err != nil {
		return false, err
	}

	if credited {
		logrus.WithFields(logrus.Fields{
			"order_number":  paid.OrderNumber,
			"seller_id":     paid.SellerID,
			"seller_amount": paid.SellerAmount,
			"method":        proof.Method,
		}).Info("Order confirmed paid")

		if s.notificationService != nil {
			go s.notificationService.NotifyOrderPaid(paid.ID, paid.SellerID)
		}
	}

	return credited, nil
}

// MarkCancelled cancels a pending order. Paid orders are never reversed
// through this path; that requires an explicit refund workflow.
func (s *LedgerService) MarkCancelled(orderID uuid.UUID, adminID uuid.UUID, reason string) error {
	var cancelled models.Order

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: order %s is %s, only pending orders can be cancelled", ErrInvalidState, order.OrderNumber, order.Status)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":        models.OrderStatusCancelled,
				"cancel_reason": reason,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race against a payment confirmation.
			return fmt.Errorf("%w: order %s was confirmed concurrently", ErrInvalidState, order.OrderNumber)
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return err
	}

	go s.createAuditLog(adminID, "CANCEL_ORDER", "order", &cancelled.ID, nil,
		map[string]interface{}{"status": models.OrderStatusCancelled, "reason": reason})

	if s.notificationService != nil {
		go s.notificationService.NotifyOrderCancelled(cancelled.ID, cancelled.SellerID, reason)
	}

	return nil
}

// SweepMaturedHoldings moves seller funds whose holding period has elapsed
// from pending_balance to available_balance. Each order is swept in its own
// guarded transaction, so concurrent sweeps on multiple instances settle
// each order at most once. Returns the number of orders swept.
func (s *LedgerService) SweepMaturedHoldings() (int, error) {
	now := time.Now()
	var due []models.Order
	err := s.db.
		Where("escrow_status = ? AND status IN ? AND available_at <= ?",
			models.EscrowStatusPending,
			[]models.OrderStatus{models.OrderStatusPaid, models.OrderStatusCompleted},
			now).
		Limit(500).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("failed to scan matured holdings: %w", err)
	}

	swept := 0
	for i := range due {
		order := due[i]
		err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			res := tx.Model(&models.Order{}).
				Where("id = ? AND escrow_status = ?", order.ID, models.EscrowStatusPending).
				Update("escrow_status", models.EscrowStatusAvailable)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Another sweeper settled this order first.
				return nil
			}

			if err := tx.Model(&models.User{}).
				Where("id = ?", order.SellerID).
				Updates(map[string]interface{}{
					"pending_balance":   gorm.Expr("pending_balance - ?", order.SellerAmount),
					"available_balance": gorm.Expr("available_balance + ?", order.SellerAmount),
				}).Error; err != nil {
				return err
			}

			swept++
			return nil
		})
		if err != nil {
			logrus.WithError(err).WithField("order_number", order.OrderNumber).
				Error("Failed to sweep matured order")
		}
	}

	if swept > 0 {
		logrus.WithField("count", swept).Info("Swept matured holdings")
	}
	return swept, nil
}

// GetOrder loads one order with its seller.
func (s *LedgerService) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Seller").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

// GetSellerBalance returns the seller's ledger triple.
func (s *LedgerService) GetSellerBalance(sellerID uuid.UUID) (map[string]interface{}, error) {
	var seller models.User
	if err := s.db.First(&seller, "id = ?", sellerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: seller not found", ErrValidation)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return map[string]interface{}{
		"pending_balance":   seller.PendingBalance,
		"available_balance": seller.AvailableBalance,
		"total_earnings":    seller.TotalEarnings,
		"currency":          "USD",
	}, nil
}

func (s *LedgerService) createAuditLog(userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, oldValues, newValues map[string]interface{}) {
	auditLog := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OldValues:    models.JSONB(oldValues),
		NewValues:    models.JSONB(newValues),
	}

	s.db.Create(auditLog)
}
