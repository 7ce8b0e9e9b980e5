// internal/services/payout_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/database"
	"github.com/javajoker/edumarket-backend/internal/models"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

// PayoutService handles seller withdrawal requests and the admin
// approve/reject workflow. Funds are locked into the payout row the
// moment it is created and only ever return through a rejection.
type PayoutService struct {
	db                  *gorm.DB
	config              *config.Config
	notificationService *NotificationService
}

type RequestPayoutInput struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"required"`
}

type PayoutFilter struct {
	Status   *models.PayoutStatus
	SellerID *uuid.UUID
	Limit    int
	Offset   int
}

func NewPayoutService(db *gorm.DB, config *config.Config, notificationService *NotificationService) *PayoutService {
	return &PayoutService{
		db:                  db,
		config:              config,
		notificationService: notificationService,
	}
}

// RequestPayout creates a pending payout and debits the seller's available
// balance in the same transaction. The balance guard is part of the UPDATE
// itself, so two concurrent requests cannot both spend the same funds.
func (s *PayoutService) RequestPayout(sellerID uuid.UUID, req *RequestPayoutInput) (*models.Payout, error) {
	if req.Amount < s.config.Payment.MinimumPayout {
		return nil, fmt.Errorf("%w: minimum payout amount is %.2f", ErrValidation, s.config.Payment.MinimumPayout)
	}
	if !s.config.Payment.PayoutMethodAllowed(req.Method) {
		return nil, fmt.Errorf("%w: payout method %q is not enabled", ErrValidation, req.Method)
	}

	var payout *models.Payout
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var seller models.User
		if err := tx.First(&seller, "id = ?", sellerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: seller not found", ErrValidation)
			}
			return fmt.Errorf("database error: %w", err)
		}

		if !seller.HasPayoutDestination() {
			return fmt.Errorf("%w: no payout destination on file", ErrValidation)
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND available_balance >= ?", sellerID, req.Amount).
			Update("available_balance", gorm.Expr("available_balance - ?", req.Amount))
		if res.Error != nil {
			return fmt.Errorf("failed to debit available balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: requested %.2f, available %.2f", ErrInsufficientFunds, req.Amount, seller.AvailableBalance)
		}

		payoutNumber, err := utils.GeneratePayoutNumber()
		if err != nil {
			return fmt.Errorf("failed to generate payout number: %w", err)
		}

		// Snapshot the destination; later profile edits must not follow
		// funds already requested.
		details := make(models.JSONB, len(seller.PayoutDetails))
		for k, v := range seller.PayoutDetails {
			details[k] = v
		}

		payout = &models.Payout{
			PayoutNumber:  payoutNumber,
			SellerID:      sellerID,
			Amount:        req.Amount,
			Method:        req.Method,
			MethodDetails: details,
			Status:        models.PayoutStatusPending,
		}

		if err := tx.Create(payout).Error; err != nil {
			return fmt.Errorf("failed to create payout: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payout_number": payout.PayoutNumber,
		"seller_id":     sellerID,
		"amount":        payout.Amount,
	}).Info("Payout requested")

	if s.notificationService != nil {
		go s.notificationService.NotifyPayoutRequested(payout.ID, sellerID)
	}

	return payout, nil
}

// ApprovePayout finalizes a pending payout and allocates matured orders to
// it, oldest first, while their combined seller amount stays within the
// payout amount. Approving an already-decided payout returns
// ErrAlreadyProcessed and changes nothing.
func (s *PayoutService) ApprovePayout(payoutID, adminID uuid.UUID, transactionID string) error {
	var approved models.Payout

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var payout models.Payout
		if err := tx.First(&payout, "id = ?", payoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if payout.Status.IsTerminal() {
			return fmt.Errorf("%w: payout %s is %s", ErrAlreadyProcessed, payout.PayoutNumber, payout.Status)
		}

		now := time.Now()
		status := models.PayoutStatusCompleted
		if transactionID != "" {
			status = models.PayoutStatusPaid
		}

		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutStatusPending).
			Updates(map[string]interface{}{
				"status":         status,
				"approved_by":    adminID,
				"approved_at":    now,
				"transaction_id": transactionID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to approve payout: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: payout %s was decided concurrently", ErrAlreadyProcessed, payout.PayoutNumber)
		}

		if err := s.allocateOrders(tx, &payout, now); err != nil {
			return err
		}

		payout.Status = status
		approved = payout
		return nil
	})
	if err != nil {
		return err
	}

	go s.createAuditLog(adminID, "APPROVE_PAYOUT", "payout", &approved.ID, nil,
		map[string]interface{}{"status": approved.Status, "transaction_id": transactionID})

	if s.notificationService != nil {
		go s.notificationService.NotifyPayoutApproved(approved.ID, approved.SellerID)
	}

	return nil
}

// allocateOrders ties matured orders to the payout for auditability. FIFO
// by unlock time; whole orders only, never exceeding the payout amount.
// Residual value stays attributed to a later payout.
func (s *PayoutService) allocateOrders(tx *gorm.DB, payout *models.Payout, now time.Time) error {
	var eligible []models.Order
	err := tx.
		Where("seller_id = ? AND escrow_status = ? AND payout_id IS NULL",
			payout.SellerID, models.EscrowStatusAvailable).
		Order("available_at ASC, created_at ASC").
		Find(&eligible).Error
	if err != nil {
		return fmt.Errorf("failed to load allocatable orders: %w", err)
	}

	// Half-cent tolerance absorbs float representation noise on sums.
	const epsilon = 0.005
	allocated := 0.0
	for i := range eligible {
		order := eligible[i]
		if allocated+order.SellerAmount > payout.Amount+epsilon {
			break
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND escrow_status = ? AND payout_id IS NULL",
				order.ID, models.EscrowStatusAvailable).
			Updates(map[string]interface{}{
				"escrow_status": models.EscrowStatusPaidOut,
				"payout_id":     payout.ID,
				"paid_out_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to allocate order %s: %w", order.OrderNumber, res.Error)
		}
		if res.RowsAffected == 1 {
			allocated += order.SellerAmount
		}
	}

	return nil
}

// RejectPayout declines a pending payout and credits the locked amount
// back to the seller's available balance, exactly once: the terminal-state
// guard makes a second rejection fail before any balance change.
func (s *PayoutService) RejectPayout(payoutID, adminID uuid.UUID, reason string) error {
	var rejected models.Payout

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var payout models.Payout
		if err := tx.First(&payout, "id = ?", payoutID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if payout.Status.IsTerminal() {
			return fmt.Errorf("%w: payout %s is %s", ErrAlreadyProcessed, payout.PayoutNumber, payout.Status)
		}

		now := time.Now()
		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payoutID, models.PayoutStatusPending).
			Updates(map[string]interface{}{
				"status":           models.PayoutStatusRejected,
				"rejected_by":      adminID,
				"rejected_at":      now,
				"rejection_reason": reason,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to reject payout: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: payout %s was decided concurrently", ErrAlreadyProcessed, payout.PayoutNumber)
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", payout.SellerID).
			Update("available_balance", gorm.Expr("available_balance + ?", payout.Amount)).Error; err != nil {
			return fmt.Errorf("failed to re-credit available balance: %w", err)
		}

		rejected = payout
		return nil
	})
	if err != nil {
		return err
	}

	go s.createAuditLog(adminID, "REJECT_PAYOUT", "payout", &rejected.ID, nil,
		map[string]interface{}{"status": models.PayoutStatusRejected, "reason": reason})

	if s.notificationService != nil {
		go s.notificationService.NotifyPayoutRejected(rejected.ID, rejected.SellerID, reason)
	}

	return nil
}

// GetPayouts lists payouts for the admin queue.
func (s *PayoutService) GetPayouts(filter PayoutFilter) ([]models.Payout, int64, error) {
	query := s.db.Model(&models.Payout{}).Preload("Seller")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var payouts []models.Payout
	if err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&payouts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payouts: %w", err)
	}

	return payouts, total, nil
}

func (s *PayoutService) createAuditLog(userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, oldValues, newValues map[string]interface{}) {
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
