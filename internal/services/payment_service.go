// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/models"
)

// PaymentService handles the channel-specific plumbing in front of the
// ledger: Stripe intents for card orders and invoice registration for the
// crypto channel. It never mutates balances itself; every credit goes
// through LedgerService.MarkPaid.
type PaymentService struct {
	db     *gorm.DB
	config *config.Config
	ledger *LedgerService
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

func NewPaymentService(db *gorm.DB, config *config.Config, ledger *LedgerService) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:     db,
		config: config,
		ledger: ledger,
	}
}

// CreateCardPaymentIntent creates a Stripe PaymentIntent for a pending
// card order and stores the intent id as the order's transaction
// reference so the confirmation path can find it again.
func (s *PaymentService) CreateCardPaymentIntent(orderID uuid.UUID) (*PaymentIntentResponse, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if order.PaymentMethod != models.PaymentMethodCard {
		return nil, fmt.Errorf("%w: order %s is not a card order", ErrValidation, order.OrderNumber)
	}
	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidState, order.OrderNumber, order.Status)
	}

	// Convert amount to cents for Stripe
	amountInCents := int64(order.TotalAmount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String("usd"),
	}
	params.AddMetadata("order_number", order.OrderNumber)
	params.AddMetadata("seller_id", order.SellerID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if err := s.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("transaction_ref", pi.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to store payment reference: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmCardPayment fetches the intent from Stripe and, when it has
// succeeded, confirms the matching order through the ledger. Safe to call
// repeatedly for the same intent; MarkPaid absorbs duplicates.
func (s *PaymentService) ConfirmCardPayment(req *ConfirmPaymentRequest) (bool, error) {
	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get payment intent: %w", err)
	}

	var order models.Order
	if err := s.db.First(&order, "transaction_ref = ? AND payment_method = ?",
		req.PaymentIntentID, models.PaymentMethodCard).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: no order for intent %s", ErrOrderNotFound, req.PaymentIntentID)
		}
		return false, fmt.Errorf("database error: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return false, fmt.Errorf("%w: payment intent is %s", ErrInvalidState, pi.Status)
	}

	return s.ledger.MarkPaid(order.ID, PaymentProof{
		Method:    models.PaymentMethodCard,
		Reference: pi.ID,
	})
}

// CreateCryptoInvoice registers an invoice id on a pending crypto order.
// Idempotent: a second call returns the invoice already on file, so the
// webhook always has exactly one id to verify against.
func (s *PaymentService) CreateCryptoInvoice(orderID uuid.UUID) (string, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrOrderNotFound
		}
		return "", fmt.Errorf("database error: %w", err)
	}

	if order.PaymentMethod != models.PaymentMethodCrypto {
		return "", fmt.Errorf("%w: order %s is not a crypto order", ErrValidation, order.OrderNumber)
	}
	if order.CryptoInvoiceID != "" {
		return order.CryptoInvoiceID, nil
	}
	if order.Status != models.OrderStatusPending {
		return "", fmt.Errorf("%w: order %s is %s", ErrInvalidState, order.OrderNumber, order.Status)
	}

	invoiceID := uuid.NewString()

	// Guarded write: only the first registration sticks.
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND (crypto_invoice_id IS NULL OR crypto_invoice_id = '')", order.ID).
		Update("crypto_invoice_id", invoiceID)
	if res.Error != nil {
		return "", fmt.Errorf("failed to register crypto invoice: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var current models.Order
		if err := s.db.First(&current, "id = ?", order.ID).Error; err != nil {
			return "", fmt.Errorf("database error: %w", err)
		}
		return current.CryptoInvoiceID, nil
	}

	return invoiceID, nil
}
