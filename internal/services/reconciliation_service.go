// internal/services/reconciliation_service.go
package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/models"
)

// Bank and telecom SMS reference numbers are 6-12 digit runs.
var referencePattern = regexp.MustCompile(`[0-9]{6,12}`)

// ReconciliationService turns external payment signals (explicit reference
// lists, freeform SMS text, crypto processor webhooks) into confirmed
// orders. Matching is idempotent per reference because crediting is
// delegated to LedgerService.MarkPaid, and closed-world: every signal is
// persisted to reconciliation_logs whether or not it matched.
type ReconciliationService struct {
	db     *gorm.DB
	ledger *LedgerService
}

type MatchResult struct {
	Status              string   `json:"status"` // matched | partial | unmatched | unparseable
	MatchedCount        int      `json:"matched_count"`
	MatchedOrderNumbers []string `json:"matched_order_numbers"`
	UnmatchedRefs       []string `json:"unmatched_refs"`
	AmbiguousRefs       []string `json:"ambiguous_refs,omitempty"`
}

func NewReconciliationService(db *gorm.DB, ledger *LedgerService) *ReconciliationService {
	return &ReconciliationService{
		db:     db,
		ledger: ledger,
	}
}

// MatchByReferences confirms pending manual orders whose transaction_ref
// equals one of the given references. A reference that matches no order is
// reported back, never dropped; a reference matching more than one pending
// order is ambiguous and left for an operator.
func (s *ReconciliationService) MatchByReferences(refs []string, operatorID *uuid.UUID, source, rawSignal string) (*MatchResult, error) {
	normalized := normalizeRefs(refs)
	if len(normalized) == 0 {
		s.writeLog(source, rawSignal, nil, nil, nil, nil, operatorID, "unparseable")
		return &MatchResult{Status: "unparseable"}, ErrUnparseableSignal
	}

	result := &MatchResult{
		MatchedOrderNumbers: []string{},
		UnmatchedRefs:       []string{},
	}

	for _, ref := range normalized {
		var candidates []models.Order
		err := s.db.
			Where("status = ? AND payment_method = ? AND transaction_ref = ?",
				models.OrderStatusPending, models.PaymentMethodManual, ref).
			Find(&candidates).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query candidate orders: %w", err)
		}

		switch len(candidates) {
		case 0:
			result.UnmatchedRefs = append(result.UnmatchedRefs, ref)
		case 1:
			order := candidates[0]
			credited, err := s.ledger.MarkPaid(order.ID, PaymentProof{
				Method:     models.PaymentMethodManual,
				Reference:  ref,
				VerifiedBy: operatorID,
			})
			if err != nil {
				if errors.Is(err, ErrInvalidState) {
					// Confirmed by someone else between query and credit.
					result.UnmatchedRefs = append(result.UnmatchedRefs, ref)
					continue
				}
				return nil, err
			}
			result.MatchedOrderNumbers = append(result.MatchedOrderNumbers, order.OrderNumber)
			if credited {
				result.MatchedCount++
			}
		default:
			result.AmbiguousRefs = append(result.AmbiguousRefs, ref)
		}
	}

	result.Status = classifyResult(result)

	s.writeLog(source, rawSignal, normalized, result.MatchedOrderNumbers,
		result.UnmatchedRefs, result.AmbiguousRefs, operatorID, result.Status)

	return result, nil
}

// MatchByText extracts candidate reference numbers from freeform text (for
// example a relayed bank SMS) and matches them. Zero extractable numbers is
// not an internal failure: the signal is logged as unparseable so an
// operator can follow up, and ErrUnparseableSignal tells the caller why.
func (s *ReconciliationService) MatchByText(rawMessage string, operatorID *uuid.UUID) (*MatchResult, error) {
	refs := referencePattern.FindAllString(rawMessage, -1)
	if len(refs) == 0 {
		s.writeLog("sms", rawMessage, nil, nil, nil, nil, operatorID, "unparseable")
		logrus.WithField("message_length", len(rawMessage)).
			Warn("Payment signal had no extractable reference")
		return &MatchResult{Status: "unparseable"}, ErrUnparseableSignal
	}

	return s.MatchByReferences(refs, operatorID, "sms", rawMessage)
}

// HandleCryptoWebhook processes a crypto processor callback. The stored
// invoice id is the authority: a payload whose invoice does not belong to
// the referenced order is rejected before any state change, so a spoofed
// webhook cannot credit an unrelated order. Only paid/overpaid statuses
// credit funds; anything else just records the processor status.
func (s *ReconciliationService) HandleCryptoWebhook(invoiceID, statusText, payloadOrderNumber string) error {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return fmt.Errorf("%w: missing invoice id", ErrValidation)
	}

	var order models.Order
	if err := s.db.First(&order, "crypto_invoice_id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no order for invoice %s", ErrOrderNotFound, invoiceID)
		}
		return fmt.Errorf("database error: %w", err)
	}

	if payloadOrderNumber != "" && payloadOrderNumber != order.OrderNumber {
		return fmt.Errorf("%w: invoice %s does not belong to order %s", ErrOrderNotFound, invoiceID, payloadOrderNumber)
	}

	status := strings.ToLower(strings.TrimSpace(statusText))
	switch status {
	case "paid", "over paid", "overpaid":
		credited, err := s.ledger.MarkPaid(order.ID, PaymentProof{
			Method:    models.PaymentMethodCrypto,
			Reference: invoiceID,
		})
		if err != nil {
			return err
		}
		if err := s.db.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("crypto_status", status).Error; err != nil {
			logrus.WithError(err).Warn("Failed to record crypto status after credit")
		}
		if credited {
			s.writeLog("webhook", invoiceID, []string{invoiceID},
				[]string{order.OrderNumber}, nil, nil, nil, "matched")
		}
		return nil
	default:
		// Observability only; no funds move for non-paid statuses.
		if err := s.db.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("crypto_status", status).Error; err != nil {
			return fmt.Errorf("failed to update crypto status: %w", err)
		}
		return nil
	}
}

// GetLogs lists reconciliation history, optionally filtered to signals
// that still need operator attention.
func (s *ReconciliationService) GetLogs(status string, limit, offset int) ([]models.ReconciliationLog, int64, error) {
	query := s.db.Model(&models.ReconciliationLog{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reconciliation logs: %w", err)
	}

	var logs []models.ReconciliationLog
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch reconciliation logs: %w", err)
	}

	return logs, total, nil
}

func normalizeRefs(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.ToUpper(strings.TrimSpace(ref))
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

func classifyResult(r *MatchResult) string {
	switch {
	case len(r.MatchedOrderNumbers) > 0 && len(r.UnmatchedRefs) == 0 && len(r.AmbiguousRefs) == 0:
		return "matched"
	case len(r.MatchedOrderNumbers) > 0:
		return "partial"
	default:
		return "unmatched"
	}
}

func (s *ReconciliationService) writeLog(source, raw string, refs, matched, unmatched, ambiguous []string, operatorID *uuid.UUID, status string) {
	entry := &models.ReconciliationLog{
		Source:              source,
		RawSignal:           raw,
		ExtractedRefs:       refs,
		MatchedOrderNumbers: matched,
		UnmatchedRefs:       unmatched,
		AmbiguousRefs:       ambiguous,
		MatchedCount:        len(matched),
		Status:              status,
		ProcessedBy:         operatorID,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logrus.WithError(err).Error("Failed to persist reconciliation log")
	}
}
