// internal/services/reconciliation_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/models"
)

type ReconciliationServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ledger  *LedgerService
	matcher *ReconciliationService
	seller  *models.User
	product *models.Product
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.ledger = NewLedgerService(suite.db, newTestConfig(), nil)
	suite.matcher = NewReconciliationService(suite.db, suite.ledger)
	suite.seller = createTestSeller(suite.T(), suite.db, "seller1")
	suite.product = createTestProduct(suite.T(), suite.db, suite.seller, 100.00)
}

// createManualOrder creates a pending manual order carrying the given
// bank reference.
func (suite *ReconciliationServiceTestSuite) createManualOrder(ref string) *models.Order {
	order, err := suite.ledger.CreateOrder(&CreateOrderRequest{
		ItemIDs:       []string{suite.product.ID.String()},
		PaymentMethod: models.PaymentMethodManual,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("transaction_ref", ref).Error)
	return order
}

func (suite *ReconciliationServiceTestSuite) orderStatus(order *models.Order) models.OrderStatus {
	var reloaded models.Order
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", order.ID).Error)
	return reloaded.Status
}

func (suite *ReconciliationServiceTestSuite) TestMatchByReferencesConfirmsOrder() {
	order := suite.createManualOrder("123456789")

	result, err := suite.matcher.MatchByReferences([]string{"123456789"}, nil, "manual", "")
	suite.Require().NoError(err)
	suite.Equal("matched", result.Status)
	suite.Equal(1, result.MatchedCount)
	suite.Equal([]string{order.OrderNumber}, result.MatchedOrderNumbers)
	suite.Empty(result.UnmatchedRefs)

	suite.Equal(models.OrderStatusPaid, suite.orderStatus(order))

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
}

func (suite *ReconciliationServiceTestSuite) TestMatchByReferencesReportsUnmatched() {
	suite.createManualOrder("123456789")

	result, err := suite.matcher.MatchByReferences([]string{"123456789", "555555555"}, nil, "manual", "")
	suite.Require().NoError(err)
	suite.Equal("partial", result.Status)
	suite.Equal(1, result.MatchedCount)
	suite.Equal([]string{"555555555"}, result.UnmatchedRefs)
}

func (suite *ReconciliationServiceTestSuite) TestAmbiguousReferenceIsNeverCredited() {
	first := suite.createManualOrder("123456789")
	second := suite.createManualOrder("123456789")

	result, err := suite.matcher.MatchByReferences([]string{"123456789"}, nil, "manual", "")
	suite.Require().NoError(err)
	suite.Equal("unmatched", result.Status)
	suite.Equal(0, result.MatchedCount)
	suite.Equal([]string{"123456789"}, result.AmbiguousRefs)

	suite.Equal(models.OrderStatusPending, suite.orderStatus(first))
	suite.Equal(models.OrderStatusPending, suite.orderStatus(second))

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(0.00, seller.PendingBalance)
}

func (suite *ReconciliationServiceTestSuite) TestMatchByTextExtractsReferenceFromSMS() {
	order := suite.createManualOrder("123456789")

	// Relayed bank SMS in Arabic; only the digit run matters.
	result, err := suite.matcher.MatchByText("شكرا، تم تحويل 123456789 بنجاح", nil)
	suite.Require().NoError(err)
	suite.Equal("matched", result.Status)
	suite.Equal(1, result.MatchedCount)

	suite.Equal(models.OrderStatusPaid, suite.orderStatus(order))
}

func (suite *ReconciliationServiceTestSuite) TestDuplicateSMSDoesNotDoubleCredit() {
	suite.createManualOrder("123456789")

	_, err := suite.matcher.MatchByText("transfer 123456789 done", nil)
	suite.Require().NoError(err)

	result, err := suite.matcher.MatchByText("transfer 123456789 done", nil)
	suite.Require().NoError(err)
	// The order is no longer pending, so the rerun reports the reference
	// as unmatched instead of crediting again.
	suite.Equal(0, result.MatchedCount)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
}

func (suite *ReconciliationServiceTestSuite) TestUnparseableSignalIsLogged() {
	_, err := suite.matcher.MatchByText("no digits here", nil)
	suite.ErrorIs(err, ErrUnparseableSignal)

	var logs []models.ReconciliationLog
	suite.Require().NoError(suite.db.Find(&logs).Error)
	suite.Require().Len(logs, 1)
	suite.Equal("unparseable", logs[0].Status)
	suite.Equal("sms", logs[0].Source)
	suite.Equal("no digits here", logs[0].RawSignal)
}

func (suite *ReconciliationServiceTestSuite) TestShortDigitRunsAreIgnored() {
	suite.createManualOrder("12345")

	// 5 digits is below the reference format; nothing to extract.
	_, err := suite.matcher.MatchByText("code 12345", nil)
	suite.ErrorIs(err, ErrUnparseableSignal)
}

func (suite *ReconciliationServiceTestSuite) TestEverySignalIsPersisted() {
	suite.createManualOrder("123456789")

	_, err := suite.matcher.MatchByReferences([]string{"123456789"}, nil, "manual", "")
	suite.Require().NoError(err)
	_, err = suite.matcher.MatchByReferences([]string{"999999999"}, nil, "manual", "")
	suite.Require().NoError(err)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.ReconciliationLog{}).Count(&count).Error)
	suite.Equal(int64(2), count)
}

func (suite *ReconciliationServiceTestSuite) createCryptoOrder(invoiceID string) *models.Order {
	order, err := suite.ledger.CreateOrder(&CreateOrderRequest{
		ItemIDs:       []string{suite.product.ID.String()},
		PaymentMethod: models.PaymentMethodCrypto,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("crypto_invoice_id", invoiceID).Error)
	return order
}

func (suite *ReconciliationServiceTestSuite) TestCryptoWebhookPaidCreditsOrder() {
	order := suite.createCryptoOrder("inv-1")

	err := suite.matcher.HandleCryptoWebhook("inv-1", "Paid", order.OrderNumber)
	suite.Require().NoError(err)

	suite.Equal(models.OrderStatusPaid, suite.orderStatus(order))
	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
}

func (suite *ReconciliationServiceTestSuite) TestCryptoWebhookOverpaidCreditsOrder() {
	order := suite.createCryptoOrder("inv-1")

	err := suite.matcher.HandleCryptoWebhook("inv-1", "over paid", "")
	suite.Require().NoError(err)

	suite.Equal(models.OrderStatusPaid, suite.orderStatus(order))
}

func (suite *ReconciliationServiceTestSuite) TestCryptoWebhookInvoiceMismatchFailsClosed() {
	order := suite.createCryptoOrder("inv-1")

	err := suite.matcher.HandleCryptoWebhook("inv-1", "paid", "ORD-SOMETHING-ELSE")
	suite.ErrorIs(err, ErrOrderNotFound)

	suite.Equal(models.OrderStatusPending, suite.orderStatus(order))
	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(0.00, seller.PendingBalance)
}

func (suite *ReconciliationServiceTestSuite) TestCryptoWebhookUnknownInvoiceFails() {
	err := suite.matcher.HandleCryptoWebhook("inv-missing", "paid", "")
	suite.ErrorIs(err, ErrOrderNotFound)
}

func (suite *ReconciliationServiceTestSuite) TestCryptoWebhookNonPaidStatusMovesNoMoney() {
	order := suite.createCryptoOrder("inv-1")

	err := suite.matcher.HandleCryptoWebhook("inv-1", "confirming", "")
	suite.Require().NoError(err)

	suite.Equal(models.OrderStatusPending, suite.orderStatus(order))

	var reloaded models.Order
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", order.ID).Error)
	suite.Equal("confirming", reloaded.CryptoStatus)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(0.00, seller.PendingBalance)
}

func (suite *ReconciliationServiceTestSuite) TestDuplicateCryptoWebhookIsIdempotent() {
	order := suite.createCryptoOrder("inv-1")

	suite.Require().NoError(suite.matcher.HandleCryptoWebhook("inv-1", "paid", ""))
	suite.Require().NoError(suite.matcher.HandleCryptoWebhook("inv-1", "paid", ""))

	suite.Equal(models.OrderStatusPaid, suite.orderStatus(order))
	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
}

func TestReconciliationServiceSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
