// internal/services/ledger_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/models"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ledger  *LedgerService
	seller  *models.User
	product *models.Product
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.ledger = NewLedgerService(suite.db, newTestConfig(), nil)
	suite.seller = createTestSeller(suite.T(), suite.db, "seller1")
	suite.product = createTestProduct(suite.T(), suite.db, suite.seller, 100.00)
}

func (suite *LedgerServiceTestSuite) createOrder() *models.Order {
	order, err := suite.ledger.CreateOrder(&CreateOrderRequest{
		ItemIDs:       []string{suite.product.ID.String()},
		PaymentMethod: models.PaymentMethodManual,
	})
	suite.Require().NoError(err)
	return order
}

func (suite *LedgerServiceTestSuite) TestCreateOrderComputesFeeSplit() {
	order := suite.createOrder()

	suite.Equal(100.00, order.TotalAmount)
	suite.Equal(10.00, order.PlatformFee)
	suite.Equal(90.00, order.SellerAmount)
	suite.Equal(models.OrderStatusPending, order.Status)
	suite.Equal(models.EscrowStatusPending, order.EscrowStatus)
	suite.NotNil(order.AvailableAt)
	suite.NotEmpty(order.OrderNumber)
}

func (suite *LedgerServiceTestSuite) TestCreateOrderRejectsUnknownItems() {
	_, err := suite.ledger.CreateOrder(&CreateOrderRequest{
		ItemIDs:       []string{"8e3f1c0a-0000-0000-0000-000000000000"},
		PaymentMethod: models.PaymentMethodManual,
	})
	suite.ErrorIs(err, ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestCreateOrderRejectsMultipleSellers() {
	other := createTestSeller(suite.T(), suite.db, "seller2")
	otherProduct := createTestProduct(suite.T(), suite.db, other, 40.00)

	_, err := suite.ledger.CreateOrder(&CreateOrderRequest{
		ItemIDs:       []string{suite.product.ID.String(), otherProduct.ID.String()},
		PaymentMethod: models.PaymentMethodManual,
	})
	suite.ErrorIs(err, ErrValidation)
}

func (suite *LedgerServiceTestSuite) TestMarkPaidCreditsPendingBalance() {
	order := suite.createOrder()

	credited, err := suite.ledger.MarkPaid(order.ID, PaymentProof{
		Method:    models.PaymentMethodManual,
		Reference: "123456789",
	})
	suite.Require().NoError(err)
	suite.True(credited)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
	suite.Equal(0.00, seller.AvailableBalance)
	suite.Equal(90.00, seller.TotalEarnings)

	var reloaded models.Order
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", order.ID).Error)
	suite.Equal(models.OrderStatusPaid, reloaded.Status)
	suite.True(reloaded.IsPaid)
	suite.Equal("123456789", reloaded.TransactionRef)
	suite.NotNil(reloaded.PaidAt)
}

func (suite *LedgerServiceTestSuite) TestMarkPaidIsIdempotent() {
	order := suite.createOrder()

	credited, err := suite.ledger.MarkPaid(order.ID, PaymentProof{Method: models.PaymentMethodManual, Reference: "123456789"})
	suite.Require().NoError(err)
	suite.True(credited)

	// Duplicate confirmation succeeds without a second credit.
	credited, err = suite.ledger.MarkPaid(order.ID, PaymentProof{Method: models.PaymentMethodManual, Reference: "123456789"})
	suite.Require().NoError(err)
	suite.False(credited)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
	suite.Equal(90.00, seller.TotalEarnings)
}

func (suite *LedgerServiceTestSuite) TestMarkPaidBumpsSalesCount() {
	order := suite.createOrder()

	_, err := suite.ledger.MarkPaid(order.ID, PaymentProof{Method: models.PaymentMethodManual})
	suite.Require().NoError(err)

	var product models.Product
	suite.Require().NoError(suite.db.First(&product, "id = ?", suite.product.ID).Error)
	suite.Equal(int64(1), product.SalesCount)
}

func (suite *LedgerServiceTestSuite) TestCancelPendingOrder() {
	order := suite.createOrder()

	err := suite.ledger.MarkCancelled(order.ID, suite.seller.ID, "buyer never paid")
	suite.Require().NoError(err)

	var reloaded models.Order
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", order.ID).Error)
	suite.Equal(models.OrderStatusCancelled, reloaded.Status)
	suite.Equal("buyer never paid", reloaded.CancelReason)
}

func (suite *LedgerServiceTestSuite) TestCancelPaidOrderFails() {
	order := suite.createOrder()

	_, err := suite.ledger.MarkPaid(order.ID, PaymentProof{Method: models.PaymentMethodManual})
	suite.Require().NoError(err)

	err = suite.ledger.MarkCancelled(order.ID, suite.seller.ID, "too late")
	suite.ErrorIs(err, ErrInvalidState)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
}

func (suite *LedgerServiceTestSuite) TestSweepIgnoresUnmaturedHoldings() {
	order := suite.createOrder()
	_, err := suite.ledger.MarkPaid(order.ID, PaymentProof{Method: models.PaymentMethodManual})
	suite.Require().NoError(err)

	swept, err := suite.ledger.SweepMaturedHoldings()
	suite.Require().NoError(err)
	suite.Equal(0, swept)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.PendingBalance)
	suite.Equal(0.00, seller.AvailableBalance)
}

func (suite *LedgerServiceTestSuite) TestSweepReleasesMaturedHoldings() {
	order := suite.createOrder()
	_, err := suite.ledger.MarkPaid(order.ID, PaymentProof{Method: models.PaymentMethodManual})
	suite.Require().NoError(err)

	matured := time.Now().Add(-time.Hour)
	suite.Require().NoError(suite.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("available_at", matured).Error)

	swept, err := suite.ledger.SweepMaturedHoldings()
	suite.Require().NoError(err)
	suite.Equal(1, swept)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(0.00, seller.PendingBalance)
	suite.Equal(90.00, seller.AvailableBalance)
	suite.Equal(90.00, seller.TotalEarnings)

	var reloaded models.Order
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", order.ID).Error)
	suite.Equal(models.EscrowStatusAvailable, reloaded.EscrowStatus)

	// A second sweep finds nothing left to release.
	swept, err = suite.ledger.SweepMaturedHoldings()
	suite.Require().NoError(err)
	suite.Equal(0, swept)
}

func (suite *LedgerServiceTestSuite) TestSweepSkipsCancelledOrders() {
	order := suite.createOrder()
	suite.Require().NoError(suite.ledger.MarkCancelled(order.ID, suite.seller.ID, "no payment"))

	matured := time.Now().Add(-time.Hour)
	suite.Require().NoError(suite.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("available_at", matured).Error)

	swept, err := suite.ledger.SweepMaturedHoldings()
	suite.Require().NoError(err)
	suite.Equal(0, swept)
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}
