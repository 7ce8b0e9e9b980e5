// internal/services/payout_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/models"
)

type PayoutServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ledger  *LedgerService
	payouts *PayoutService
	seller  *models.User
	adminID uuid.UUID
}

func (suite *PayoutServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	cfg := newTestConfig()
	suite.ledger = NewLedgerService(suite.db, cfg, nil)
	suite.payouts = NewPayoutService(suite.db, cfg, nil)
	suite.seller = createTestSeller(suite.T(), suite.db, "seller1")
	suite.adminID = uuid.New()
}

// fundSeller runs an order through paid and swept so the seller amount
// lands in available_balance. Returns the order.
func (suite *PayoutServiceTestSuite) fundSeller(price float64) *models.Order {
	product := createTestProduct(suite.T(), suite.db, suite.seller, price)
	order, err := suite.ledger.CreateOrder(&CreateOrderRequest{
		ItemIDs:       []string{product.ID.String()},
		PaymentMethod: models.PaymentMethodManual,
	})
	suite.Require().NoError(err)

	_, err = suite.ledger.MarkPaid(order.ID, PaymentProof{Method: models.PaymentMethodManual})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("available_at", time.Now().Add(-time.Hour)).Error)

	_, err = suite.ledger.SweepMaturedHoldings()
	suite.Require().NoError(err)

	return order
}

func (suite *PayoutServiceTestSuite) TestRequestPayoutLocksFunds() {
	suite.fundSeller(100.00) // 90 available

	payout, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{
		Amount: 60.00,
		Method: "bank",
	})
	suite.Require().NoError(err)
	suite.Equal(models.PayoutStatusPending, payout.Status)
	suite.NotEmpty(payout.PayoutNumber)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(30.00, seller.AvailableBalance)
}

func (suite *PayoutServiceTestSuite) TestRequestPayoutExactBalanceSucceeds() {
	suite.fundSeller(100.00)

	_, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{
		Amount: 90.00,
		Method: "bank",
	})
	suite.Require().NoError(err)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(0.00, seller.AvailableBalance)
}

func (suite *PayoutServiceTestSuite) TestRequestPayoutOverBalanceFails() {
	suite.fundSeller(100.00)

	_, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{
		Amount: 90.01,
		Method: "bank",
	})
	suite.ErrorIs(err, ErrInsufficientFunds)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.AvailableBalance)
}

func (suite *PayoutServiceTestSuite) TestRequestPayoutBelowMinimumFails() {
	suite.fundSeller(100.00)

	_, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{
		Amount: 49.99,
		Method: "bank",
	})
	suite.ErrorIs(err, ErrValidation)
}

func (suite *PayoutServiceTestSuite) TestRequestPayoutUnknownMethodFails() {
	suite.fundSeller(100.00)

	_, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{
		Amount: 60.00,
		Method: "cheque",
	})
	suite.ErrorIs(err, ErrValidation)
}

func (suite *PayoutServiceTestSuite) TestRequestPayoutSnapshotsDestination() {
	suite.fundSeller(100.00)

	payout, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{
		Amount: 60.00,
		Method: "bank",
	})
	suite.Require().NoError(err)

	// Edit the profile after the request; the payout keeps the old details.
	suite.Require().NoError(suite.db.Model(&models.User{}).
		Where("id = ?", suite.seller.ID).
		Update("payout_details", models.JSONB{"account_number": "99999999"}).Error)

	var reloaded models.Payout
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", payout.ID).Error)
	suite.Equal("12345678", reloaded.MethodDetails["account_number"])
}

func (suite *PayoutServiceTestSuite) TestApprovePayoutAllocatesOrdersFIFO() {
	first := suite.fundSeller(40.00)  // 36 available
	second := suite.fundSeller(40.00) // 36 available
	third := suite.fundSeller(40.00)  // 36 available

	// Make the unlock order deterministic.
	base := time.Now().Add(-72 * time.Hour)
	for i, o := range []*models.Order{first, second, third} {
		suite.Require().NoError(suite.db.Model(&models.Order{}).
			Where("id = ?", o.ID).
			Update("available_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	payout, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{
		Amount: 80.00,
		Method: "bank",
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.payouts.ApprovePayout(payout.ID, suite.adminID, ""))

	// 36 + 36 = 72 fits inside 80; a third order would overshoot.
	var allocated []models.Order
	suite.Require().NoError(suite.db.
		Where("payout_id = ?", payout.ID).
		Order("available_at ASC").
		Find(&allocated).Error)
	suite.Len(allocated, 2)
	suite.Equal(first.OrderNumber, allocated[0].OrderNumber)
	suite.Equal(second.OrderNumber, allocated[1].OrderNumber)
	for _, o := range allocated {
		suite.Equal(models.EscrowStatusPaidOut, o.EscrowStatus)
		suite.NotNil(o.PaidOutAt)
	}

	var leftover models.Order
	suite.Require().NoError(suite.db.First(&leftover, "id = ?", third.ID).Error)
	suite.Equal(models.EscrowStatusAvailable, leftover.EscrowStatus)
	suite.Nil(leftover.PayoutID)
}

func (suite *PayoutServiceTestSuite) TestApprovePayoutStatusDependsOnTransactionID() {
	suite.fundSeller(100.00)

	payout, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{Amount: 60.00, Method: "bank"})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.payouts.ApprovePayout(payout.ID, suite.adminID, "wire-42"))

	var reloaded models.Payout
	suite.Require().NoError(suite.db.First(&reloaded, "id = ?", payout.ID).Error)
	suite.Equal(models.PayoutStatusPaid, reloaded.Status)
	suite.Equal("wire-42", reloaded.TransactionID)
	suite.NotNil(reloaded.ApprovedAt)
}

func (suite *PayoutServiceTestSuite) TestDoubleApproveFails() {
	suite.fundSeller(100.00)

	payout, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{Amount: 60.00, Method: "bank"})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.payouts.ApprovePayout(payout.ID, suite.adminID, ""))
	err = suite.payouts.ApprovePayout(payout.ID, suite.adminID, "")
	suite.ErrorIs(err, ErrAlreadyProcessed)
}

func (suite *PayoutServiceTestSuite) TestRejectPayoutRecreditsOnce() {
	suite.fundSeller(100.00)

	payout, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{Amount: 60.00, Method: "bank"})
	suite.Require().NoError(err)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(30.00, seller.AvailableBalance)

	suite.Require().NoError(suite.payouts.RejectPayout(payout.ID, suite.adminID, "details mismatch"))

	seller = reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.AvailableBalance)

	// A second rejection must not credit again.
	err = suite.payouts.RejectPayout(payout.ID, suite.adminID, "details mismatch")
	suite.ErrorIs(err, ErrAlreadyProcessed)

	seller = reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(90.00, seller.AvailableBalance)
}

func (suite *PayoutServiceTestSuite) TestRejectApprovedPayoutFails() {
	suite.fundSeller(100.00)

	payout, err := suite.payouts.RequestPayout(suite.seller.ID, &RequestPayoutInput{Amount: 60.00, Method: "bank"})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.payouts.ApprovePayout(payout.ID, suite.adminID, ""))

	err = suite.payouts.RejectPayout(payout.ID, suite.adminID, "changed my mind")
	suite.ErrorIs(err, ErrAlreadyProcessed)

	seller := reloadSeller(suite.T(), suite.db, suite.seller.ID)
	suite.Equal(30.00, seller.AvailableBalance)
}

func TestPayoutServiceSuite(t *testing.T) {
	suite.Run(t, new(PayoutServiceTestSuite))
}
