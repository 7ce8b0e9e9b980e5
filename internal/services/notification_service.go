// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/models"
)

// Ledger transition events exposed to the dispatcher. Delivery is
// fire-and-forget and always happens after the owning transaction has
// committed; a slow mail server can never hold a ledger lock.
const (
	EventOrderPaid       = "order.paid"
	EventOrderCancelled  = "order.cancelled"
	EventPayoutRequested = "payout.requested"
	EventPayoutApproved  = "payout.approved"
	EventPayoutRejected  = "payout.rejected"
)

type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

func (s *NotificationService) NotifyOrderPaid(orderID, sellerID uuid.UUID) {
	var order models.Order
	if err := s.db.Preload("Seller").First(&order, "id = ?", orderID).Error; err != nil {
		logrus.WithError(err).Warn("Notification skipped: order not loadable")
		return
	}

	s.record(EventOrderPaid, "Order paid",
		fmt.Sprintf("Order %s was confirmed paid; %.2f credited to pending balance", order.OrderNumber, order.SellerAmount),
		"order", orderID)

	data := map[string]interface{}{
		"SellerName":   order.Seller.Username,
		"OrderNumber":  order.OrderNumber,
		"SellerAmount": order.SellerAmount,
		"OrderURL":     fmt.Sprintf("%s/orders/%s", s.config.Frontend.BaseURL, order.ID),
	}
	s.sendTemplated(order.Seller.Email, "Payment received - "+order.OrderNumber, "order_paid", data)
}

func (s *NotificationService) NotifyOrderCancelled(orderID, sellerID uuid.UUID, reason string) {
	var order models.Order
	if err := s.db.Preload("Seller").First(&order, "id = ?", orderID).Error; err != nil {
		logrus.WithError(err).Warn("Notification skipped: order not loadable")
		return
	}

	s.record(EventOrderCancelled, "Order cancelled",
		fmt.Sprintf("Order %s was cancelled: %s", order.OrderNumber, reason),
		"order", orderID)

	data := map[string]interface{}{
		"SellerName":  order.Seller.Username,
		"OrderNumber": order.OrderNumber,
		"Reason":      reason,
	}
	s.sendTemplated(order.Seller.Email, "Order cancelled - "+order.OrderNumber, "order_cancelled", data)
}

func (s *NotificationService) NotifyPayoutRequested(payoutID, sellerID uuid.UUID) {
	var payout models.Payout
	if err := s.db.Preload("Seller").First(&payout, "id = ?", payoutID).Error; err != nil {
		logrus.WithError(err).Warn("Notification skipped: payout not loadable")
		return
	}

	s.record(EventPayoutRequested, "Payout requested",
		fmt.Sprintf("Seller %s requested a payout of %.2f (%s)", payout.Seller.Username, payout.Amount, payout.PayoutNumber),
		"payout", payoutID)
}

func (s *NotificationService) NotifyPayoutApproved(payoutID, sellerID uuid.UUID) {
	var payout models.Payout
	if err := s.db.Preload("Seller").First(&payout, "id = ?", payoutID).Error; err != nil {
		logrus.WithError(err).Warn("Notification skipped: payout not loadable")
		return
	}

	s.record(EventPayoutApproved, "Payout approved",
		fmt.Sprintf("Payout %s for %.2f was approved", payout.PayoutNumber, payout.Amount),
		"payout", payoutID)

	data := map[string]interface{}{
		"SellerName":   payout.Seller.Username,
		"PayoutNumber": payout.PayoutNumber,
		"Amount":       payout.Amount,
	}
	s.sendTemplated(payout.Seller.Email, "Payout approved - "+payout.PayoutNumber, "payout_approved", data)
}

func (s *NotificationService) NotifyPayoutRejected(payoutID, sellerID uuid.UUID, reason string) {
	var payout models.Payout
	if err := s.db.Preload("Seller").First(&payout, "id = ?", payoutID).Error; err != nil {
		logrus.WithError(err).Warn("Notification skipped: payout not loadable")
		return
	}

	s.record(EventPayoutRejected, "Payout rejected",
		fmt.Sprintf("Payout %s for %.2f was rejected: %s", payout.PayoutNumber, payout.Amount, reason),
		"payout", payoutID)

	data := map[string]interface{}{
		"SellerName":   payout.Seller.Username,
		"PayoutNumber": payout.PayoutNumber,
		"Amount":       payout.Amount,
		"Reason":       reason,
	}
	s.sendTemplated(payout.Seller.Email, "Payout rejected - "+payout.PayoutNumber, "payout_rejected", data)
}

// record persists an in-app notification row; failures are logged, never
// propagated back to the ledger path.
func (s *NotificationService) record(eventType, title, message, resourceType string, resourceID uuid.UUID) {
	notification := &models.AdminNotification{
		Type:                eventType,
		Title:               title,
		Message:             message,
		RelatedResourceType: resourceType,
		RelatedResourceID:   &resourceID,
	}

	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).WithField("event", eventType).Error("Failed to create notification")
	}
}

func (s *NotificationService) sendTemplated(to, subject, templateType string, data map[string]interface{}) {
	tmpl := s.getEmailTemplate(templateType)
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		logrus.WithError(err).WithField("template", templateType).Error("Failed to render email template")
		return
	}

	if err := s.sendEmail(to, subject, body); err != nil {
		logrus.WithError(err).WithField("to", to).Warn("Failed to send email")
	}
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("Email delivery skipped (SMTP not configured)")
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"order_paid": {
			Subject: "Payment received",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Payment received!</h2>
	<p>Hello {{.SellerName}},</p>
	<p>Order {{.OrderNumber}} has been paid. {{.SellerAmount}} USD was added to your pending balance and will become available after the holding period.</p>
	<a href="{{.OrderURL}}">View Order</a>
	<p>Best regards,<br>EduMarket Team</p>
</body>
</html>`,
		},
		"payout_approved": {
			Subject: "Payout approved",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Payout approved</h2>
	<p>Hello {{.SellerName}},</p>
	<p>Your payout {{.PayoutNumber}} for {{.Amount}} USD has been approved and is on its way.</p>
	<p>Best regards,<br>EduMarket Team</p>
</body>
</html>`,
		},
		"payout_rejected": {
			Subject: "Payout rejected",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Payout rejected</h2>
	<p>Hello {{.SellerName}},</p>
	<p>Your payout {{.PayoutNumber}} for {{.Amount}} USD was rejected: {{.Reason}}</p>
	<p>The amount has been returned to your available balance.</p>
	<p>Best regards,<br>EduMarket Team</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
