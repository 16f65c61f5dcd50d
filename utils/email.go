package utils

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendEmail sends an HTML email using the configured SMTP server
func SendEmail(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	username := os.Getenv("SMTP_USERNAME")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(host, port, username, password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// SendPaymentReceipt emails the customer after a payment settles. Failures
// are logged by the caller, a lost receipt never blocks the settlement.
func SendPaymentReceipt(to string, orderID uint, method, refID, amount string) error {
	subject := fmt.Sprintf("Payment received for order #%d", orderID)
	body := fmt.Sprintf(
		"<h2>Thank you for shopping with KinMel!</h2>"+
			"<p>We received your payment of NPR %s via %s.</p>"+
			"<p>Order: #%d<br>Gateway reference: %s</p>",
		amount, method, orderID, refID,
	)
	return SendEmail(to, subject, body)
}
