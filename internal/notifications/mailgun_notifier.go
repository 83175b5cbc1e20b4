package notifications

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const welcomeSubject = "Welcome to CityHub!"

const welcomeBody = `Dear User,

Welcome to CityHub! We're excited to have you join our platform.

You can now log in to your account and start exploring our features:
- City Analytics
- Environmental Monitoring
- Live Alerts & Maps

If you have any questions, feel free to reach out to our support team.

Best regards,
The CityHub Team`

// MailgunNotifier delivers the welcome mail through Mailgun.
type MailgunNotifier struct {
	domain string
	apiKey string
	sender string
}

func NewMailgunNotifier(domain, apiKey, sender string) *MailgunNotifier {
	return &MailgunNotifier{domain: domain, apiKey: apiKey, sender: sender}
}

func (n *MailgunNotifier) SendWelcome(ctx context.Context, in SendWelcomeInput) error {
	client := mg.NewMailgun(n.domain, n.apiKey)
	msg := client.NewMessage(n.sender, welcomeSubject, welcomeBody, in.Email)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err := client.Send(cctx, msg)
	return err
}
