package dispatch

import (
	"context"
)

// EmailSender is the SMTP delivery port, satisfied by email.SMTPSender.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlContent string) (string, error)
}

// EmailChannel adapts the SMTP sender to the Channel interface.
type EmailChannel struct {
	sender EmailSender
}

func NewEmailChannel(sender EmailSender) *EmailChannel {
	return &EmailChannel{sender: sender}
}

func (c *EmailChannel) Send(ctx context.Context, msg Message) (string, error) {
	return c.sender.Send(ctx, msg.To, msg.Subject, msg.Body)
}
