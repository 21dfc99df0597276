package alert

import (
	"context"

	"modguard/internal/email"
)

// EmailNotifier delivers decision summaries to the admin mailbox over
// SMTP.
type EmailNotifier struct {
	sender *email.Sender
}

// NewEmailNotifier creates an EmailNotifier on the given sender. The
// recipient is the sender's configured admin address.
func NewEmailNotifier(sender *email.Sender) *EmailNotifier {
	return &EmailNotifier{sender: sender}
}

// Send mails the summary. SMTP has no context plumbing; the service's
// delivery timeout bounds the caller, not the SMTP conversation.
func (n *EmailNotifier) Send(_ context.Context, summary string) error {
	return n.sender.Send(n.sender.AdminEmail(), "Moderation decision", summary)
}
