package mailer

import "context"

// Sender is the transport every email provider implements. Keeping it
// this small lets the digest tasks run against the no-op sender in
// environments without an email API key.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// NoopSender drops mail. Installed when no provider is configured so
// scheduled digests still run and record their bookkeeping.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) error {
	return nil
}
