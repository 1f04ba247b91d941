// Package notify delivers transactional email outside the request path.
package notify

import (
	"context"
	"log/slog"
)

// Message is one rendered email addressed to a single recipient.
type Message struct {
	Template    string
	ToEmail     string
	ToName      string
	Subject     string
	TextContent string
	HTMLContent string
}

// Notifier sends a single message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Enqueuer accepts messages for background delivery. Enqueue must not block.
type Enqueuer interface {
	Enqueue(msg Message) bool
}

// LogNotifier writes messages to the logger instead of sending them. It is
// used when no email provider is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "email not sent, no provider configured",
		"template", msg.Template,
		"to", msg.ToEmail,
		"subject", msg.Subject,
	)
	return nil
}
