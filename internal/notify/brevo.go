package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// DefaultBrevoBasePath is the Brevo v3 API root.
const DefaultBrevoBasePath = "https://api.brevo.com/v3"

// BrevoNotifier sends messages through the Brevo transactional email API.
type BrevoNotifier struct {
	apiKey      string
	senderEmail string
	senderName  string
	client      *brevo.APIClient
}

// NewBrevoNotifier creates a notifier for the default Brevo API.
func NewBrevoNotifier(apiKey, senderEmail, senderName string) *BrevoNotifier {
	n := &BrevoNotifier{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
	return n.WithBasePath(DefaultBrevoBasePath)
}

// WithBasePath points the client at another API root.
func (n *BrevoNotifier) WithBasePath(basePath string) *BrevoNotifier {
	cfg := brevo.NewConfiguration()
	cfg.BasePath = strings.TrimRight(basePath, "/")
	cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	cfg.AddDefaultHeader("api-key", n.apiKey)

	n.client = brevo.NewAPIClient(cfg)
	return n
}

// Notify sends msg as a transactional email. Any non-2xx response is an error.
func (n *BrevoNotifier) Notify(ctx context.Context, msg Message) error {
	email := brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Email: n.senderEmail, Name: n.senderName},
		To:          []brevo.SendSmtpEmailTo{{Email: msg.ToEmail, Name: msg.ToName}},
		Subject:     msg.Subject,
		HtmlContent: msg.HTMLContent,
		TextContent: msg.TextContent,
	}
	if msg.Template != "" {
		email.Tags = []string{msg.Template}
	}

	_, resp, err := n.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		var apiErr brevo.GenericSwaggerError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("brevo returned status %s: %s", apiErr.Error(), strings.TrimSpace(string(apiErr.Body())))
		}
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
