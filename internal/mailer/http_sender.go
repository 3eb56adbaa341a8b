package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== HTTP provider ====================

// HTTPSenderConfig points at a transactional email API that accepts a
// JSON payload with a bearer key (Resend/Postmark style).
type HTTPSenderConfig struct {
	BaseURL  string
	APIKey   string
	FromAddr string
	FromName string
}

// HTTPSender delivers through the provider's REST API.
type HTTPSender struct {
	client *resty.Client
	from   string
}

func NewHTTPSender(cfg HTTPSenderConfig) *HTTPSender {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	from := cfg.FromAddr
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddr)
	}

	return &HTTPSender{
		client: client,
		from:   from,
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	var out sendResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(sendRequest{
			From:    s.from,
			To:      msg.To,
			Subject: msg.Subject,
			HTML:    msg.HTMLBody,
			Text:    msg.TextBody,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	if resp.IsError() {
		return fmt.Errorf("email provider rejected send to %s: HTTP %d: %s",
			msg.To, resp.StatusCode(), out.Message)
	}

	return nil
}
