package actions

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
)

type mailgunProvider struct {
	apiKey string
	domain string
}

func (p *mailgunProvider) send(
	ctx context.Context,
	client *http.Client,
	msg emailMessage,
) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := map[string]string{
		"from":    msg.From,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if msg.ReplyTo != "" {
		fields["h:Reply-To"] = msg.ReplyTo
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to encode mailgun form: %w", err)
		}
	}

	// mailgun takes repeated fields for multiple recipients
	for _, addr := range msg.To {
		if err := form.WriteField("to", addr); err != nil {
			return fmt.Errorf("failed to encode mailgun form: %w", err)
		}
	}
	for _, addr := range msg.CC {
		if err := form.WriteField("cc", addr); err != nil {
			return fmt.Errorf("failed to encode mailgun form: %w", err)
		}
	}
	for _, addr := range msg.BCC {
		if err := form.WriteField("bcc", addr); err != nil {
			return fmt.Errorf("failed to encode mailgun form: %w", err)
		}
	}

	if err := form.Close(); err != nil {
		return fmt.Errorf("failed to finalize mailgun form: %w", err)
	}

	endpoint := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", p.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("failed to construct mailgun request: %w", err)
	}
	req.SetBasicAuth("api", p.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mailgun returned status %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	return nil
}
