package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const sendgridEndpoint = "https://api.sendgrid.com/v3/mail/send"

type sendgridProvider struct {
	apiKey string
}

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridPersonalization struct {
	To  []sendgridAddress `json:"to"`
	CC  []sendgridAddress `json:"cc,omitempty"`
	BCC []sendgridAddress `json:"bcc,omitempty"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridRequest struct {
	From             sendgridAddress           `json:"from"`
	ReplyTo          *sendgridAddress          `json:"reply_to,omitempty"`
	Subject          string                    `json:"subject"`
	Personalizations []sendgridPersonalization `json:"personalizations"`
	Content          []sendgridContent         `json:"content"`
}

func (p *sendgridProvider) send(
	ctx context.Context,
	client *http.Client,
	msg emailMessage,
) error {
	request := sendgridRequest{
		Personalizations: []sendgridPersonalization{{
			To:  toAddresses(msg.To),
			CC:  toAddresses(msg.CC),
			BCC: toAddresses(msg.BCC),
		}},
		From:    sendgridAddress{Email: msg.From},
		Subject: msg.Subject,
		Content: []sendgridContent{{Type: "text/html", Value: msg.HTML}},
	}
	if msg.ReplyTo != "" {
		request.ReplyTo = &sendgridAddress{Email: msg.ReplyTo}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to encode sendgrid request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendgridEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to construct sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	return nil
}

func toAddresses(emails []string) []sendgridAddress {
	if len(emails) == 0 {
		return nil
	}

	out := make([]sendgridAddress, 0, len(emails))
	for _, email := range emails {
		out = append(out, sendgridAddress{Email: email})
	}
	return out
}
