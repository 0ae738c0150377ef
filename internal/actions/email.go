package actions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
)

// emailMessage is the provider-neutral form of an outbound notification
// email. Each provider adapter maps it onto its own wire format.
type emailMessage struct {
	From    string
	ReplyTo string
	Subject string
	HTML    string
	To      []string
	CC      []string
	BCC     []string
}

// emailProvider is implemented once per supported delivery service.
// Credential lookup and wire-format differences stay inside the adapter.
type emailProvider interface {
	send(ctx context.Context, client *http.Client, msg emailMessage) error
}

// providerFor selects the adapter for the configured provider enum. A
// missing credential is a configuration error for this action alone.
func providerFor(
	provider types.EmailProvider,
	creds EmailCredentials,
) (emailProvider, error) {
	switch provider {
	case types.ProviderResend:
		if creds.ResendAPIKey == "" {
			return nil, errors.New("resend API key is not configured")
		}
		return &resendProvider{apiKey: creds.ResendAPIKey}, nil
	case types.ProviderSendGrid:
		if creds.SendGridAPIKey == "" {
			return nil, errors.New("sendgrid API key is not configured")
		}
		return &sendgridProvider{apiKey: creds.SendGridAPIKey}, nil
	case types.ProviderMailgun:
		if creds.MailgunAPIKey == "" || creds.MailgunDomain == "" {
			return nil, errors.New("mailgun API key or domain is not configured")
		}
		return &mailgunProvider{apiKey: creds.MailgunAPIKey, domain: creds.MailgunDomain}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", provider)
	}
}

func (d *Dispatcher) executeEmail(
	ctx context.Context,
	action types.EmailAction,
	tctx template.Context,
) error {
	ctx, span := tracer.Start(ctx, "executeEmail", trace.WithAttributes(
		attribute.String("email.provider", string(action.Provider)),
	))
	defer span.End()

	provider, err := providerFor(action.Provider, d.email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "email provider unavailable")
		return err
	}

	if d.email.From == "" {
		err = errors.New("sender address is not configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, "sender address missing")
		return err
	}

	includeAll := action.IncludeAllFields == nil || *action.IncludeAllFields

	msg := emailMessage{
		From:    d.email.From,
		To:      splitAddresses(action.To),
		CC:      splitAddresses(action.CC),
		BCC:     splitAddresses(action.BCC),
		Subject: d.engine.Resolve(action.Subject, tctx),
		HTML:    d.engine.BuildHTMLBody(action.BodyTemplate, tctx, includeAll),
	}

	// reply-to is a literal field lookup in the submitted data, not a
	// template resolution
	if action.ReplyToField != "" {
		msg.ReplyTo = strings.TrimSpace(template.Stringify(tctx.Data[action.ReplyToField]))
	}

	if len(msg.To) == 0 {
		err = errors.New("email action has no recipients")
		span.RecordError(err)
		span.SetStatus(codes.Error, "no recipients")
		return err
	}

	if err = provider.send(ctx, d.client, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "email delivery failed")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "email delivered")
	return nil
}

func splitAddresses(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}

	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
