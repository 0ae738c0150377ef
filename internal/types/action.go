package types

import (
	"encoding/json"
	"fmt"
)

type ActionType string

const (
	ActionWebhook ActionType = "webhook"
	ActionDiscord ActionType = "discord"
	ActionEmail   ActionType = "email"
	ActionStorage ActionType = "storage"
)

type EmailProvider string

const (
	ProviderResend   EmailProvider = "resend"
	ProviderSendGrid EmailProvider = "sendgrid"
	ProviderMailgun  EmailProvider = "mailgun"
)

// ActionConfig is a closed sum over the configured delivery targets of a
// form. The unexported method keeps the set of variants fixed to this
// package so dispatch sites can type-switch exhaustively.
type ActionConfig interface {
	Kind() ActionType
	Meta() ActionMeta
	sealedAction()
}

// ActionMeta carries the fields shared by every action variant.
type ActionMeta struct {
	Type    ActionType `json:"type"`
	Name    string     `json:"name,omitempty"`
	Enabled bool       `json:"enabled"`
}

func (m ActionMeta) Meta() ActionMeta { return m }

type HeaderPair struct {
	Key   string `json:"key"   validate:"required"`
	Value string `json:"value"`
}

type WebhookAction struct {
	ActionMeta
	URL             string       `json:"url"                       validate:"required,url"`
	Method          string       `json:"method,omitempty"          validate:"omitempty,oneof=POST PUT PATCH"`
	Headers         []HeaderPair `json:"headers,omitempty"`
	PayloadTemplate string       `json:"payloadTemplate,omitempty"`
	// nil means unset; the handler defaults it to true
	IncludeAllFields *bool `json:"includeAllFields,omitempty"`
}

func (WebhookAction) Kind() ActionType { return ActionWebhook }
func (WebhookAction) sealedAction()    {}

type DiscordAction struct {
	ActionMeta
	WebhookURL      string `json:"webhookUrl"            validate:"required,url"`
	MessageTemplate string `json:"messageTemplate"`
	Username        string `json:"username,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	EmbedColor      string `json:"embedColor,omitempty"`
	UseEmbed        bool   `json:"useEmbed"`
}

func (DiscordAction) Kind() ActionType { return ActionDiscord }
func (DiscordAction) sealedAction()    {}

type EmailAction struct {
	ActionMeta
	Provider         EmailProvider `json:"provider"               validate:"required,oneof=resend sendgrid mailgun"`
	To               string        `json:"to"                     validate:"required"`
	CC               string        `json:"cc,omitempty"`
	BCC              string        `json:"bcc,omitempty"`
	ReplyToField     string        `json:"replyToField,omitempty"`
	Subject          string        `json:"subject"                validate:"required"`
	BodyTemplate     string        `json:"bodyTemplate,omitempty"`
	IncludeAllFields *bool         `json:"includeAllFields,omitempty"`
}

func (EmailAction) Kind() ActionType { return ActionEmail }
func (EmailAction) sealedAction()    {}

// StorageAction is never dispatched with the delivery actions; the
// submission pipeline handles persistence itself.
type StorageAction struct {
	ActionMeta
	FormNameOverride string `json:"formNameOverride,omitempty"`
}

func (StorageAction) Kind() ActionType { return ActionStorage }
func (StorageAction) sealedAction()    {}

// ActionList decodes a heterogeneous action array using the `type` tag as
// the discriminant. An unknown tag is a hard decode error so a misconfigured
// document is rejected at the edge instead of silently dropped.
type ActionList []ActionConfig

func (l *ActionList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(ActionList, 0, len(raws))
	for i, raw := range raws {
		var meta ActionMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}

		var cfg ActionConfig
		switch meta.Type {
		case ActionWebhook:
			var a WebhookAction
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			cfg = a
		case ActionDiscord:
			var a DiscordAction
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			cfg = a
		case ActionEmail:
			var a EmailAction
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			cfg = a
		case ActionStorage:
			var a StorageAction
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			cfg = a
		default:
			return fmt.Errorf("action %d: unknown action type %q", i, meta.Type)
		}

		out = append(out, cfg)
	}

	*l = out
	return nil
}

func (l ActionList) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(l))
	for _, cfg := range l {
		// re-stamp the discriminant so values built in code round-trip
		switch a := cfg.(type) {
		case WebhookAction:
			a.Type = a.Kind()
			out = append(out, a)
		case DiscordAction:
			a.Type = a.Kind()
			out = append(out, a)
		case EmailAction:
			a.Type = a.Kind()
			out = append(out, a)
		case StorageAction:
			a.Type = a.Kind()
			out = append(out, a)
		default:
			return nil, fmt.Errorf("unhandled action variant %T", cfg)
		}
	}

	return json.Marshal(out)
}
