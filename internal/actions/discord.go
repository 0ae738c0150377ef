package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/formrelay/form-api/internal/template"
	"github.com/formrelay/form-api/internal/types"
)

// Discord blurple, used when no embed color is configured.
const defaultEmbedColor = 0x5865F2

// Discord caps embed field values at 1024 characters.
const embedFieldLimit = 1024

// values shorter than this render inline side by side
const inlineLimit = 50

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Timestamp   string              `json:"timestamp"`
	Footer      discordEmbedFooter  `json:"footer"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Color       int                 `json:"color"`
}

type discordMessage struct {
	Content   string         `json:"content,omitempty"`
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []discordEmbed `json:"embeds,omitempty"`
}

func (d *Dispatcher) executeDiscord(
	ctx context.Context,
	action types.DiscordAction,
	tctx template.Context,
) error {
	ctx, span := tracer.Start(ctx, "executeDiscord")
	defer span.End()

	message := discordMessage{
		Username:  action.Username,
		AvatarURL: action.AvatarURL,
	}

	if action.UseEmbed {
		message.Embeds = []discordEmbed{d.buildEmbed(action, tctx)}
	} else {
		message.Content = d.engine.Resolve(action.MessageTemplate, tctx)
	}

	body, err := json.Marshal(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode discord message")
		return fmt.Errorf("failed to encode discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		action.WebhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct discord request")
		return fmt.Errorf("failed to construct discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discord request failed")
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("discord.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = fmt.Errorf("discord returned status %d: %s", resp.StatusCode, readBody(resp.Body))
		span.RecordError(err)
		span.SetStatus(codes.Error, "discord returned non-2xx status")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "discord notification delivered")
	return nil
}

func (d *Dispatcher) buildEmbed(
	action types.DiscordAction,
	tctx template.Context,
) discordEmbed {
	embed := discordEmbed{
		Title:       fmt.Sprintf("New %s Submission", tctx.FormName),
		Description: d.engine.Resolve(action.MessageTemplate, tctx),
		Color:       parseEmbedColor(action.EmbedColor),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      discordEmbedFooter{Text: fmt.Sprintf("Form: %s", tctx.FormName)},
	}

	keys := make([]string, 0, len(tctx.Data))
	for key := range tctx.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := template.Stringify(tctx.Data[key])
		if value == "" {
			continue
		}

		inline := len(value) < inlineLimit
		if len(value) > embedFieldLimit {
			value = value[:embedFieldLimit-3] + "..."
		}

		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   template.Humanize(key),
			Value:  value,
			Inline: inline,
		})
	}

	return embed
}

func parseEmbedColor(hex string) int {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if hex == "" {
		return defaultEmbedColor
	}

	color, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return defaultEmbedColor
	}
	return int(color)
}
