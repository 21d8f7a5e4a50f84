package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/macrat/sitewatch/internal/meta"
)

// TelegramAPI is the base URL of the Telegram Bot API.
// This variable is for testing purpose.
var TelegramAPI = "https://api.telegram.org"

// TelegramSender sends alerts via Telegram bot.
// The target format is "telegram:<chat_id>?token=<bot_token>".
type TelegramSender struct {
	target string
	chatID string
	token  string
}

func NewTelegramSender(target string, u *url.URL) (TelegramSender, error) {
	chatID := u.Opaque
	if chatID == "" {
		chatID = u.Host
	}
	if chatID == "" {
		return TelegramSender{}, errors.New("chat ID is required")
	}

	token := u.Query().Get("token")
	if token == "" {
		return TelegramSender{}, errors.New("token is required")
	}

	return TelegramSender{
		target: target,
		chatID: chatID,
		token:  token,
	}, nil
}

// Target returns the target without the bot token.
func (s TelegramSender) Target() string {
	return "telegram:" + s.chatID
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "less than a second"
	}
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now.Add(-d), now, "", ""))
}

// TelegramText makes the message text in Telegram's HTML format.
func TelegramText(a Alert) string {
	var b strings.Builder

	switch a.Kind {
	case KindOpened:
		b.WriteString("❌ <b>Site is down</b>\n\n")
		fmt.Fprintf(&b, "<b>URL:</b> %s\n", html.EscapeString(a.Target))
		fmt.Fprintf(&b, "<b>Error:</b> %s\n", html.EscapeString(string(a.Error)))
		fmt.Fprintf(&b, "<b>Since:</b> %s\n", a.At.Format(time.RFC3339))
	default:
		b.WriteString("✅ <b>Site is back online</b>\n\n")
		fmt.Fprintf(&b, "<b>URL:</b> %s\n", html.EscapeString(a.Target))
		fmt.Fprintf(&b, "<b>Downtime:</b> %s\n", formatDuration(a.Duration))
	}
	fmt.Fprintf(&b, "<b>Incident ID:</b> %s", html.EscapeString(a.IncidentID))

	return b.String()
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (s TelegramSender) Send(ctx context.Context, a Alert) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:    s.chatID,
		Text:      TelegramText(a),
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	endpoint := TelegramAPI + "/bot" + s.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", meta.UserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			// the URL contains the bot token.
			return uerr.Err
		}
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned %s", resp.Status)
	}
	return nil
}
