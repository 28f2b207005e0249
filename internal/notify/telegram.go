package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// sendTimeout bounds every Telegram API call, so an abandoned send cannot
// hold its connection open indefinitely.
const sendTimeout = 30 * time.Second

// Telegram sends HTML-formatted messages to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	loc    *time.Location
}

// NewTelegram authenticates the bot and binds it to the target chat.
func NewTelegram(token string, chatID int64, loc *time.Location) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, loc: loc}, nil
}

// SendBroadbandUsage announces a fresh broadband snapshot.
func (t *Telegram) SendBroadbandUsage(ctx context.Context, snap series.Snapshot) error {
	return t.send(ctx, formatBroadbandMessage(snap, t.loc))
}

// SendDownloadCounts announces fresh download counts for every tracked package.
func (t *Telegram) SendDownloadCounts(ctx context.Context, snaps []series.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	return t.send(ctx, formatDownloadsMessage(snaps, t.loc))
}

// SendError reports an upstream-fetch failure.
func (t *Telegram) SendError(ctx context.Context, source string, err error) error {
	return t.send(ctx, fmt.Sprintf("<b>ERROR in %s</b>\n%v", source, err))
}

// send races the API call against caller cancellation. The bot client does
// not take a per-request context, so on cancellation the in-flight request
// is left to the client timeout while the caller returns immediately.
func (t *Telegram) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to send telegram message: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
		return nil
	}
}

func formatBroadbandMessage(snap series.Snapshot, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b><u>Broadband Usage (%s)</u></b>\n", snap.CapturedAt.In(loc).Format("02 Jan 2006 15:04"))

	for _, field := range []string{series.FieldTotal, series.FieldDownload, series.FieldUpload, series.FieldBalance} {
		value, ok := snap.Display[field]
		if !ok {
			value = series.FormatDataSize(snap.Fields[field])
		}
		fmt.Fprintf(&b, "\n<i>%s</i>: %s", titleCase(field), value)
	}

	return b.String()
}

func formatDownloadsMessage(snaps []series.Snapshot, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b><u>NPM Downloads (%s)</u></b>\n", snaps[0].CapturedAt.In(loc).Format("02 Jan 2006 15:04"))

	for _, snap := range snaps {
		name := strings.TrimPrefix(string(snap.Series), "npm-downloads/")
		fmt.Fprintf(&b, "\n<b>%s</b>", name)
		fmt.Fprintf(&b, "\n<i>Yesterday</i>: %s", humanize.Comma(snap.Fields[series.FieldDaily].IntPart()))
		fmt.Fprintf(&b, "\n<i>Last Week</i>: %s", humanize.Comma(snap.Fields[series.FieldWeekly].IntPart()))
		fmt.Fprintf(&b, "\n<i>Last Year</i>: %s", humanize.Comma(snap.Fields[series.FieldYearly].IntPart()))
	}

	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
