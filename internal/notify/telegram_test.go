package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// newTestTelegram binds a Telegram notifier to a stub bot API server.
func newTestTelegram(t *testing.T, handler http.HandlerFunc) *Telegram {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	bot := &tgbotapi.BotAPI{
		Token:  "test-token",
		Client: srv.Client(),
		Buffer: 100,
	}
	bot.SetAPIEndpoint(srv.URL + "/bot%s/%s")

	return &Telegram{bot: bot, chatID: 42, loc: time.UTC}
}

func TestTelegramSend(t *testing.T) {
	var gotText string
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotText = r.Form.Get("text")
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1}}`)
	})

	err := tg.SendError(context.Background(), "broadband", errors.New("portal down"))

	require.NoError(t, err)
	require.Contains(t, gotText, "<b>ERROR in broadband</b>")
	require.Contains(t, gotText, "portal down")
}

func TestTelegramSend_HonorsCancellation(t *testing.T) {
	release := make(chan struct{})
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1}}`)
	})
	// Unblock the stalled handler before the stub server shuts down.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := tg.SendError(ctx, "broadband", errors.New("portal down"))

	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestFormatBroadbandMessage(t *testing.T) {
	loc := time.UTC
	snap := series.Snapshot{
		Series:     series.Broadband,
		CapturedAt: time.Date(2026, 2, 8, 9, 30, 0, 0, loc),
		Fields: map[string]decimal.Decimal{
			series.FieldTotal:    decimal.NewFromInt(12625),
			series.FieldDownload: decimal.NewFromInt(11000),
			series.FieldUpload:   decimal.NewFromInt(1625),
			series.FieldBalance:  decimal.NewFromInt(100000),
		},
		Display: map[string]string{
			series.FieldTotal:    "12.33 GB",
			series.FieldDownload: "10.74 GB",
			series.FieldUpload:   "1.59 GB",
			series.FieldBalance:  "97.66 GB",
		},
	}

	msg := formatBroadbandMessage(snap, loc)

	require.Contains(t, msg, "<b><u>Broadband Usage (08 Feb 2026 09:30)</u></b>")
	require.Contains(t, msg, "<i>Total</i>: 12.33 GB")
	require.Contains(t, msg, "<i>Download</i>: 10.74 GB")
	require.Contains(t, msg, "<i>Upload</i>: 1.59 GB")
	require.Contains(t, msg, "<i>Balance</i>: 97.66 GB")
}

func TestFormatBroadbandMessage_FallsBackToRawFields(t *testing.T) {
	snap := series.Snapshot{
		Series:     series.Broadband,
		CapturedAt: time.Date(2026, 2, 8, 9, 30, 0, 0, time.UTC),
		Fields: map[string]decimal.Decimal{
			series.FieldTotal: decimal.NewFromInt(1024),
		},
	}

	msg := formatBroadbandMessage(snap, time.UTC)

	require.Contains(t, msg, "<i>Total</i>: 1.00 GB")
}

func TestFormatDownloadsMessage(t *testing.T) {
	capturedAt := time.Date(2026, 2, 8, 9, 30, 0, 0, time.UTC)
	snaps := []series.Snapshot{
		{
			Series:     series.PackageSeries("vibranium-cli"),
			CapturedAt: capturedAt,
			Fields: map[string]decimal.Decimal{
				series.FieldDaily:   decimal.NewFromInt(12),
				series.FieldWeekly:  decimal.NewFromInt(80),
				series.FieldMonthly: decimal.NewFromInt(340),
				series.FieldYearly:  decimal.NewFromInt(4120),
			},
		},
		{
			Series:     series.PackageSeries("test-datasets"),
			CapturedAt: capturedAt,
			Fields: map[string]decimal.Decimal{
				series.FieldDaily:   decimal.NewFromInt(3),
				series.FieldWeekly:  decimal.NewFromInt(21),
				series.FieldMonthly: decimal.NewFromInt(95),
				series.FieldYearly:  decimal.NewFromInt(1200),
			},
		},
	}

	msg := formatDownloadsMessage(snaps, time.UTC)

	require.Contains(t, msg, "<b><u>NPM Downloads (08 Feb 2026 09:30)</u></b>")
	require.Contains(t, msg, "<b>vibranium-cli</b>")
	require.Contains(t, msg, "<b>test-datasets</b>")
	require.Contains(t, msg, "<i>Yesterday</i>: 12")
	require.Contains(t, msg, "<i>Last Year</i>: 4,120")
}
