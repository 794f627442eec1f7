package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/analysis"
)

// ErrDeliveryFailed indicates the notification transport failed. Callers
// log and swallow it; notification is best-effort.
var ErrDeliveryFailed = errors.New("alerting: delivery failed")

// Notification 封装告警上下文。
type Notification struct {
	Asset          string
	Direction      analysis.Direction
	PercentChange  decimal.Decimal
	ThresholdPct   decimal.Decimal
	FirstValue     decimal.Decimal
	LastValue      decimal.Decimal
	Volatility     decimal.Decimal
	MaxHourlySwing decimal.Decimal
	SampleCount    int
	WindowStart    time.Time
	WindowEnd      time.Time
	Recommendation string
}

// FromTrendAlert maps an analyzer alert onto a notification.
func FromTrendAlert(alert analysis.TrendAlert) Notification {
	return Notification{
		Asset:          alert.Metric.Asset(),
		Direction:      alert.Direction,
		PercentChange:  alert.PercentChange,
		ThresholdPct:   alert.ThresholdPct,
		FirstValue:     alert.FirstValue,
		LastValue:      alert.LastValue,
		Volatility:     alert.Volatility,
		MaxHourlySwing: alert.MaxHourlySwing,
		SampleCount:    alert.SampleCount,
		WindowStart:    alert.WindowStart,
		WindowEnd:      alert.WindowEnd,
		Recommendation: alert.Recommendation,
	}
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
	SendText(ctx context.Context, text string) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify renders a trend alert and pushes it through sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	if err := n.SendText(ctx, renderMessage(note)); err != nil {
		return err
	}

	n.logger.Info().
		Str("asset", note.Asset).
		Str("direction", string(note.Direction)).
		Str("percent_change", note.PercentChange.StringFixed(2)).
		Msg("告警已发送 (Telegram)")
	return nil
}

// SendText 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) SendText(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal telegram payload: %v", ErrDeliveryFailed, err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create telegram request: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send telegram request: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: telegram 响应码异常: %d", ErrDeliveryFailed, resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("%w: telegram 返回 ok=false", ErrDeliveryFailed)
		}
	}

	return nil
}

func renderMessage(note Notification) string {
	trendEmoji, colorEmoji := "📈", "🟢"
	trendWord := "RISING"
	if note.Direction == analysis.DirectionFalling {
		trendEmoji, colorEmoji = "📉", "🔴"
		trendWord = "FALLING"
	}

	urgency := "ℹ️"
	if note.PercentChange.Abs().GreaterThan(decimal.NewFromInt(5)) {
		urgency = "🚨"
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s *%s trend detected: %s* %s\n\n", urgency, trendWord, note.Asset, urgency))
	builder.WriteString(fmt.Sprintf("%s *Variation:* %s%% (threshold %s%%)\n\n", trendEmoji, note.PercentChange.StringFixed(2), note.ThresholdPct.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("%s *Details:*\n", colorEmoji))
	builder.WriteString(fmt.Sprintf("First value: %s\n", note.FirstValue.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Last value: %s\n", note.LastValue.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Volatility: %s\n", note.Volatility.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Max hourly swing: %s%%\n", note.MaxHourlySwing.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Window: %s → %s UTC (%d samples)\n\n",
		note.WindowStart.UTC().Format(time.RFC3339), note.WindowEnd.UTC().Format(time.RFC3339), note.SampleCount))
	if note.Recommendation != "" {
		builder.WriteString(fmt.Sprintf("💡 *Recommendation:*\n%s", note.Recommendation))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
