package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"orion-brain/internal/config"
	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/pkg/retry"
	"orion-brain/pkg/utils"
)

const telegramAPIBaseURL = "https://api.telegram.org"

// размер очереди уведомлений; переполнение означает что доставка
// стабильно не успевает за движком - новые события дешевле потерять,
// чем блокировать прогон
const notifierQueueSize = 256

// NotificationStore - срез хранилища, нужный notifier'у
type NotificationStore interface {
	Create(n *models.Notification) error
}

// Broadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type Broadcaster interface {
	BroadcastNotification(n *models.Notification)
}

// Notifier доставляет уведомления движка наружу: журнал в БД, WebSocket
// hub и Telegram.
//
// Отправка fire-and-forget: Notify кладет событие в буферизованный канал
// и немедленно возвращается; при переполнении буфера событие теряется.
// Доставкой занимается один worker (Run), Telegram ходит с retry.
type Notifier struct {
	store NotificationStore
	hub   Broadcaster

	cfg        config.TelegramConfig
	apiBaseURL string
	client     *http.Client

	queue  chan *models.Notification
	logger *utils.Logger
}

// NewNotifier создает notifier. Worker запускается отдельно через Run.
func NewNotifier(store NotificationStore, cfg config.TelegramConfig, logger *utils.Logger) *Notifier {
	httpCfg := marketdata.DefaultHTTPClientConfig()
	if cfg.Timeout > 0 {
		httpCfg.TotalTimeout = cfg.Timeout
	}
	return &Notifier{
		store:      store,
		cfg:        cfg,
		apiBaseURL: telegramAPIBaseURL,
		client:     marketdata.NewHTTPClient(httpCfg),
		queue:      make(chan *models.Notification, notifierQueueSize),
		logger:     logger.WithComponent("notifier"),
	}
}

// SetWebSocketHub устанавливает hub для broadcast уведомлений.
// Вызывается после инициализации Hub в main.go.
func (s *Notifier) SetWebSocketHub(hub Broadcaster) {
	s.hub = hub
}

// Notify ставит уведомление в очередь доставки. Никогда не блокирует.
func (s *Notifier) Notify(n *models.Notification) {
	if n == nil {
		return
	}
	select {
	case s.queue <- n:
		notificationsQueued.WithLabelValues(n.Type).Inc()
	default:
		notificationsDropped.Inc()
		s.logger.Warn("notification queue full, event dropped",
			utils.String("type", n.Type), utils.Pair(n.Pair))
	}
}

// Run крутит worker доставки до отмены контекста
func (s *Notifier) Run(ctx context.Context) {
	s.logger.Info("notifier started",
		utils.Bool("telegram", s.telegramConfigured()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("notifier stopped")
			return
		case n := <-s.queue:
			s.deliver(ctx, n)
		}
	}
}

// deliver доставляет одно уведомление по всем каналам.
// Сбой одного канала не мешает остальным.
func (s *Notifier) deliver(ctx context.Context, n *models.Notification) {
	if err := s.store.Create(n); err != nil {
		s.logger.Error("notification journal write failed",
			utils.String("type", n.Type), utils.Err(err))
	}

	if s.hub != nil {
		s.hub.BroadcastNotification(n)
	}

	if !s.telegramConfigured() {
		return
	}

	text := formatTelegramText(n)
	err := retry.Do(ctx, func() error {
		return s.sendTelegram(ctx, text)
	}, retry.NotifierConfig())
	if err != nil {
		s.logger.Error("telegram delivery failed",
			utils.String("type", n.Type), utils.Err(err))
		return
	}
	notificationsSent.Inc()
}

func (s *Notifier) telegramConfigured() bool {
	return s.cfg.Enabled && s.cfg.BotToken != "" && s.cfg.ChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// sendTelegram отправляет одно сообщение через Bot API
func (s *Notifier) sendTelegram(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:    s.cfg.ChatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBaseURL, s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}

	var parsed telegramResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("telegram status %d, malformed response", resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram API error: %s", parsed.Description)
	}

	return nil
}

// formatTelegramText собирает HTML сообщение для Telegram
func formatTelegramText(n *models.Notification) string {
	var b strings.Builder

	switch n.Severity {
	case models.SeverityError:
		b.WriteString("❌ ")
	case models.SeverityWarn:
		b.WriteString("⚠️ ")
	}

	fmt.Fprintf(&b, "<b>%s</b>", n.Type)
	if n.Pair != "" {
		fmt.Fprintf(&b, " %s", n.Pair)
	}
	if n.PositionID != "" {
		fmt.Fprintf(&b, " [%s]", n.PositionID)
	}
	if n.Message != "" {
		b.WriteString("\n")
		b.WriteString(n.Message)
	}

	return b.String()
}
