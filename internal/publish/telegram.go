// Package publish delivers rendered charts to chat destinations.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"plotrunner/internal/infra/config"
	logging "plotrunner/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Publisher sends a rendered file somewhere after it was written.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// Telegram sends charts to one chat: PNGs as photos, everything else as
// documents. Calls are rate limited and guarded by a circuit breaker.
type Telegram struct {
	token          string
	endpoint       string
	chatID         int64
	channel        string
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegram validates cfg. The bot itself is authorised lazily on the
// first Publish so that constructing a publisher never hits the network.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	if !cfg.Enabled() {
		return nil, errors.New("telegram publishing requires bot_token and chat_id")
	}

	t := &Telegram{
		token:    cfg.BotToken,
		endpoint: cfg.APIEndpoint,
	}
	if t.endpoint == "" {
		t.endpoint = tgbotapi.APIEndpoint
	}

	if strings.HasPrefix(cfg.ChatID, "@") {
		t.channel = cfg.ChatID
	} else {
		id, err := strconv.ParseInt(cfg.ChatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
		}
		t.chatID = id
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	t.httpClient = &http.Client{Timeout: timeout}

	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	t.rateLimiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)

	t.circuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "TelegramAPI",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.LogWarn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return t, nil
}

func (t *Telegram) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to authorise telegram bot: %w", err)
	}
	logging.LogInfo("Telegram bot authorized", zap.String("username", bot.Self.UserName))
	t.bot = bot
	return bot, nil
}

func (t *Telegram) message(path string) tgbotapi.Chattable {
	file := tgbotapi.FilePath(path)
	caption := filepath.Base(path)

	if strings.EqualFold(filepath.Ext(path), ".png") {
		photo := tgbotapi.NewPhoto(t.chatID, file)
		photo.ChannelUsername = t.channel
		photo.Caption = caption
		return photo
	}
	doc := tgbotapi.NewDocument(t.chatID, file)
	doc.ChannelUsername = t.channel
	doc.Caption = caption
	return doc
}

// Publish uploads path to the configured chat.
func (t *Telegram) Publish(ctx context.Context, path string) error {
	requestID := logging.GenerateRequestID()
	startTime := time.Now()
	destination := t.channel
	if destination == "" {
		destination = strconv.FormatInt(t.chatID, 10)
	}

	if err := t.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	logging.LogRequest(requestID, "upload", destination, zap.String("file", path))

	_, err := t.circuitBreaker.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bot, err := t.client()
		if err != nil {
			return nil, err
		}
		return bot.Send(t.message(path))
	})

	logging.LogResponse(requestID, err == nil, time.Since(startTime).Milliseconds(),
		zap.String("endpoint", destination))
	if err != nil {
		return fmt.Errorf("failed to publish %s to telegram: %w", path, err)
	}
	return nil
}
