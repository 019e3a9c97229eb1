package publish

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"plotrunner/internal/infra/config"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	mu      sync.Mutex
	methods []string
	fail    bool
}

func (f *fakeTelegram) handler(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.methods = append(f.methods, method)
	fail := f.fail
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case method == "getMe":
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"plot","username":"plotbot"}}`))
	case fail:
		w.Write([]byte(`{"ok":false,"error_code":500,"description":"Internal Server Error"}`))
	default:
		w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}
}

func (f *fakeTelegram) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func newTestPublisher(t *testing.T, fake *fakeTelegram, chatID string) *Telegram {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	p, err := NewTelegram(config.TelegramConfig{
		BotToken:       "123:abc",
		ChatID:         chatID,
		APIEndpoint:    srv.URL + "/bot%s/%s",
		RatePerSecond:  1000,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return p
}

func writeArtifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("chart"), 0644))
	return path
}

func TestNewTelegram_Validation(t *testing.T) {
	_, err := NewTelegram(config.TelegramConfig{})
	assert.Error(t, err)

	_, err = NewTelegram(config.TelegramConfig{BotToken: "x", ChatID: "not-a-number"})
	assert.Error(t, err)

	p, err := NewTelegram(config.TelegramConfig{BotToken: "x", ChatID: "@charts"})
	require.NoError(t, err)
	assert.Equal(t, "@charts", p.channel)
}

func TestPublish_PNGAsPhoto(t *testing.T) {
	fake := &fakeTelegram{}
	p := newTestPublisher(t, fake, "42")

	require.NoError(t, p.Publish(context.Background(), writeArtifact(t, "chart.png")))
	assert.Equal(t, []string{"getMe", "sendPhoto"}, fake.calls())
}

func TestPublish_HTMLAsDocument(t *testing.T) {
	fake := &fakeTelegram{}
	p := newTestPublisher(t, fake, "-100200")

	require.NoError(t, p.Publish(context.Background(), writeArtifact(t, "chart.html")))
	require.NoError(t, p.Publish(context.Background(), writeArtifact(t, "again.html")))

	assert.Equal(t, []string{"getMe", "sendDocument", "sendDocument"}, fake.calls(), "bot is authorised once")
}

func TestPublish_BreakerOpensAfterFailures(t *testing.T) {
	fake := &fakeTelegram{fail: true}
	p := newTestPublisher(t, fake, "42")
	path := writeArtifact(t, "chart.png")

	for i := 0; i < 3; i++ {
		assert.Error(t, p.Publish(context.Background(), path))
	}
	before := len(fake.calls())

	err := p.Publish(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Len(t, fake.calls(), before, "open breaker must not reach the API")
}

func TestPublish_CancelledContext(t *testing.T) {
	fake := &fakeTelegram{}
	p := newTestPublisher(t, fake, "42")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, p.Publish(ctx, writeArtifact(t, "chart.png")))
	assert.Empty(t, fake.calls())
}
