package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"glucose-bot/internal/platform/httpclient"
)

const DefaultBaseURL = "https://api.telegram.org"

var (
	ErrNotConfigured = errors.New("telegram client not configured")
	ErrAPI           = errors.New("telegram api error")
)

type Config struct {
	Token   string
	BaseURL string // default https://api.telegram.org (tests usan httptest)
	Timeout time.Duration

	// PollTimeout es el long-poll de getUpdates.
	PollTimeout time.Duration

	// MessagesPerSecond limita sendMessage (Telegram corta ~30/s por bot).
	MessagesPerSecond float64
}

type Client struct {
	token       string
	api         *httpclient.Client
	poll        *httpclient.Client
	pollTimeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	mps := cfg.MessagesPerSecond
	if mps <= 0 {
		mps = 25
	}

	api, err := httpclient.NewWithBaseURL(base, timeout)
	if err != nil {
		return nil, err
	}
	api.Limiter = rate.NewLimiter(rate.Limit(mps), 1)

	// getUpdates bloquea hasta pollTimeout: su http.Client necesita más margen.
	poll, err := httpclient.NewWithBaseURL(base, pollTimeout+timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		token:       strings.TrimSpace(cfg.Token),
		api:         api,
		poll:        poll,
		pollTimeout: pollTimeout,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.token != ""
}

// SendMessage envía texto (con teclado opcional).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb *ReplyKeyboardMarkup) error {
	var out envelope[json.RawMessage]
	return c.call(ctx, c.api, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: kb,
	}, &out)
}

// GetUpdates hace long-polling desde offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	var out envelope[[]Update]
	err := c.call(ctx, c.poll, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(c.pollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// SetWebhook registra la URL pública del bot.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	var out envelope[bool]
	return c.call(ctx, c.api, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	}, &out)
}

// DeleteWebhook es necesario antes de usar getUpdates si hubo webhook.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	var out envelope[bool]
	return c.call(ctx, c.api, "deleteWebhook", map[string]bool{"drop_pending_updates": false}, &out)
}

type okResponse interface {
	ok() (bool, string, int)
}

func (e *envelope[T]) ok() (bool, string, int) { return e.OK, e.Description, e.ErrorCode }

func (c *Client) call(ctx context.Context, hc *httpclient.Client, method string, in any, out okResponse) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	path := "/bot" + c.token + "/" + method
	if err := hc.DoJSON(ctx, http.MethodPost, path, nil, in, out); err != nil {
		var he *httpclient.HTTPError
		if errors.As(err, &he) {
			// La Bot API devuelve {ok:false, description} también en 4xx.
			var env envelope[json.RawMessage]
			if json.Unmarshal([]byte(he.Body), &env) == nil && env.Description != "" {
				return fmt.Errorf("%w: %s: %d %s", ErrAPI, method, he.StatusCode, env.Description)
			}
		}
		return fmt.Errorf("%w: %s: %s", ErrAPI, method, c.redact(err.Error()))
	}

	if ok, desc, code := out.ok(); !ok {
		return fmt.Errorf("%w: %s: %d %s", ErrAPI, method, code, desc)
	}
	return nil
}

// redact evita que el token termine en logs (va en el path de la URL).
func (c *Client) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "***")
}
