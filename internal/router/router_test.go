package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"glucose-bot/internal/adapters/storage/memory"
	"glucose-bot/internal/adapters/telegram"
	"glucose-bot/internal/domain/iob"
	"glucose-bot/internal/router"
)

const secret = "hook-secret"

type recordingBot struct {
	mu      sync.Mutex
	updates []telegram.Update
}

func (b *recordingBot) HandleUpdate(ctx context.Context, u telegram.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, u)
}

type brokenRepo struct{}

func (brokenRepo) Append(ctx context.Context, e iob.DoseEvent) error { return errors.New("ro") }
func (brokenRepo) List(ctx context.Context) ([]iob.DoseEvent, error) {
	return nil, errors.New("corrupt")
}

func newServer(t *testing.T, bot telegram.UpdateHandler, svc *iob.Service) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		Bot:           bot,
		IOB:           svc,
		WebhookSecret: secret,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_Health(t *testing.T) {
	ts := newServer(t, nil, nil)

	st, body := doReq(t, ts.URL, http.MethodGet, "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", st, body)
	}
}

func TestHTTP_Webhook(t *testing.T) {
	bot := &recordingBot{}
	ts := newServer(t, bot, nil)

	update := map[string]any{
		"update_id": 77,
		"message": map[string]any{
			"message_id": 1,
			"date":       1700000000,
			"chat":       map[string]any{"id": 100, "type": "private"},
			"from":       map[string]any{"id": 100, "username": "anna"},
			"text":       "/start",
		},
	}

	// 1) sin secret => 401 y el bot no se entera
	{
		st, _ := doReq(t, ts.URL, http.MethodPost, "/telegram/webhook", "", update)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without secret, got %d", st)
		}
	}

	// 2) con secret => 200 y un update entregado
	{
		st, body := doReq(t, ts.URL, http.MethodPost, "/telegram/webhook", secret, update)
		if st != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", st, body)
		}
	}

	// 3) JSON roto => 400
	{
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/telegram/webhook", strings.NewReader("{"))
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed json, got %d", res.StatusCode)
		}
	}

	bot.mu.Lock()
	defer bot.mu.Unlock()
	if len(bot.updates) != 1 {
		t.Fatalf("expected exactly 1 update, got %d", len(bot.updates))
	}
	u := bot.updates[0]
	if u.UpdateID != 77 || u.Message == nil || u.Message.Chat.ID != 100 || u.Message.Text != "/start" {
		t.Fatalf("unexpected update %#v", u)
	}
}

func TestHTTP_WebhookNotMountedWithoutBot(t *testing.T) {
	ts := newServer(t, nil, nil)

	st, _ := doReq(t, ts.URL, http.MethodPost, "/telegram/webhook", secret, map[string]any{"update_id": 1})
	if st != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", st)
	}
}

func TestHTTP_NoSecretMountsNothingProtected(t *testing.T) {
	svc := iob.NewService(memory.NewDoseLedger(), iob.DefaultActionWindow)
	bot := &recordingBot{}
	ts := httptest.NewServer(router.NewRouter(router.Options{Bot: bot, IOB: svc}))
	t.Cleanup(ts.Close)

	if st, _ := doReq(t, ts.URL, http.MethodGet, "/iob", "", nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 for /iob, got %d", st)
	}
	update := map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"message_id": 1,
			"date":       1700000000,
			"chat":       map[string]any{"id": 100, "type": "private"},
			"text":       "/bolus_1_0",
		},
	}
	if st, _ := doReq(t, ts.URL, http.MethodPost, "/telegram/webhook", "", update); st != http.StatusNotFound {
		t.Fatalf("expected 404 for webhook, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, http.MethodGet, "/health", "", nil); st != http.StatusOK {
		t.Fatalf("health must stay up, got %d", st)
	}

	bot.mu.Lock()
	defer bot.mu.Unlock()
	if len(bot.updates) != 0 {
		t.Fatalf("no update may reach the bot, got %d", len(bot.updates))
	}
}

func TestHTTP_IOB(t *testing.T) {
	svc := iob.NewService(memory.NewDoseLedger(), iob.DefaultActionWindow)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := svc.Record(context.Background(), 1.0, at.Add(-135*time.Minute)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	ts := newServer(t, nil, svc)

	{
		st, _ := doReq(t, ts.URL, http.MethodGet, "/iob", "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without secret, got %d", st)
		}
	}

	st, body := doReq(t, ts.URL, http.MethodGet, "/iob?at=2025-03-01T12:00:00Z", secret, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", st, body)
	}
	var out struct {
		IOB         float64 `json:"iob"`
		WindowHours float64 `json:"window_hours"`
		At          string  `json:"at"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.IOB != 0.5 || out.WindowHours != 4.5 || out.At != "2025-03-01T12:00:00Z" {
		t.Fatalf("unexpected body %+v", out)
	}

	st, _ = doReq(t, ts.URL, http.MethodGet, "/iob?at=yesterday", secret, nil)
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad at, got %d", st)
	}
}

func TestHTTP_IOB_LedgerUnreadable(t *testing.T) {
	ts := newServer(t, nil, iob.NewService(brokenRepo{}, 0))

	st, _ := doReq(t, ts.URL, http.MethodGet, "/iob", secret, nil)
	if st != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", st)
	}
}

func TestHTTP_SwaggerDoc(t *testing.T) {
	ts := newServer(t, nil, nil)

	st, body := doReq(t, ts.URL, http.MethodGet, "/swagger/doc.json", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	if !bytes.Contains(body, []byte("/telegram/webhook")) {
		t.Fatalf("expected webhook path in doc, got %s", body)
	}
}

func doReq(t *testing.T, baseURL, method, path, webhookSecret string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if webhookSecret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", webhookSecret)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
