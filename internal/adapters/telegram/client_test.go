package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"glucose-bot/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := NewClient(Config{Token: "123:ABC", BaseURL: ts.URL, Timeout: time.Second, PollTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestSendMessage_WithKeyboard(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:ABC/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	kb := Keyboard([]string{"a", "b"}, []string{"c"})
	if err := c.SendMessage(context.Background(), 42, "hola", kb); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if got["chat_id"] != float64(42) || got["text"] != "hola" {
		t.Fatalf("unexpected body %#v", got)
	}
	markup, ok := got["reply_markup"].(map[string]any)
	if !ok || markup["resize_keyboard"] != true {
		t.Fatalf("expected resize keyboard markup, got %#v", got["reply_markup"])
	}
	rows := markup["keyboard"].([]any)
	if len(rows) != 2 || len(rows[0].([]any)) != 2 {
		t.Fatalf("unexpected keyboard layout %#v", rows)
	}
}

func TestCall_APIErrorDescription(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	err := c.SendMessage(context.Background(), 1, "x", nil)
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("expected ErrAPI, got %v", err)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected description in error, got %v", err)
	}
	if strings.Contains(err.Error(), "123:ABC") {
		t.Fatalf("token leaked in error: %v", err)
	}
}

func TestGetUpdates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["offset"] != float64(7) || in["timeout"] != float64(1) {
			t.Errorf("unexpected getUpdates body %#v", in)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":7,"message":{"message_id":1,"chat":{"id":42},"date":1700000000,"text":"/start","from":{"id":42,"username":"ana"}}}
		]}`))
	})

	ups, err := c.GetUpdates(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(ups) != 1 || ups[0].Message == nil || ups[0].Message.Text != "/start" || ups[0].Message.From.Username != "ana" {
		t.Fatalf("unexpected updates %#v", ups)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	c, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.SendMessage(context.Background(), 1, "x", nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

// -------------------------
// Poller
// -------------------------

type scriptedSource struct {
	mu      sync.Mutex
	batches [][]Update
	offsets []int64
	cancel  context.CancelFunc
}

func (s *scriptedSource) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, offset)
	if len(s.batches) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

type recordingHandler struct {
	ids []int64
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, u Update) {
	h.ids = append(h.ids, u.UpdateID)
}

func TestPoller_AdvancesOffsetAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		batches: [][]Update{
			{{UpdateID: 10}, {UpdateID: 11}},
			{{UpdateID: 12}},
		},
		cancel: cancel,
	}
	h := &recordingHandler{}

	p := NewPoller(src, h, logger.Nop())
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(h.ids) != 3 || h.ids[0] != 10 || h.ids[2] != 12 {
		t.Fatalf("expected updates handled in order, got %v", h.ids)
	}
	want := []int64{0, 12, 13}
	if len(src.offsets) != len(want) {
		t.Fatalf("expected offsets %v, got %v", want, src.offsets)
	}
	for i := range want {
		if src.offsets[i] != want[i] {
			t.Fatalf("expected offsets %v, got %v", want, src.offsets)
		}
	}
}

type panickyHandler struct {
	recordingHandler
	panicOn int64
}

func (h *panickyHandler) HandleUpdate(ctx context.Context, u Update) {
	if u.UpdateID == h.panicOn {
		panic("boom")
	}
	h.recordingHandler.HandleUpdate(ctx, u)
}

func TestPoller_PanicInHandlerIsLoggedAndSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		batches: [][]Update{
			{{UpdateID: 20}, {UpdateID: 21}},
			{{UpdateID: 22}},
		},
		cancel: cancel,
	}
	h := &panickyHandler{panicOn: 20}

	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: logger.Debug, Format: logger.FormatJSON, Output: &buf})

	p := NewPoller(src, h, log)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(h.ids) != 2 || h.ids[0] != 21 || h.ids[1] != 22 {
		t.Fatalf("expected updates after the panic to be handled, got %v", h.ids)
	}
	// el offset pasa el update que explotó
	if len(src.offsets) < 2 || src.offsets[1] != 22 {
		t.Fatalf("expected offset 22 after first batch, got %v", src.offsets)
	}
	line := buf.String()
	if !strings.Contains(line, "telegram update handler panicked") || !strings.Contains(line, `"update_id":20`) {
		t.Fatalf("expected panic log for update 20, got %q", line)
	}
}
