package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"glucose-bot/internal/adapters/telegram"
	"glucose-bot/internal/domain/bolus"
	"glucose-bot/internal/domain/glucose"
	"glucose-bot/internal/domain/iob"
	"glucose-bot/internal/platform/i18n"
	"glucose-bot/internal/platform/logger"
	"glucose-bot/internal/platform/telemetry"
	"glucose-bot/internal/ports/auth"
)

// Sender es la parte de la Bot API que necesita el bot para responder.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *telegram.ReplyKeyboardMarkup) error
}

type Deps struct {
	Sender  Sender
	Auth    auth.Authorizer
	Glucose *glucose.Service
	IOB     *iob.Service
	Bolus   *bolus.Service

	Translator *i18n.Translator
	Location   *time.Location
	Log        logger.Logger
	Metrics    *telemetry.Metrics

	HistorySize int
	Now         func() time.Time
}

type handlerFunc func(ctx context.Context, m *telegram.Message) (outcome string)

type route struct {
	name string
	fn   handlerFunc
}

// Bot traduce mensajes de Telegram a operaciones de dominio.
// HandleUpdate está serializado: webhook y polling procesan un update a la vez.
type Bot struct {
	mu sync.Mutex

	send    Sender
	auth    auth.Authorizer
	glucose *glucose.Service
	iob     *iob.Service
	bolus   *bolus.Service

	tr      *i18n.Translator
	loc     *time.Location
	log     logger.Logger
	metrics *telemetry.Metrics

	historySize int
	now         func() time.Time

	menu   *telegram.ReplyKeyboardMarkup
	routes map[string]route
}

// doseButtons sigue el orden de bolus.Doses().
var doseButtons = []i18n.Key{i18n.BtnDose05, i18n.BtnDose10, i18n.BtnDose15}

func New(d Deps) *Bot {
	b := &Bot{
		send:        d.Sender,
		auth:        d.Auth,
		glucose:     d.Glucose,
		iob:         d.IOB,
		bolus:       d.Bolus,
		tr:          d.Translator,
		loc:         d.Location,
		log:         d.Log,
		metrics:     d.Metrics,
		historySize: d.HistorySize,
		now:         d.Now,
	}
	if b.tr == nil {
		b.tr = i18n.New("")
	}
	if b.loc == nil {
		b.loc = time.UTC
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	if b.historySize <= 0 {
		b.historySize = glucose.DefaultHistorySize
	}
	if b.now == nil {
		b.now = time.Now
	}

	b.routes = map[string]route{}
	b.handle("start", b.handleStart, "/start")
	b.handle("refresh", b.handleRefresh, b.tr.T(i18n.BtnRefresh), "/menu")
	b.handle("glucose", b.handleCurrent, b.tr.T(i18n.BtnGlucose), "/glucose")
	b.handle("history", b.handleHistory, b.tr.T(i18n.BtnHistory), "/history")

	doseRow := make([]string, 0, len(doseButtons))
	for i, d := range bolus.Doses() {
		if i >= len(doseButtons) {
			break
		}
		label := b.tr.T(doseButtons[i])
		doseRow = append(doseRow, label)
		b.handle("dose", b.doseHandler(d), label)
	}

	b.menu = telegram.Keyboard(
		doseRow,
		[]string{b.tr.T(i18n.BtnGlucose), b.tr.T(i18n.BtnHistory)},
		[]string{b.tr.T(i18n.BtnRefresh)},
	)
	return b
}

func (b *Bot) handle(name string, fn handlerFunc, texts ...string) {
	for _, t := range texts {
		b.routes[t] = route{name: name, fn: fn}
	}
}

// Menu es el teclado principal.
func (b *Bot) Menu() *telegram.ReplyKeyboardMarkup {
	return b.menu
}

// HandleUpdate implementa telegram.UpdateHandler.
func (b *Bot) HandleUpdate(ctx context.Context, u telegram.Update) {
	m := u.Message
	if m == nil || strings.TrimSpace(m.Text) == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.lookup(m.Text)
	if !ok {
		r = route{name: "unknown", fn: b.handleUnknown}
	}

	if !b.authorized(ctx, m) {
		b.log.Debug("unauthorized chat", map[string]any{"chat_id": m.Chat.ID, "command": r.name})
		b.reply(ctx, m.Chat.ID, b.tr.T(i18n.Unauthorized), nil)
		b.metrics.Command(ctx, r.name, "denied")
		return
	}

	outcome := r.fn(ctx, m)
	b.metrics.Command(ctx, r.name, outcome)
}

func (b *Bot) lookup(text string) (route, bool) {
	text = strings.TrimSpace(text)
	if r, ok := b.routes[text]; ok {
		return r, true
	}
	// "/start@mi_bot args"
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		if i := strings.IndexByte(cmd, '@'); i > 0 {
			cmd = cmd[:i]
		}
		r, ok := b.routes[cmd]
		return r, ok
	}
	return route{}, false
}

func (b *Bot) authorized(ctx context.Context, m *telegram.Message) bool {
	if b.auth == nil {
		return false
	}
	p := auth.Principal{ChatID: m.Chat.ID}
	if m.From != nil {
		p.UserID = m.From.ID
		p.Username = m.From.Username
	}
	return b.auth.Authorized(ctx, p)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, kb *telegram.ReplyKeyboardMarkup) {
	if err := b.send.SendMessage(ctx, chatID, text, kb); err != nil {
		b.log.Error("telegram send failed", map[string]any{"chat_id": chatID, "err": err})
	}
}

// messageTime es la hora del mensaje (Telegram manda epoch segundos).
func (b *Bot) messageTime(m *telegram.Message) time.Time {
	if m.Date > 0 {
		return time.Unix(m.Date, 0)
	}
	return b.now().Truncate(time.Second)
}

// displayName: username, si no first name. Vacío si no hay ninguno.
func displayName(u *telegram.User) string {
	if u == nil {
		return ""
	}
	if s := strings.TrimSpace(u.Username); s != "" {
		return s
	}
	return strings.TrimSpace(u.FirstName)
}
