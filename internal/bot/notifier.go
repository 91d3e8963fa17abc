package bot

import (
	"context"
	"time"

	"glucose-bot/internal/domain/bolus"
	"glucose-bot/internal/platform/i18n"
)

// Notifier implementa bolus.Notifier mandando un aviso al chat de operadores.
// chatID == 0 lo desactiva.
type Notifier struct {
	send   Sender
	chatID int64
	tr     *i18n.Translator
	loc    *time.Location
}

func NewNotifier(send Sender, chatID int64, tr *i18n.Translator, loc *time.Location) *Notifier {
	if tr == nil {
		tr = i18n.New("")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{send: send, chatID: chatID, tr: tr, loc: loc}
}

func (n *Notifier) NotifyBolus(ctx context.Context, in bolus.Notification) error {
	if n == nil || n.chatID == 0 || n.send == nil {
		return nil
	}
	user := in.Username
	if user == "" {
		user = n.tr.T(i18n.UnknownUsername)
	}
	text := n.tr.T(i18n.DoseNotify, formatDose(in.Dose), in.At.In(n.loc).Format("15:04"), user)
	return n.send.SendMessage(ctx, n.chatID, text, nil)
}
