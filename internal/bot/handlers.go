package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"glucose-bot/internal/adapters/telegram"
	"glucose-bot/internal/domain/bolus"
	"glucose-bot/internal/domain/glucose"
	"glucose-bot/internal/platform/i18n"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

func (b *Bot) handleStart(ctx context.Context, m *telegram.Message) string {
	b.reply(ctx, m.Chat.ID, b.tr.T(i18n.Start), b.menu)
	return outcomeOK
}

func (b *Bot) handleRefresh(ctx context.Context, m *telegram.Message) string {
	b.reply(ctx, m.Chat.ID, b.tr.T(i18n.MenuUpdated), b.menu)
	return outcomeOK
}

func (b *Bot) handleUnknown(ctx context.Context, m *telegram.Message) string {
	b.reply(ctx, m.Chat.ID, b.tr.T(i18n.Help), b.menu)
	return outcomeOK
}

// handleCurrent: última lectura + insulina activa. Si el ledger falla la
// lectura igual se muestra, con la línea de IOB marcada como no disponible.
func (b *Bot) handleCurrent(ctx context.Context, m *telegram.Message) string {
	e, err := b.glucose.Current(ctx)
	if err != nil {
		if errors.Is(err, glucose.ErrNoData) {
			b.reply(ctx, m.Chat.ID, b.tr.T(i18n.NoData), nil)
			return outcomeOK
		}
		b.log.Error("current glucose failed", map[string]any{"chat_id": m.Chat.ID, "err": err})
		b.reply(ctx, m.Chat.ID, b.tr.T(i18n.CurrentError), nil)
		return outcomeError
	}

	text := b.tr.T(i18n.Current,
		formatMMOL(e.MMOL()),
		strconv.Itoa(e.SGV),
		e.Direction,
		e.LocalClock(b.loc),
	)

	active, err := b.iob.ActiveAt(ctx, b.now())
	if err != nil {
		b.log.Error("iob ledger read failed", map[string]any{"chat_id": m.Chat.ID, "err": err})
		text += "\n" + b.tr.T(i18n.IOBUnavailable)
	} else {
		b.metrics.IOB(ctx, active)
		text += "\n" + b.tr.T(i18n.IOBLine, formatIOB(active))
	}

	b.reply(ctx, m.Chat.ID, text, nil)
	return outcomeOK
}

func (b *Bot) handleHistory(ctx context.Context, m *telegram.Message) string {
	items, err := b.glucose.History(ctx, b.historySize)
	if err != nil {
		if errors.Is(err, glucose.ErrNoData) {
			b.reply(ctx, m.Chat.ID, b.tr.T(i18n.NoData), nil)
			return outcomeOK
		}
		b.log.Error("glucose history failed", map[string]any{"chat_id": m.Chat.ID, "err": err})
		b.reply(ctx, m.Chat.ID, b.tr.T(i18n.HistoryError), nil)
		return outcomeError
	}

	var sb strings.Builder
	sb.WriteString(b.tr.T(i18n.HistoryHeader))
	for _, e := range items {
		sb.WriteByte('\n')
		sb.WriteString(b.tr.T(i18n.HistoryLine,
			formatMMOL(e.MMOL()),
			strconv.Itoa(e.SGV),
			e.LocalClock(b.loc),
		))
	}

	b.reply(ctx, m.Chat.ID, sb.String(), nil)
	return outcomeOK
}

func (b *Bot) doseHandler(dose float64) handlerFunc {
	return func(ctx context.Context, m *telegram.Message) string {
		fields := map[string]any{"chat_id": m.Chat.ID, "dose": dose}

		res, err := b.bolus.Log(ctx, bolus.LogInput{
			Dose:     dose,
			At:       b.messageTime(m),
			Username: displayName(m.From),
		})
		switch {
		case errors.Is(err, bolus.ErrLedgerWrite):
			// Nightscout ya lo tiene: no pedir que repita.
			fields["err"] = err
			b.log.Error("bolus sent but ledger write failed", fields)
			b.metrics.Dose(ctx, dose)
			b.reply(ctx, m.Chat.ID, b.tr.T(i18n.DoseUntracked), nil)
			return outcomeError
		case err != nil:
			fields["err"] = err
			b.log.Error("bolus log failed", fields)
			b.reply(ctx, m.Chat.ID, b.tr.T(i18n.DoseError), nil)
			return outcomeError
		}

		if res.NotifyErr != nil {
			b.log.Warn("bolus notification failed", map[string]any{"chat_id": m.Chat.ID, "err": res.NotifyErr})
		}
		fields["event_id"] = res.Event.ID
		b.log.Info("bolus logged", fields)
		b.metrics.Dose(ctx, dose)

		b.reply(ctx, m.Chat.ID, b.tr.T(i18n.DoseRecorded, formatDose(dose)), nil)
		return outcomeOK
	}
}

// formatMMOL: un decimal siempre ("5.0", "5.6").
func formatMMOL(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatDose: como el menú, "0.5", "1.0", "1.5".
func formatDose(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// formatIOB: el valor ya viene redondeado a 2 decimales; se recortan ceros.
func formatIOB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
