package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifica un texto del bot. Los botones también son Keys: el router
// compara el texto recibido contra la traducción del idioma configurado.
type Key string

const (
	Unauthorized Key = "auth.unauthorized"
	Start        Key = "menu.start"
	MenuUpdated  Key = "menu.updated"
	Help         Key = "menu.help"

	BtnGlucose Key = "btn.glucose"
	BtnHistory Key = "btn.history"
	BtnRefresh Key = "btn.refresh"
	BtnDose05  Key = "btn.dose_0_5"
	BtnDose10  Key = "btn.dose_1_0"
	BtnDose15  Key = "btn.dose_1_5"

	Current         Key = "glucose.current"
	CurrentError    Key = "glucose.current_error"
	HistoryHeader   Key = "glucose.history_header"
	HistoryLine     Key = "glucose.history_line"
	HistoryError    Key = "glucose.history_error"
	NoData          Key = "glucose.no_data"
	IOBLine         Key = "iob.line"
	IOBUnavailable  Key = "iob.unavailable"
	DoseRecorded    Key = "dose.recorded"
	DoseError       Key = "dose.error"
	DoseUntracked   Key = "dose.untracked"
	DoseNotify      Key = "dose.notify"
	UnknownUsername Key = "dose.unknown_user"
)

var messages = map[language.Tag]map[Key]string{
	language.Russian: {
		Unauthorized: "Вы не авторизованы для использования этого бота.",
		Start:        "Привет! Выбери действие:",
		MenuUpdated:  "Меню обновлено ✅",
		Help:         "Не понимаю команду. Выбери действие в меню:",

		BtnGlucose: "📊 Уровень глюкозы",
		BtnHistory: "📈 История глюкозы",
		BtnRefresh: "🔁 Обновить меню",
		BtnDose05:  "💉 0,5 единиц, короткий",
		BtnDose10:  "💉 1 единица, короткий",
		BtnDose15:  "💉 1,5 единицы, короткий",

		Current:         "🩸 Уровень глюкозы: %s ммоль/л (%s мг/дл)\n📈 Направление: %s\n🕒 Время: %s",
		CurrentError:    "Ошибка при получении данных 😔",
		HistoryHeader:   "📈 Последние значения глюкозы:",
		HistoryLine:     "— %s ммоль/л (%s мг/дл) в %s",
		HistoryError:    "Ошибка при получении истории 😔",
		NoData:          "Нет данных о глюкозе 🤷",
		IOBLine:         "💉 Активный инсулин: %s ед.",
		IOBUnavailable:  "💉 Активный инсулин: нет данных",
		DoseRecorded:    "💉 Введено %s единиц инсулина.",
		DoseError:       "Ошибка при записи введения инсулина 😔",
		DoseUntracked:   "⚠️ Доза отправлена, но не сохранена для расчёта активного инсулина. Не повторяй ввод.",
		DoseNotify:      "Введено %s инсулина в %s пользователем @%s",
		UnknownUsername: "Неизвестный пользователь",
	},
	language.English: {
		Unauthorized: "You are not authorized to use this bot.",
		Start:        "Hi! Choose an action:",
		MenuUpdated:  "Menu refreshed ✅",
		Help:         "Unknown command. Pick an action from the menu:",

		BtnGlucose: "📊 Glucose level",
		BtnHistory: "📈 Glucose history",
		BtnRefresh: "🔁 Refresh menu",
		BtnDose05:  "💉 0.5 units, rapid",
		BtnDose10:  "💉 1 unit, rapid",
		BtnDose15:  "💉 1.5 units, rapid",

		Current:         "🩸 Glucose: %s mmol/L (%s mg/dL)\n📈 Direction: %s\n🕒 Time: %s",
		CurrentError:    "Could not fetch glucose data 😔",
		HistoryHeader:   "📈 Latest glucose values:",
		HistoryLine:     "— %s mmol/L (%s mg/dL) at %s",
		HistoryError:    "Could not fetch glucose history 😔",
		NoData:          "No glucose data 🤷",
		IOBLine:         "💉 Insulin on board: %s U",
		IOBUnavailable:  "💉 Insulin on board: unavailable",
		DoseRecorded:    "💉 Recorded %s units of insulin.",
		DoseError:       "Could not record the insulin dose 😔",
		DoseUntracked:   "⚠️ Dose sent but not saved for insulin-on-board tracking. Do not re-enter it.",
		DoseNotify:      "%s units of insulin given at %s by @%s",
		UnknownUsername: "unknown user",
	},
}

var supported = []language.Tag{language.Russian, language.English}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(supported)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.Russian))
	for tag, msgs := range messages {
		for k, v := range msgs {
			if err := b.SetString(tag, string(k), v); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	return b
}

// Translator formatea textos del bot en un idioma fijo.
type Translator struct {
	tag language.Tag
	p   *message.Printer
}

// New elige el idioma soportado más cercano a locale (default ruso).
func New(locale string) *Translator {
	tag := language.Russian
	if t, err := language.Parse(locale); err == nil {
		_, idx, conf := matcher.Match(t)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Translator{
		tag: tag,
		p:   message.NewPrinter(tag, message.Catalog(cat)),
	}
}

func (t *Translator) Language() language.Tag {
	return t.tag
}

// T traduce key. Los números se pasan ya formateados como string.
func (t *Translator) T(key Key, args ...any) string {
	return t.p.Sprintf(string(key), args...)
}
