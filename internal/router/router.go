package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "glucose-bot/docs"
	"glucose-bot/internal/adapters/telegram"
	"glucose-bot/internal/domain/iob"
	"glucose-bot/internal/middleware"
	"glucose-bot/internal/platform/logger"
)

type Options struct {
	// Bot recibe los updates del webhook. nil => la ruta no se monta (modo polling).
	Bot telegram.UpdateHandler

	IOB *iob.Service

	// WebhookSecret protege /telegram/webhook y /iob. Vacío => esas rutas no
	// se montan.
	WebhookSecret string

	Log logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", health)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if strings.TrimSpace(opts.WebhookSecret) == "" {
		log.Warn("no webhook secret: /telegram/webhook and /iob not mounted", nil)
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.WebhookSecret(opts.WebhookSecret))

		if opts.Bot != nil {
			r.Post("/telegram/webhook", webhook(opts.Bot, log))
		}
		if opts.IOB != nil {
			r.Get("/iob", activeInsulin(opts.IOB, log))
		}
	})

	return r
}

// health
// @Summary Liveness
// @Tags ops
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /health [get]
func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// webhook
// @Summary Update de la Bot API
// @Tags telegram
// @Accept json
// @Produce plain
// @Param X-Telegram-Bot-Api-Secret-Token header string false "secret del webhook"
// @Success 200 {string} string "ok"
// @Failure 400 {string} string "json inválido"
// @Failure 401 {string} string "secret inválido"
// @Router /telegram/webhook [post]
func webhook(bot telegram.UpdateHandler, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u telegram.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&u); err != nil {
			log.Warn("webhook: invalid update", map[string]any{"err": err})
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		// Errores del bot se contestan al usuario por chat; a Telegram siempre 200
		// para que no reintente el mismo update.
		bot.HandleUpdate(r.Context(), u)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type iobResponse struct {
	IOB         float64 `json:"iob"`
	WindowHours float64 `json:"window_hours"`
	At          string  `json:"at"`
}

// activeInsulin
// @Summary Insulina activa
// @Tags ops
// @Produce json
// @Param X-Telegram-Bot-Api-Secret-Token header string false "secret del webhook"
// @Param at query string false "instante RFC3339 (default ahora)"
// @Success 200 {object} iobResponse
// @Failure 400 {string} string "at inválido"
// @Failure 401 {string} string "secret inválido"
// @Failure 503 {string} string "ledger ilegible"
// @Router /iob [get]
func activeInsulin(svc *iob.Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := time.Now()
		if v := strings.TrimSpace(r.URL.Query().Get("at")); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "at must be RFC3339", http.StatusBadRequest)
				return
			}
			at = t
		}

		v, err := svc.ActiveAt(r.Context(), at)
		if err != nil {
			if errors.Is(err, iob.ErrStorage) {
				log.Error("iob ledger read failed", map[string]any{"err": err})
				http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, iobResponse{
			IOB:         v,
			WindowHours: svc.Window().Hours(),
			At:          at.UTC().Format(time.RFC3339),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
