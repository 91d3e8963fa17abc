package nightscout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"glucose-bot/internal/domain/glucose"
	"glucose-bot/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("nightscout client not configured")
	ErrUnauthorized  = errors.New("nightscout unauthorized")
	ErrUpstream      = errors.New("nightscout upstream error")
)

// Config del cliente Nightscout.
type Config struct {
	BaseURL string

	// SecretHash es el SHA-1 hex del API secret (no el secret en claro).
	SecretHash string

	Timeout time.Duration
}

// Client habla con la API v1 de Nightscout.
// Implementa glucose.EntriesSource y bolus.TreatmentsSink.
type Client struct {
	http       *httpclient.Client
	secretHash string
}

func NewClient(cfg Config) (*Client, error) {
	hc, err := httpclient.NewWithBaseURL(strings.TrimSpace(cfg.BaseURL), cfg.Timeout)
	if err != nil {
		return nil, err
	}
	hash := strings.TrimSpace(cfg.SecretHash)
	hc.Headers = map[string]string{"API-SECRET": hash}

	return &Client{http: hc, secretHash: hash}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.http.BaseURL != "" && c.secretHash != ""
}

// entryDTO es lo que devuelve /api/v1/entries.json (sólo los campos usados).
type entryDTO struct {
	SGV        int    `json:"sgv"`
	Direction  string `json:"direction"`
	DateString string `json:"dateString"`
	Date       int64  `json:"date"` // epoch ms, respaldo si dateString no parsea
}

// LatestEntries trae las últimas `count` lecturas, la más reciente primero.
func (c *Client) LatestEntries(ctx context.Context, count int) ([]glucose.Entry, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if count <= 0 {
		count = 1
	}

	var raw []entryDTO
	path := "/api/v1/entries.json?count=" + strconv.Itoa(count)
	if err := c.http.DoJSON(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, c.wrap(err)
	}

	out := make([]glucose.Entry, 0, len(raw))
	for i, d := range raw {
		t, err := glucose.ParseDateString(d.DateString)
		if err != nil {
			if d.Date <= 0 {
				return nil, fmt.Errorf("%w: entry #%d: %v", ErrUpstream, i, err)
			}
			t = time.UnixMilli(d.Date).UTC()
		}
		out = append(out, glucose.Entry{
			SGV:        d.SGV,
			Direction:  d.Direction,
			DateString: d.DateString,
			Time:       t,
		})
	}
	return out, nil
}

// Treatment es el cuerpo que acepta /api/v1/treatments.json para un bolo.
type Treatment struct {
	EventType    string  `json:"eventType"`
	SubeventType string  `json:"subeventType"`
	Insulin      float64 `json:"insulin"`
	Datetime     int64   `json:"datetime"` // epoch ms
}

func NewBolusTreatment(dose float64, at time.Time) Treatment {
	return Treatment{
		EventType:    "Bolus",
		SubeventType: "Normal",
		Insulin:      dose,
		Datetime:     at.Unix() * 1000,
	}
}

// PostBolus registra un bolo. Cualquier no-2xx es error.
func (c *Client) PostBolus(ctx context.Context, dose float64, at time.Time) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	err := c.http.DoJSON(ctx, http.MethodPost, "/api/v1/treatments.json", nil, NewBolusTreatment(dose, at), nil)
	if err != nil {
		return c.wrap(err)
	}
	return nil
}

func (c *Client) wrap(err error) error {
	switch httpclient.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}
