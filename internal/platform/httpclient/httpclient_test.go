package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestDoJSON_SendsHeadersAndDecodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("API-SECRET") != "hash" {
			t.Errorf("missing default header, got %q", r.Header.Get("API-SECRET"))
		}
		if r.Header.Get("X-Extra") != "1" {
			t.Errorf("missing extra header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": in["v"]})
	}))
	defer ts.Close()

	c, err := NewWithBaseURL(ts.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("NewWithBaseURL: %v", err)
	}
	c.Headers = map[string]string{"API-SECRET": "hash"}
	c.Limiter = rate.NewLimiter(rate.Inf, 1)

	var out struct {
		Echo string `json:"echo"`
	}
	err = c.DoJSON(context.Background(), http.MethodPost, "api/v1/x", map[string]string{"X-Extra": "1"}, map[string]string{"v": "ok"}, &out)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Echo != "ok" {
		t.Fatalf("expected echo=ok, got %q", out.Echo)
	}
}

func TestDoJSON_Non2xx_ReturnsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := New(time.Second)
	err := c.DoJSON(context.Background(), http.MethodGet, ts.URL, nil, nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%v)", StatusCode(err), err)
	}
}

func TestDoJSON_RelativePathWithoutBaseURL(t *testing.T) {
	c := New(0)
	if err := c.DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil); err == nil {
		t.Fatalf("expected error for relative path without BaseURL")
	}
}

func TestNewWithBaseURL_Invalid(t *testing.T) {
	if _, err := NewWithBaseURL("not a url", time.Second); err == nil {
		t.Fatalf("expected invalid base url error")
	}
}
