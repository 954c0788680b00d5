package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/presence-analyzer/internal/cache"
	"github.com/hitoshi/presence-analyzer/internal/metrics"
	"github.com/hitoshi/presence-analyzer/internal/middleware"
	"github.com/hitoshi/presence-analyzer/internal/model"
	"github.com/hitoshi/presence-analyzer/internal/presence"
	"github.com/hitoshi/presence-analyzer/internal/web"
)

// newTestRouter は実際のサービスとテスト用CSVでルーター全体を組み立てる。
func newTestRouter(t *testing.T, rl *middleware.RateLimiter) (http.Handler, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	c := cache.New(cache.Options{Recorder: collector})
	svc := presence.NewService(c, presence.ServiceConfig{
		DataPath:     filepath.Join("..", "presence", "testdata", "test_data.csv"),
		CacheTimeout: time.Minute,
	}, logger, collector)

	renderer, err := web.NewRenderer(web.MainMenu())
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	users := &mockUserDirectory{
		byIDFn: func(ctx context.Context) (map[int]model.User, error) {
			return map[int]model.User{10: {ID: 10, Name: "Maciej Z."}}, nil
		},
	}

	router := NewRouter(&RouterDeps{
		CORSAllowedOrigin: "*",
		RateLimiter:       rl,
		StatusRecorder:    collector,
		Logger:            logger,
		PresenceService:   svc,
		Users:             users,
		Pages:             renderer,
		MetricsHandler:    metrics.Handler(reg),
	})
	return router, reg
}

func TestRouter_APIEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	tests := []struct {
		path     string
		wantCode int
		wantLen  int
	}{
		{"/api/v1/users", http.StatusOK, 2},
		{"/api/v1/mean_time_weekday/10", http.StatusOK, 7},
		{"/api/v1/presence_weekday/10", http.StatusOK, 8},
		{"/api/v1/presence_start_end/10", http.StatusOK, 3},
		{"/api/v1/presence_start_end/11", http.StatusOK, 2},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(router, tt.path)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			var body []json.RawMessage
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if len(body) != tt.wantLen {
				t.Errorf("len(body) = %d, want %d", len(body), tt.wantLen)
			}
		})
	}
}

func TestRouter_Users_EnrichedNames(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := serve(router, "/api/v1/users")

	want := `[{"user_id":10,"name":"Maciej Z."},{"user_id":11,"name":"User 11"}]` + "\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestRouter_MeanTimeWeekday_Values(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := serve(router, "/api/v1/mean_time_weekday/10")

	want := `[["Mon",0],["Tue",30054],["Wed",24465],["Thu",23705],["Fri",0],["Sat",0],["Sun",0]]` + "\n"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestRouter_UnknownUser_404EmptyBody(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, path := range []string{
		"/api/v1/mean_time_weekday/0",
		"/api/v1/presence_weekday/abc",
		"/api/v1/presence_start_end/12",
	} {
		w := serve(router, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("%s: body = %q, want empty", path, w.Body.String())
		}
	}
}

func TestRouter_Index_RedirectsToPresenceWeekday(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := serve(router, "/")

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/presence-weekday" {
		t.Errorf("Location = %q, want /presence-weekday", loc)
	}
}

func TestRouter_Pages(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, p := range web.Pages {
		w := serve(router, p.URL)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", p.URL, w.Code)
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
			t.Errorf("%s: Content-Type = %q", p.URL, w.Header().Get("Content-Type"))
		}
	}
}

func TestRouter_StaticAssets(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := serve(router, "/static/js/main.js")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := serve(router, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != `{"status":"ok"}`+"\n" {
		t.Errorf("body = %s", got)
	}
}

func TestRouter_Metrics_ExposesCounters(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	serve(router, "/api/v1/users")
	serve(router, "/api/v1/users")

	w := serve(router, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := w.Body.String()
	for _, name := range []string{
		"presence_cache_hits_total 1",
		"presence_cache_misses_total 1",
		"presence_rows_accepted_total 7",
		"presence_rows_skipped_total 2",
		`presence_http_status_total{status_code="200"} 2`,
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}

func TestRouter_UnknownRoute_404(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := serve(router, "/api/v2/users")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/users", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header")
	}
}

func TestRouter_RateLimit_ExcludesHealth(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.001, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()
	router, _ := newTestRouter(t, rl)

	if w := serve(router, "/api/v1/users"); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", w.Code)
	}
	if w := serve(router, "/api/v1/users"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", w.Code)
	}
	if w := serve(router, "/health"); w.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", w.Code)
	}
}
