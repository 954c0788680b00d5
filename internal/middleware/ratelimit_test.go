package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/presence-analyzer/internal/model"
)

func newLimitedHandler(rl *RateLimiter, calls *int) http.Handler {
	return rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	}))
}

func requestFrom(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 5, CleanupInterval: time.Minute})
	defer rl.Stop()

	calls := 0
	handler := newLimitedHandler(rl, &calls)

	// バースト内の5リクエストは全て通る
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("10.0.0.1:5000"))
		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusOK)
		}
	}

	if calls != 5 {
		t.Errorf("handler call count = %d, want 5", calls)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.5, Burst: 2, CleanupInterval: time.Minute})
	defer rl.Stop()

	calls := 0
	handler := newLimitedHandler(rl, &calls)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, requestFrom("10.0.0.1:5000"))
	}

	resp := last.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if calls != 2 {
		t.Errorf("handler call count = %d, want 2", calls)
	}

	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After is not an integer: %q", resp.Header.Get("Retry-After"))
	}
	if retryAfter != 2 {
		t.Errorf("Retry-After = %d, want 2", retryAfter)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	calls := 0
	handler := newLimitedHandler(rl, &calls)

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, requestFrom("10.0.0.1:5000"))
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, requestFrom("10.0.0.1:6000"))
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, requestFrom("10.0.0.2:5000"))

	if w1.Code != http.StatusOK {
		t.Errorf("first client first request: status = %d, want 200", w1.Code)
	}
	// ポートが違っても同じIPは同じリミッターを共有する
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("first client second request: status = %d, want 429", w2.Code)
	}
	if w3.Code != http.StatusOK {
		t.Errorf("second client: status = %d, want 200", w3.Code)
	}
	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount() = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 5, CleanupInterval: time.Hour})
	defer rl.Stop()

	calls := 0
	handler := newLimitedHandler(rl, &calls)
	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:5000"))

	if rl.LimiterCount() != 1 {
		t.Fatalf("LimiterCount() = %d, want 1", rl.LimiterCount())
	}

	// TTL（CleanupIntervalの2倍）以内は残る
	rl.cleanup(time.Now().Add(90 * time.Minute))
	if rl.LimiterCount() != 1 {
		t.Errorf("LimiterCount() after early cleanup = %d, want 1", rl.LimiterCount())
	}

	rl.cleanup(time.Now().Add(3 * time.Hour))
	if rl.LimiterCount() != 0 {
		t.Errorf("LimiterCount() after cleanup = %d, want 0", rl.LimiterCount())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestRateLimiterConfigPerMinute(t *testing.T) {
	tests := []struct {
		perMinute int
		wantRate  float64
		wantBurst int
	}{
		{120, 2, 120},
		{60, 1, 60},
		{0, 2, 120},
	}

	for _, tt := range tests {
		cfg := RateLimiterConfigPerMinute(tt.perMinute)
		if float64(cfg.Rate) != tt.wantRate {
			t.Errorf("perMinute=%d: Rate = %v, want %v", tt.perMinute, cfg.Rate, tt.wantRate)
		}
		if cfg.Burst != tt.wantBurst {
			t.Errorf("perMinute=%d: Burst = %d, want %d", tt.perMinute, cfg.Burst, tt.wantBurst)
		}
		if cfg.CleanupInterval != 5*time.Minute {
			t.Errorf("perMinute=%d: CleanupInterval = %v, want 5m", tt.perMinute, cfg.CleanupInterval)
		}
	}
}
