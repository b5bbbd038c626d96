package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/k4ledger/internal/domain/dto"
)

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		handler gin.HandlerFunc
		want    int
		message string
	}{
		{
			name:    "plain error becomes 500",
			handler: func(c *gin.Context) { _ = c.Error(assertErr{}) },
			want:    http.StatusInternalServerError,
			message: "Internal server error",
		},
		{
			name: "error response keeps status",
			handler: func(c *gin.Context) {
				c.Status(http.StatusNotFound)
				_ = c.Error(dto.NewErrorResponse("no report", nil))
			},
			want:    http.StatusNotFound,
			message: "no report",
		},
		{
			name: "written response untouched",
			handler: func(c *gin.Context) {
				c.String(http.StatusOK, "ok")
				_ = c.Error(assertErr{})
			},
			want: http.StatusOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler)
			r.GET("/", tc.handler)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			if w.Code != tc.want {
				t.Fatalf("code=%d, want %d", w.Code, tc.want)
			}
			if tc.message == "" {
				return
			}
			var body dto.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Message != tc.message {
				t.Fatalf("message=%q, want %q", body.Message, tc.message)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != 500 {
		t.Fatalf("code=%d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	cases := []struct {
		name   string
		reqs   int
		lim    int
		expect int
	}{
		{name: "within limit", reqs: 2, lim: 3, expect: http.StatusOK},
		{name: "at limit", reqs: 3, lim: 3, expect: http.StatusOK},
		{name: "exceed limit", reqs: 5, lim: 3, expect: http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.Use(NewRateLimiter(tc.lim, time.Minute))
			r.GET("/", func(c *gin.Context) { c.String(200, "ok") })
			var last int
			for i := 0; i < tc.reqs; i++ {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
				last = w.Code
			}
			if last != tc.expect {
				t.Fatalf("expected %d, got %d", tc.expect, last)
			}
		})
	}
}

func TestLimiter_RefillsPerWindow(t *testing.T) {
	l := newLimiter(1, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if !l.allow("10.0.0.1", now) {
		t.Fatalf("first request rejected")
	}
	if l.allow("10.0.0.1", now.Add(time.Second)) {
		t.Fatalf("second request in window allowed")
	}
	if !l.allow("10.0.0.2", now.Add(time.Second)) {
		t.Fatalf("other client rejected")
	}
	if !l.allow("10.0.0.1", now.Add(2*time.Minute)) {
		t.Fatalf("request after window rejected")
	}
}

func TestLimiter_Evict(t *testing.T) {
	l := newLimiter(5, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.allow("10.0.0.1", now)
	l.allow("10.0.0.2", now.Add(90*time.Second))

	if n := l.evict(now.Add(2 * time.Minute)); n != 0 {
		t.Fatalf("evicted %d clients within the idle period", n)
	}
	if n := l.evict(now.Add(3 * time.Minute)); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, ok := l.visitors["10.0.0.1"]; ok {
		t.Fatalf("stale client kept")
	}
	if _, ok := l.visitors["10.0.0.2"]; !ok {
		t.Fatalf("recent client dropped")
	}
}

func TestLimiter_JanitorStops(t *testing.T) {
	l := newLimiter(1, time.Minute)
	l.allow("10.0.0.1", time.Now().Add(-time.Hour))
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		l.janitor(5*time.Millisecond, stop)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		l.mu.Lock()
		n := len(l.visitors)
		l.mu.Unlock()
		if n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("janitor did not evict the idle client")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor did not stop")
	}
}

func TestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	var deadline bool
	r.GET("/", func(c *gin.Context) {
		_, deadline = c.Request.Context().Deadline()
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !deadline {
		t.Fatalf("no deadline on request context")
	}
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("code=%d", w.Code)
	}
}

func TestAbortWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/err", func(c *gin.Context) {
		AbortWithError(c, http.StatusBadRequest, "bad stuff", assertErr{})
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/err", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected content-type set")
	}
}
