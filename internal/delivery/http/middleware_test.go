package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blendwise/backend/internal/ratelimit"
)

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		want           bool
	}{
		{
			name:           "exact match",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"http://localhost:3000"},
			want:           true,
		},
		{
			name:           "wildcard match",
			origin:         "https://app.blendwise.io",
			allowedOrigins: []string{"https://*"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches second",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"https://app.blendwise.io", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "no match",
			origin:         "http://evil.com",
			allowedOrigins: []string{"http://localhost:3000"},
			want:           false,
		},
		{
			name:           "empty origin",
			origin:         "",
			allowedOrigins: []string{"http://localhost:3000"},
			want:           false,
		},
		{
			name:           "empty allowed list",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{},
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isAllowedOrigin(tt.origin, tt.allowedOrigins)
			if got != tt.want {
				t.Errorf("isAllowedOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		method         string
		wantStatus     int
		wantCORS       bool
	}{
		{
			name:           "allowed origin - GET request",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"http://localhost:3000"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORS:       true,
		},
		{
			name:           "allowed origin - OPTIONS preflight",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"http://localhost:3000"},
			method:         "OPTIONS",
			wantStatus:     http.StatusNoContent,
			wantCORS:       true,
		},
		{
			name:           "disallowed origin",
			origin:         "http://evil.com",
			allowedOrigins: []string{"http://localhost:3000"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORS:       false,
		},
		{
			name:           "no origin header",
			origin:         "",
			allowedOrigins: []string{"http://localhost:3000"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORS:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSMiddleware(tt.allowedOrigins))
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "OK")
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}

			corsHeader := w.Header().Get("Access-Control-Allow-Origin")
			if tt.wantCORS {
				if corsHeader != tt.origin {
					t.Errorf("Access-Control-Allow-Origin = %s, want %s", corsHeader, tt.origin)
				}
				if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
					t.Errorf("Access-Control-Allow-Credentials not set to true")
				}
			} else if corsHeader != "" {
				t.Errorf("Access-Control-Allow-Origin should not be set for disallowed origin, got %s", corsHeader)
			}
		})
	}
}

// rateLimitedRouter wires the middleware in front of a trivial handler.
func rateLimitedRouter(limiter *ratelimit.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(RateLimitMiddleware(limiter))
	router.POST("/search", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allowed request carries allowance headers", func(t *testing.T) {
		limiter := ratelimit.New(10, time.Hour)
		router := rateLimitedRouter(limiter)

		req := httptest.NewRequest("POST", "/search", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("X-RateLimit-Limit = %q, want 10", got)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != "9" {
			t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
		}
	})

	t.Run("over-limit request is rejected with retry hint", func(t *testing.T) {
		limiter := ratelimit.New(2, time.Hour)
		router := rateLimitedRouter(limiter)

		var w *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest("POST", "/search", nil)
			w = httptest.NewRecorder()
			router.ServeHTTP(w, req)
		}

		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusTooManyRequests)
		}
		if got := w.Header().Get("Retry-After"); got != "3600" {
			t.Errorf("Retry-After = %q, want 3600", got)
		}
		if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
			t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
		}

		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if body["error"] == nil {
			t.Error("expected error field in 429 response")
		}
		if body["retryAfter"] != float64(3600) {
			t.Errorf("retryAfter = %v, want 3600", body["retryAfter"])
		}
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		limiter := ratelimit.New(1, time.Hour)
		router := rateLimitedRouter(limiter)

		first := httptest.NewRequest("POST", "/search", nil)
		first.Header.Set("X-Forwarded-For", "10.0.0.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, first)
		if w.Code != http.StatusOK {
			t.Fatalf("first client status = %d, want %d", w.Code, http.StatusOK)
		}

		second := httptest.NewRequest("POST", "/search", nil)
		second.Header.Set("X-Forwarded-For", "10.0.0.2")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, second)
		if w.Code != http.StatusOK {
			t.Errorf("second client status = %d, want %d", w.Code, http.StatusOK)
		}

		repeat := httptest.NewRequest("POST", "/search", nil)
		repeat.Header.Set("X-Forwarded-For", "10.0.0.1")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, repeat)
		if w.Code != http.StatusTooManyRequests {
			t.Errorf("repeat client status = %d, want %d", w.Code, http.StatusTooManyRequests)
		}
	})

	t.Run("forwarded chain uses the first hop", func(t *testing.T) {
		limiter := ratelimit.New(1, time.Hour)
		router := rateLimitedRouter(limiter)

		for i, forwarded := range []string{
			"203.0.113.5, 70.41.3.18, 150.172.238.178",
			"203.0.113.5",
		} {
			req := httptest.NewRequest("POST", "/search", nil)
			req.Header.Set("X-Forwarded-For", forwarded)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			// Same originating client, so only the first request passes.
			want := http.StatusOK
			if i > 0 {
				want = http.StatusTooManyRequests
			}
			if w.Code != want {
				t.Errorf("request %d status = %d, want %d", i, w.Code, want)
			}
		}
	})
}
