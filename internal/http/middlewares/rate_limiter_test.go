package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(rl *RateLimiter, keyFn func(*gin.Context) string, userID string) *gin.Engine {
	r := gin.New()

	if userID != "" {
		r.Use(func(c *gin.Context) {
			c.Set(ctxUserIDKey, userID)
			c.Next()
		})
	}

	r.Use(rl.RateLimiterMiddleware(keyFn))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

func get(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	r := limitedRouter(rl, KeyByIP, "")

	for i := 0; i < 3; i++ {
		if w := get(r, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}

	w := get(r, "10.0.0.1")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	if w.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}

	// a different client has its own window
	if w := get(r, "10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("other client: status = %d", w.Code)
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	r := limitedRouter(rl, KeyByIP, "")

	if w := get(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if w := get(r, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	time.Sleep(30 * time.Millisecond)

	if w := get(r, "10.0.0.1"); w.Code != http.StatusOK {
		t.Errorf("after window: status = %d", w.Code)
	}
}

func TestKeyByUserOrIPBucketsPerUser(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	alice := limitedRouter(rl, KeyByUserOrIP, "u-alice")
	bob := limitedRouter(rl, KeyByUserOrIP, "u-bob")

	// same IP, different users: separate budgets
	if w := get(alice, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("alice: status = %d", w.Code)
	}

	if w := get(bob, "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("bob: status = %d", w.Code)
	}

	// the same user is capped across IPs
	if w := get(alice, "10.0.0.9"); w.Code != http.StatusTooManyRequests {
		t.Errorf("alice second request: status = %d, want 429", w.Code)
	}
}

func TestKeyByUserOrIPFallsBackToIP(t *testing.T) {
	r := gin.New()

	var key string

	r.Use(func(c *gin.Context) {
		key = KeyByUserOrIP(c)
		c.Next()
	})
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "10.0.0.7")

	if key != "10.0.0.7" {
		t.Errorf("key = %q, want the client IP", key)
	}
}
