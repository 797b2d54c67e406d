package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"salonbook/internal/config"

	"github.com/stretchr/testify/assert"
)

func authTestConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "catalog-key", Name: "storefront", Permissions: []string{"read:catalog", "read:availability"}},
				{Key: "admin-key", Name: "back-office"},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 100, Burst: 200},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doAuthRequest(auth *HTTPAuth, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	rec := httptest.NewRecorder()
	auth.Wrap(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestHTTPAuth(t *testing.T) {
	auth := NewHTTPAuth(authTestConfig())

	t.Run("ValidKey", func(t *testing.T) {
		rec := doAuthRequest(auth, http.MethodGet, "/api/v1/services", "catalog-key")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MissingKey", func(t *testing.T) {
		rec := doAuthRequest(auth, http.MethodGet, "/api/v1/services", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		rec := doAuthRequest(auth, http.MethodGet, "/api/v1/services", "wrong-key")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		rec := doAuthRequest(auth, http.MethodPost, "/api/v1/reservations", "catalog-key")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("EmptyPermissionsAllowAll", func(t *testing.T) {
		rec := doAuthRequest(auth, http.MethodPost, "/api/v1/reservations", "admin-key")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doAuthRequest(auth, http.MethodPost, "/api/v1/export", "admin-key")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("RatingsReadVsWrite", func(t *testing.T) {
		cfg := authTestConfig()
		cfg.Auth.APIKeys = append(cfg.Auth.APIKeys, config.APIClientKey{
			Key: "ratings-reader", Permissions: []string{"read:ratings"},
		})
		scoped := NewHTTPAuth(cfg)

		rec := doAuthRequest(scoped, http.MethodGet, "/api/v1/ratings", "ratings-reader")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doAuthRequest(scoped, http.MethodPost, "/api/v1/ratings", "ratings-reader")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHTTPAuthDisabled(t *testing.T) {
	cfg := authTestConfig()
	cfg.Auth.Enabled = false
	auth := NewHTTPAuth(cfg)

	rec := doAuthRequest(auth, http.MethodGet, "/api/v1/services", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAuthRateLimit(t *testing.T) {
	cfg := authTestConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 2}
	auth := NewHTTPAuth(cfg)

	var limited bool
	for i := 0; i < 5; i++ {
		rec := doAuthRequest(auth, http.MethodGet, "/api/v1/services", "catalog-key")
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "burst of requests should hit the rate limit")
}

func TestHTTPAuthRateLimitPerKey(t *testing.T) {
	cfg := authTestConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	auth := NewHTTPAuth(cfg)

	rec := doAuthRequest(auth, http.MethodGet, "/api/v1/services", "catalog-key")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doAuthRequest(auth, http.MethodGet, "/api/v1/services", "catalog-key")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different key has its own limiter.
	rec = doAuthRequest(auth, http.MethodGet, "/api/v1/services", "admin-key")
	assert.Equal(t, http.StatusOK, rec.Code)
}
