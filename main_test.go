package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qurilish/config"
	"qurilish/database"
)

func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.ExpiresIn = 1
	cfg.Media.Dir = t.TempDir()
	cfg.Media.MaxImageWidth = 800
	cfg.RateLimit.PerMinute = 600
	cfg.RateLimit.Burst = 100

	return newApplication(cfg, zap.NewNop(), database.NewDatabase(db)).router()
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func signUp(t *testing.T, router http.Handler) string {
	t.Helper()

	rr := doJSON(t, router, http.MethodPost, "/api/auth/signUp", "", map[string]string{
		"firstName": "Aziz",
		"lastName":  "Karimov",
		"email":     "aziz@example.com",
		"password":  "Parol#2025",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Token struct {
			Token string `json:"token"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token.Token)
	return resp.Token.Token
}

func TestHealth(t *testing.T) {
	router := newTestApp(t)

	rr := doJSON(t, router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestApp(t)

	for _, path := range []string{"/api/contracts", "/api/clients", "/api/units", "/api/dashboard", "/api/auth/me"} {
		rr := doJSON(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := doJSON(t, router, http.MethodGet, "/api/contracts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignUpSignInAndMe(t *testing.T) {
	router := newTestApp(t)
	token := signUp(t, router)

	rr := doJSON(t, router, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "aziz@example.com")

	// Повторная регистрация с тем же email
	rr = doJSON(t, router, http.MethodPost, "/api/auth/signUp", "", map[string]string{
		"firstName": "Aziz",
		"lastName":  "Karimov",
		"email":     "AZIZ@example.com",
		"password":  "Parol#2025",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/auth/signIn", "", map[string]string{
		"email":    "aziz@example.com",
		"password": "Parol#2025",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/auth/signIn", "", map[string]string{
		"email":    "aziz@example.com",
		"password": "Boshqa#2025",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignUpValidation(t *testing.T) {
	router := newTestApp(t)

	rr := doJSON(t, router, http.MethodPost, "/api/auth/signUp", "", map[string]string{
		"firstName": "Aziz",
		"lastName":  "Karimov",
		"email":     "aziz@example.com",
		"password":  "parolparol",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "validation")
}

func TestContractFlowOverHTTP(t *testing.T) {
	router := newTestApp(t)
	token := signUp(t, router)

	rr := doJSON(t, router, http.MethodPost, "/api/cities", token, map[string]string{"name": "Toshkent"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var city struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &city))

	rr = doJSON(t, router, http.MethodGet, "/api/contracts?status=9", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/contracts/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/contracts/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/dashboard", token, nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestApp(t)
	doJSON(t, router, http.MethodGet, "/health", "", nil)

	rr := doJSON(t, router, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "qurilish_http_requests_total")
}
