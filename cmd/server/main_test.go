package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/SymptomDesk/internal/catalog"
	"github.com/Skufu/SymptomDesk/internal/chat"
	"github.com/Skufu/SymptomDesk/internal/consultlog"
	"github.com/Skufu/SymptomDesk/internal/recommend"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

type fakeHistory struct {
	items []consultlog.Consultation
}

func (f fakeHistory) Recent(ctx context.Context, sessionID string, limit int) ([]consultlog.Consultation, error) {
	return f.items, nil
}

func testDeps() routerDeps {
	img := "https://img.example/med.png"
	engine := recommend.New(catalog.New([]catalog.Medicine{
		catalog.NewMedicine("Paracetamol 500mg Tablet", "Tablet", "Fever", "fever headache pain", "1 tablet every 6 hours", img, ""),
		catalog.NewMedicine("ORS Sachet", "Powder", "Gastroenteritis", "vomiting diarrhea dehydration", "", img, ""),
	}), nil)
	return routerDeps{
		engine: engine,
		chat:   chat.NewService(chat.NewMemoryStore(time.Hour), engine, chat.Options{}),
	}
}

func doJSON(router *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("ENABLE_DB", "true")
	t.Setenv("DATABASE_URL", "")
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigUsesDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MAX_CLUSTERS", "SESSION_TTL", "CORS_ORIGINS", "BOT_NAME", "CATALOG_PATH", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
	t.Setenv("ENABLE_DB", "false")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MaxClusters != 3 || cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CatalogPath != "data/medicines.json" || cfg.BotName != "Anna Balla" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("expected wildcard origin, got %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENABLE_DB", "false")
	t.Setenv("MAX_CLUSTERS", "2")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxClusters != 2 || cfg.SessionTTL != 90*time.Minute {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ENABLE_DB", "false")
	t.Setenv("MAX_CLUSTERS", "-4")
	t.Setenv("SESSION_TTL", "soon")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxClusters != 3 || cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected fallbacks, got %+v", cfg)
	}
}

func TestRouterHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := setupRouter(testDeps())

	w := doJSON(router, "GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRouterReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("no dependencies", func(t *testing.T) {
		w := doJSON(setupRouter(testDeps()), "GET", "/readyz", "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"db":"disabled"`) {
			t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("unhealthy db", func(t *testing.T) {
		deps := testDeps()
		deps.checks = map[string]HealthChecker{"db": fakeDB{err: errors.New("refused")}, "redis": fakeDB{}}
		w := doJSON(setupRouter(deps), "GET", "/readyz", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"status":"degraded"`) || !strings.Contains(body, `"redis":"ok"`) {
			t.Fatalf("unexpected body: %s", body)
		}
	})
}

// Ensure limitBodySize middleware allows small payloads and blocks large ones.
func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("12345"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("01234567890"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})
}

func TestRecommendationsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := setupRouter(testDeps())

	w := doJSON(router, "POST", "/api/recommendations", `{"text": "I have diarrhea and vomiting"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK       bool               `json:"ok"`
		Analysis recommend.Analysis `json:"analysis"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Analysis.Outcome != recommend.OutcomeRecommended {
		t.Fatalf("expected a recommendation, got %+v", resp)
	}
	if len(resp.Analysis.Recommendations) != 1 || resp.Analysis.Recommendations[0].Medicine.Name != "ORS Sachet" {
		t.Fatalf("unexpected recommendations: %+v", resp.Analysis.Recommendations)
	}
}

func TestRecommendationsValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := setupRouter(testDeps())

	w := doJSON(router, "POST", "/api/recommendations", `{"text": "  ", "maxClusters": 50}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for validation failure, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "validation_failed") || !strings.Contains(body, "text is required") || !strings.Contains(body, "maxClusters") {
		t.Fatalf("expected validation error response, got %s", body)
	}

	w = doJSON(router, "POST", "/api/recommendations", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", w.Code)
	}
}

func TestChatFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := setupRouter(testDeps())

	w := doJSON(router, "GET", "/api/chat", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Welcome") {
		t.Fatalf("unexpected welcome %d: %s", w.Code, w.Body.String())
	}
	var sid *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			sid = c
		}
	}
	if sid == nil {
		t.Fatal("expected a session cookie")
	}

	w = doJSON(router, "POST", "/api/chat", `{"message": "my name is jane"}`, sid)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Nice to meet you") {
		t.Fatalf("unexpected name reply %d: %s", w.Code, w.Body.String())
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatal("existing session should not get a new cookie")
	}

	w = doJSON(router, "POST", "/api/chat", `{"message": "fever and headache"}`, sid)
	if !strings.Contains(w.Body.String(), "Paracetamol 500mg Tablet") {
		t.Fatalf("expected a recommendation, got %s", w.Body.String())
	}

	w = doJSON(router, "POST", "/api/chat", `{"message": "   "}`, sid)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "empty_message") {
		t.Fatalf("expected empty_message, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(router, "POST", "/api/chat/reset", "", sid)
	if w.Code != http.StatusOK {
		t.Fatalf("expected reset to succeed, got %d", w.Code)
	}

	w = doJSON(router, "GET", "/api/chat", "", sid)
	var resp struct {
		Stage    string         `json:"stage"`
		Messages []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stage != string(chat.StageAwaitingName) || len(resp.Messages) != 1 {
		t.Fatalf("expected a fresh session, got %+v", resp)
	}
}

func TestConsultationsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := doJSON(setupRouter(testDeps()), "GET", "/api/consultations", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "db_disabled") {
		t.Fatalf("expected db_disabled, got %d: %s", w.Code, w.Body.String())
	}

	deps := testDeps()
	deps.history = fakeHistory{items: []consultlog.Consultation{}}
	w = doJSON(setupRouter(deps), "GET", "/api/consultations", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"consultations":[]`) {
		t.Fatalf("expected an empty list, got %d: %s", w.Code, w.Body.String())
	}

	deps.history = fakeHistory{items: []consultlog.Consultation{{SessionID: "s", Outcome: recommend.OutcomeNoMatch}}}
	w = doJSON(setupRouter(deps), "GET", "/api/consultations", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "no_match") {
		t.Fatalf("unexpected history response %d: %s", w.Code, w.Body.String())
	}
}

func TestSessionCookieRejectsMalformedID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := setupRouter(testDeps())

	w := doJSON(router, "GET", "/api/chat", "", &http.Cookie{Name: sessionCookie, Value: "not-a-uuid"})
	if len(w.Result().Cookies()) != 1 {
		t.Fatal("expected a replacement session cookie")
	}
}
