package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/SymptomDesk/internal/chat"
	"github.com/Skufu/SymptomDesk/internal/consultlog"
	"github.com/Skufu/SymptomDesk/internal/platform/logger"
	"github.com/Skufu/SymptomDesk/internal/recommend"
)

const (
	sessionCookie    = "symptomdesk_sid"
	maxClustersLimit = 10
	historyLimit     = 20
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type consultationHistory interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]consultlog.Consultation, error)
}

type routerDeps struct {
	engine      *recommend.Engine
	chat        *chat.Service
	history     consultationHistory
	log         *logger.Logger
	maxClusters int
	corsOrigins []string
	staticRoot  string
	checks      map[string]HealthChecker
}

type chatRequest struct {
	Message string `json:"message"`
}

type recommendRequest struct {
	Text        string `json:"text"`
	MaxClusters int    `json:"maxClusters"`
}

func setupRouter(d routerDeps) *gin.Engine {
	if d.log == nil {
		d.log = logger.Nop()
	}
	if d.maxClusters < 1 {
		d.maxClusters = recommend.DefaultMaxClusters
	}
	if len(d.corsOrigins) == 0 {
		d.corsOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		requestLogger(d.log),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins:     d.corsOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: !containsString(d.corsOrigins, "*"),
			MaxAge:           12 * time.Hour,
		}),
	)

	if d.staticRoot != "" {
		router.Static("/static", d.staticRoot)
		router.StaticFile("/", filepath.Join(d.staticRoot, "index.html"))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyHandler(d.checks))

	api := router.Group("/api")
	api.POST("/recommendations", recommendHandler(d))
	if d.chat != nil {
		api.GET("/chat", chatHistoryHandler(d))
		api.POST("/chat", chatReplyHandler(d))
		api.POST("/chat/reset", chatResetHandler(d))
	}
	api.GET("/consultations", consultationsHandler(d))

	return router
}

func readyHandler(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(checks) == 0 {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				body[name] = "unhealthy: " + err.Error()
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		if _, ok := checks["db"]; !ok {
			body["db"] = "disabled"
		}
		c.JSON(code, body)
	}
}

func recommendHandler(d routerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recommendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_payload"})
			return
		}
		if problems := validateRecommend(req); len(problems) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "validation_failed", "details": problems})
			return
		}
		maxClusters := req.MaxClusters
		if maxClusters == 0 {
			maxClusters = d.maxClusters
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "analysis": d.engine.Analyze(req.Text, maxClusters)})
	}
}

func validateRecommend(req recommendRequest) []string {
	problems := []string{}
	if strings.TrimSpace(req.Text) == "" {
		problems = append(problems, "text is required")
	}
	if req.MaxClusters < 0 || req.MaxClusters > maxClustersLimit {
		problems = append(problems, "maxClusters must be between 0 and 10")
	}
	return problems
}

func chatHistoryHandler(d routerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := d.chat.Open(c.Request.Context(), sessionID(c))
		if err != nil {
			storeFailure(c, d.log, err)
			return
		}
		c.JSON(http.StatusOK, sessionBody(sess))
	}
}

func chatReplyHandler(d routerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_payload"})
			return
		}
		sess, err := d.chat.Reply(c.Request.Context(), sessionID(c), req.Message)
		if errors.Is(err, chat.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "empty_message"})
			return
		}
		if err != nil {
			storeFailure(c, d.log, err)
			return
		}
		c.JSON(http.StatusOK, sessionBody(sess))
	}
}

func chatResetHandler(d routerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.chat.Reset(c.Request.Context(), sessionID(c)); err != nil {
			storeFailure(c, d.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func consultationsHandler(d routerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.history == nil {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "db_disabled"})
			return
		}
		items, err := d.history.Recent(c.Request.Context(), sessionID(c), historyLimit)
		if err != nil {
			d.log.Warn("consultation history failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "db_unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "consultations": items})
	}
}

func sessionBody(sess *chat.Session) gin.H {
	messages := sess.History
	if messages == nil {
		messages = []chat.Message{}
	}
	return gin.H{
		"ok":       true,
		"stage":    sess.Stage,
		"userName": sess.UserName,
		"messages": messages,
	}
}

func storeFailure(c *gin.Context, log *logger.Logger, err error) {
	log.Warn("session store failed", "error", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "session_unavailable"})
}

// sessionID returns the visitor's session id, issuing a new cookie when the
// request has none or carries a malformed one.
func sessionID(c *gin.Context) string {
	if raw, err := c.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	return id
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// detectStaticRoot looks for the chat widget near the working directory and
// returns "" when there is none to serve.
func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	candidates := []string{
		filepath.Join(startDir, "web"),
		startDir,
		filepath.Join(filepath.Dir(startDir), "web"),
		filepath.Join(filepath.Dir(filepath.Dir(startDir)), "web"),
	}

	for _, dir := range candidates {
		if fileExists(filepath.Join(dir, "index.html")) {
			return dir
		}
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
