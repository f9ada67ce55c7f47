package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caiqy/prizewheel/internal/config"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func TestSetupWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := Setup(config.LoggingConfig{Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() {
		_ = closer.Close()
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	log.Debug("hello rotation")
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		t.Fatalf("read log file: %v", errRead)
	}
	if !strings.Contains(string(data), "hello rotation") {
		t.Fatalf("log file missing entry: %q", data)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if _, err := Setup(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestGinLoggerSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/ping", func(c *gin.Context) {
		if _, ok := c.Get("requestID"); !ok {
			t.Errorf("request id missing from context")
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if !strings.Contains(buf.String(), "request_id=req-123") {
		t.Fatalf("log line missing request id: %q", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Header().Get(RequestIDHeader))
	}
}
