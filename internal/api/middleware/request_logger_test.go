package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func serve(t *testing.T, handler echo.HandlerFunc) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/widgets", handler)

	req := httptest.NewRequest(http.MethodGet, "/widgets", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	e.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	return entry
}

func TestRequestLogger_Success(t *testing.T) {
	entry := serve(t, func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	if entry["level"] != "info" {
		t.Errorf("expected info level, got %v", entry["level"])
	}
	if entry["status"] != float64(200) || entry["method"] != "GET" || entry["uri"] != "/widgets" {
		t.Errorf("unexpected fields: %v", entry)
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("expected request id to be logged, got %v", entry["request_id"])
	}
}

func TestRequestLogger_ClientError(t *testing.T) {
	entry := serve(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "taken")
	})

	if entry["level"] != "warn" || entry["status"] != float64(409) {
		t.Errorf("expected warn/409, got %v", entry)
	}
}

func TestRequestLogger_ServerError(t *testing.T) {
	entry := serve(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	if entry["level"] != "error" || entry["status"] != float64(500) {
		t.Errorf("expected error/500, got %v", entry)
	}
}
