package router

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_PathVariablesAndMethods(t *testing.T) {
	r := New(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	r.GET("/api/v1/exports/{id}/logs", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("logs:" + Var(req, "id")))
	})
	r.GET("/api/v1/exports/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("batch:" + Var(req, "id")))
	})

	tests := []struct {
		method, path string
		code         int
		body         string
	}{
		{http.MethodGet, "/api/v1/exports/abc/logs", http.StatusOK, "logs:abc"},
		{http.MethodGet, "/api/v1/exports/abc", http.StatusOK, "batch:abc"},
		{http.MethodPost, "/api/v1/exports/abc", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.code, rr.Code, tt.path)
		if tt.body != "" {
			assert.Equal(t, tt.body, rr.Body.String())
		}
	}
}

func TestRouter_StructuredAccessLog(t *testing.T) {
	var buf bytes.Buffer
	r := New(slog.New(slog.NewJSONHandler(&buf, nil)))
	r.POST("/things", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/things", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/things", entry["path"])
	assert.Equal(t, float64(http.StatusCreated), entry["status"])
}

func TestRouter_ColorAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	r := New(nil)
	r.Colorize = true
	r.GET("/x", func(w http.ResponseWriter, _ *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	line := buf.String()
	assert.True(t, strings.Contains(line, colorGreen+"GET"+colorReset))
	assert.Contains(t, line, colorGreen+"200"+colorReset)
}

func TestRouter_Prefix(t *testing.T) {
	r := New(nil)
	r.Prefix("/swagger/", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(req.URL.Path))
	}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, "/swagger/index.html", rr.Body.String())
}
