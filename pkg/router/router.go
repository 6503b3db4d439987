package router

import (
	"bufio"
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type HandlerFunc = http.HandlerFunc

// Router wraps a gorilla/mux router with an access log
type Router struct {
	mux    *mux.Router
	logger *slog.Logger

	// Colorize prints a colored one-line access log for terminals instead of a structured record
	Colorize bool
}

func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		mux:    mux.NewRouter(),
		logger: logger,
	}
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) *mux.Route {
	return r.mux.HandleFunc(path, handler).Methods(method)
}

func (r *Router) GET(path string, handler HandlerFunc) *mux.Route {
	return r.register(http.MethodGet, path, handler)
}
func (r *Router) POST(path string, handler HandlerFunc) *mux.Route {
	return r.register(http.MethodPost, path, handler)
}
func (r *Router) PUT(path string, handler HandlerFunc) *mux.Route {
	return r.register(http.MethodPut, path, handler)
}
func (r *Router) DELETE(path string, handler HandlerFunc) *mux.Route {
	return r.register(http.MethodDelete, path, handler)
}

// Prefix mounts handler under a path prefix for every method
func (r *Router) Prefix(prefix string, handler http.Handler) *mux.Route {
	return r.mux.PathPrefix(prefix).Handler(handler)
}

// Var returns a path variable of the matched route
func Var(req *http.Request, name string) string {
	return mux.Vars(req)[name]
}

// ServeHTTP dispatches the request and writes one access log line
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	r.mux.ServeHTTP(lrw, req)

	duration := time.Since(start)
	if r.Colorize {
		log.Printf("%s[%s]%s %s%s%s %s %s%d%s %s(%v)%s",
			colorCyan, start.Format("2006-01-02 15:04:05"), colorReset,
			methodColor(req.Method), req.Method, colorReset,
			req.URL.Path,
			statusColor(lrw.statusCode), lrw.statusCode, colorReset,
			colorBlue, duration, colorReset,
		)
		return
	}
	r.logger.Info("http request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", lrw.statusCode,
		"duration", duration,
	)
}

// --- Start server ---

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (r *Router) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.logger.Info("shutting down server")
	return server.Shutdown(shutdownCtx)
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the access log
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// --- Color helpers ---
func statusColor(code int) string {
	switch {
	case code >= 100 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut, http.MethodPatch:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
