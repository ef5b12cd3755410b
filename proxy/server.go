package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"r2tabs/log"
)

const (
	fetchFailedBody      = "Error fetching ZIP file"
	extractionFailedBody = "Error extracting WASM file"
)

// HTTPHandlers exposes a Fetcher over HTTP.
type HTTPHandlers struct {
	fetcher *Fetcher
}

// NewHTTPHandlers creates HTTP handlers for the fetcher.
func NewHTTPHandlers(f *Fetcher) *HTTPHandlers {
	return &HTTPHandlers{fetcher: f}
}

// RegisterRoutes registers the proxy endpoints on mux.
func (h *HTTPHandlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /wasm/{version}", h.HandleWasm)
	mux.HandleFunc("OPTIONS /wasm/{version}", h.HandlePreflight)
	mux.HandleFunc("GET /health", h.HandleHealth)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Length, X-Request-Id")
}

// HandlePreflight answers CORS preflight requests.
func (h *HTTPHandlers) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles GET /health
func (h *HTTPHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// HandleWasm handles GET /wasm/{version}. The status line is only committed
// once the first payload byte is available; a failure after that point
// aborts the connection.
func (h *HTTPHandlers) HandleWasm(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	version := r.PathValue("version")
	start := time.Now()
	setCORS(w)
	w.Header().Set("X-Request-Id", requestID)
	log.InfoLog.Printf("[%s] GET /wasm/%s", requestID, version)

	payload, err := h.fetcher.Open(r.Context(), version)
	if err != nil {
		writeFailure(w, requestID, err)
		return
	}
	defer payload.Close()

	lw := &lazyResponseWriter{w: w, size: payload.Size}
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, readErr := payload.Read(buf)
		if n > 0 {
			if _, err := lw.Write(buf[:n]); err != nil {
				log.WarningLog.Printf("[%s] client went away after %d bytes: %v", requestID, total, err)
				panic(http.ErrAbortHandler)
			}
			total += int64(n)
		}
		if readErr == nil {
			continue
		}
		if readErr == io.EOF {
			break
		}
		if !lw.started {
			writeFailure(w, requestID, readErr)
			return
		}
		log.ErrorLog.Printf("[%s] aborting stream after %d bytes: %v", requestID, total, readErr)
		panic(http.ErrAbortHandler)
	}

	if !lw.started {
		// Empty entry: still a successful response.
		lw.commit()
	}
	log.InfoLog.Printf("[%s] served %s (%d bytes) in %s", requestID, payload.Entry, total, time.Since(start))
}

func writeFailure(w http.ResponseWriter, requestID string, err error) {
	body := extractionFailedBody
	if errors.Is(err, ErrFetchFailed) {
		body = fetchFailedBody
	}
	log.ErrorLog.Printf("[%s] %s: %v", requestID, body, err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(body))
}

// lazyResponseWriter defers the 200 status until the first write.
type lazyResponseWriter struct {
	w       http.ResponseWriter
	size    int64
	started bool
}

func (l *lazyResponseWriter) commit() {
	l.started = true
	l.w.Header().Set("Content-Type", "application/wasm")
	if l.size >= 0 {
		l.w.Header().Set("Content-Length", strconv.FormatInt(l.size, 10))
	}
	l.w.WriteHeader(http.StatusOK)
}

func (l *lazyResponseWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.commit()
	}
	n, err := l.w.Write(p)
	if err == nil {
		if f, ok := l.w.(http.Flusher); ok {
			f.Flush()
		}
	}
	return n, err
}

// Server runs the proxy endpoints on a listener.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// NewServer binds addr and prepares the proxy server. Pass "127.0.0.1:0" to
// pick a free port.
func NewServer(addr string, f *Fetcher) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	NewHTTPHandlers(f).RegisterRoutes(mux)
	return &Server{
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() error {
	log.InfoLog.Printf("proxy listening on %s", s.Addr())
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
