// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"mod2fix/internal/driver"
	"mod2fix/internal/report"
	"mod2fix/internal/source"
	"mod2fix/internal/trace"
	"mod2fix/internal/version"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Options configure a Server. Zero values fall back to the defaults noted.
type Options struct {
	Addr            string  // ":5000"
	MaxBodyBytes    int64   // source.DefaultMaxBytes
	RateLimit       float64 // requests per second; 0 disables limiting
	Burst           int     // 10 when RateLimit is set
	CORSOrigin      string  // Access-Control-Allow-Origin, empty disables CORS
	ShutdownTimeout time.Duration
	Analyzer        *driver.Analyzer     // built-in table when nil
	Registry        *prometheus.Registry // fresh registry when nil; servers given the same one share mod2fix_* series
}

// Server serves POST /api/analyze, GET /healthz and GET /metrics.
type Server struct {
	opts     Options
	analyzer *driver.Analyzer
	limiter  *rate.Limiter
	metrics  *metrics
	registry *prometheus.Registry
	handler  http.Handler
}

// AnalyzeRequest is the body accepted by POST /api/analyze.
type AnalyzeRequest struct {
	LogContent string `json:"log_content"`
}

// AnalyzeResponse is returned on success.
type AnalyzeResponse struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"requestId"`
	Report    report.Report `json:"report"`
}

// ErrorResponse is returned for every rejected request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error"`
}

// New builds a Server.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = source.DefaultMaxBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{opts: opts, analyzer: opts.Analyzer, registry: opts.Registry}
	if s.analyzer == nil {
		s.analyzer = driver.New(driver.Options{})
	}
	if s.registry == nil {
		s.registry = newRegistry()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 10
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	s.metrics = newMetrics(s.registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	s.handler = gzhttp.GzipHandler(s.withRequestID(mux))
	return s
}

// Handler returns the root handler, for embedding or httptest.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.opts.Addr }

// ListenAndServe listens on Options.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for up to Options.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	span, ctx := trace.StartSpan(ctx, trace.ScopeCommand, "serve")
	defer span.End("")
	span.WithExtra("addr", ln.Addr().String())

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxRequestID struct{}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxRequestID{}).(string)
	return id
}

// withRequestID keeps a well-formed incoming id and mints one otherwise.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		if s.opts.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, "+RequestIDHeader)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		span, ctx := trace.StartSpan(r.Context(), trace.ScopeFile, r.Method+" "+r.URL.Path)
		ctx = context.WithValue(ctx, ctxRequestID{}, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.WithExtra("request_id", id).WithExtra("status", strconv.Itoa(rec.status)).End("")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.metrics.reject(outcomeRateLimited)
		w.Header().Set("Retry-After", "1")
		s.writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	req, err := s.decodeRequest(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.reject(outcomeTooLarge)
			s.writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", s.opts.MaxBodyBytes))
			return
		}
		s.metrics.reject(outcomeInvalid)
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	rep := s.analyzer.AnalyzeText(source.Normalize([]byte(req.LogContent)))
	s.metrics.observe(rep, time.Since(start))
	trace.Point(r.Context(), trace.ScopeFile, "analyzed", id, map[string]string{
		"errors":       strconv.Itoa(len(rep.Errors)),
		"dependencies": strconv.Itoa(len(rep.Dependencies)),
	})
	writeJSON(w, http.StatusOK, AnalyzeResponse{Success: true, RequestID: id, Report: rep})
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (AnalyzeRequest, error) {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	defer body.Close()

	var rd = body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return AnalyzeRequest{}, err
			}
			return AnalyzeRequest{}, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer zr.Close()
		rd = http.MaxBytesReader(w, zr, s.opts.MaxBodyBytes)
	}

	var req AnalyzeRequest
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return AnalyzeRequest{}, err
		}
		return AnalyzeRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	trace.Error(r.Context(), trace.ScopeFile, r.Method+" "+r.URL.Path, errors.New(msg))
	writeJSON(w, status, ErrorResponse{Success: false, RequestID: requestID(r), Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
