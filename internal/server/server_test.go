package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"

	"mod2fix/internal/diag"
	"mod2fix/internal/report"
)

const crash = "Minecraft 1.20.4 quilt_loader\nMod sodium requires Mod indium\nMixin apply failed\n"

func postJSON(t *testing.T, h http.Handler, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func mustBody(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestAnalyzeOK(t *testing.T) {
	s := New(Options{})
	rec := postJSON(t, s.Handler(), mustBody(t, AnalyzeRequest{LogContent: crash}), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatalf("success = false")
	}
	if _, err := uuid.Parse(resp.RequestID); err != nil {
		t.Fatalf("request id %q is not a uuid", resp.RequestID)
	}
	if rec.Header().Get(RequestIDHeader) != resp.RequestID {
		t.Fatalf("header id %q != body id %q", rec.Header().Get(RequestIDHeader), resp.RequestID)
	}
	if diff := cmp.Diff(report.Build(crash), resp.Report); diff != "" {
		t.Fatalf("report (-want +got):\n%s", diff)
	}
	if resp.Report.Errors[0].Code != diag.MixinConflict {
		t.Fatalf("errors = %+v", resp.Report.Errors)
	}
}

func TestAnalyzeKeepsRequestID(t *testing.T) {
	id := uuid.NewString()
	rec := postJSON(t, New(Options{}).Handler(), `{"log_content":""}`, map[string]string{RequestIDHeader: id})
	if got := rec.Header().Get(RequestIDHeader); got != id {
		t.Fatalf("request id = %q, want %q", got, id)
	}
	rec = postJSON(t, New(Options{}).Handler(), `{"log_content":""}`, map[string]string{RequestIDHeader: "not-a-uuid"})
	if got := rec.Header().Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Fatalf("malformed id was kept: %q", got)
	}
}

func TestAnalyzeCleanShape(t *testing.T) {
	rec := postJSON(t, New(Options{}).Handler(), `{}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"dependencies":[]`, `"errors":[]`, `"gameVersion":"unknown"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %s: %s", want, body)
		}
	}
}

func TestAnalyzeRejections(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		method string
		body   string
		status int
	}{
		{"bad json", Options{}, http.MethodPost, `{"log_content":`, http.StatusBadRequest},
		{"wrong type", Options{}, http.MethodPost, `{"log_content":42}`, http.StatusBadRequest},
		{"too large", Options{MaxBodyBytes: 32}, http.MethodPost, mustBody(t, AnalyzeRequest{LogContent: strings.Repeat("x", 64)}), http.StatusRequestEntityTooLarge},
		{"wrong method", Options{}, http.MethodGet, "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/analyze", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			New(tt.opts).Handler().ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success || resp.Error == "" {
				t.Fatalf("error body = %+v", resp)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := New(Options{RateLimit: 0.001, Burst: 2}).Handler()
	codes := make([]int, 3)
	for i := range codes {
		codes[i] = postJSON(t, h, `{"log_content":"x"}`, nil).Code
	}
	if diff := cmp.Diff([]int{200, 200, 429}, codes); diff != "" {
		t.Fatalf("status codes (-want +got):\n%s", diff)
	}
}

func TestGzipRequestBody(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(mustBody(t, AnalyzeRequest{LogContent: crash}))); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	New(Options{}).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("plain"))
	req.Header.Set("Content-Encoding", "gzip")
	rec = httptest.NewRecorder()
	New(Options{}).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad gzip status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	New(Options{CORSOrigin: "*"}).Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight = %d %v", rec.Code, rec.Header())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := New(Options{})
	h := s.Handler()
	postJSON(t, h, mustBody(t, AnalyzeRequest{LogContent: crash}), nil)
	postJSON(t, h, `nope`, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`mod2fix_analyses_total{outcome="ok"} 1`,
		`mod2fix_analyses_total{outcome="invalid"} 1`,
		`mod2fix_findings_total{kind="error"} 1`,
		`mod2fix_findings_total{kind="dependency"} 1`,
		`mod2fix_analysis_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(Options{Registry: reg})
	second := New(Options{Registry: reg})
	postJSON(t, first.Handler(), mustBody(t, AnalyzeRequest{LogContent: crash}), nil)
	postJSON(t, second.Handler(), mustBody(t, AnalyzeRequest{LogContent: crash}), nil)

	for _, s := range []*Server{first, second} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		for _, want := range []string{
			`mod2fix_analyses_total{outcome="ok"} 2`,
			`mod2fix_analysis_duration_seconds_count 2`,
		} {
			if !strings.Contains(rec.Body.String(), want) {
				t.Fatalf("metrics missing %q:\n%s", want, rec.Body.String())
			}
		}
	}
}

func TestServeGracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Options{}).Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	resp, err := http.Post(url+"/api/analyze", "application/json", strings.NewReader(`{"log_content":"Mixin"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "Mixin Conflict") {
		t.Fatalf("response = %d %s", resp.StatusCode, data)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
