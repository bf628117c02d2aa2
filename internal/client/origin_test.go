package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"hls-relay-go/internal/config"
	"hls-relay-go/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Relay: config.RelayConfig{
			Referer:         "https://megacloud.blog/",
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest(target string) *model.RelayRequest {
	return &model.RelayRequest{
		Ctx:       context.Background(),
		Method:    http.MethodGet,
		TargetURL: target,
	}
}

func TestOriginClient_SpoofedHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewOriginClient(testConfig(), testLogger(), nil)
	resp, err := c.Fetch(testRequest(srv.URL + "/seg1.ts"))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if v := got.Get("Referer"); v != "https://megacloud.blog/" {
		t.Errorf("Referer = %q, want %q", v, "https://megacloud.blog/")
	}
	if v := got.Get("Origin"); v != "https://megacloud.blog" {
		t.Errorf("Origin = %q, want %q", v, "https://megacloud.blog")
	}
	if v := got.Get("User-Agent"); v != userAgent {
		t.Errorf("User-Agent = %q, want %q", v, userAgent)
	}
	if v := got.Get("Sec-Fetch-Mode"); v != "cors" {
		t.Errorf("Sec-Fetch-Mode = %q, want %q", v, "cors")
	}
	if v := got.Get("Accept"); v != "*/*" {
		t.Errorf("Accept = %q, want %q", v, "*/*")
	}
}

func TestOriginClient_RefererOverride(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewOriginClient(testConfig(), testLogger(), nil)
	rr := testRequest(srv.URL + "/index.m3u8")
	rr.Overrides = &model.HeaderOverrides{Referer: "https://player.example/watch/123"}

	resp, err := c.Fetch(rr)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if v := got.Get("Referer"); v != "https://player.example/watch/123" {
		t.Errorf("Referer = %q, want override", v)
	}
	if v := got.Get("Origin"); v != "https://player.example" {
		t.Errorf("Origin = %q, want %q", v, "https://player.example")
	}
}

func TestOriginClient_MalformedOverrideIgnored(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewOriginClient(testConfig(), testLogger(), nil)
	rr := testRequest(srv.URL + "/index.m3u8")
	rr.Overrides = &model.HeaderOverrides{Referer: "not a url"}

	resp, err := c.Fetch(rr)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if v := got.Get("Referer"); v != "https://megacloud.blog/" {
		t.Errorf("Referer = %q, want default kept", v)
	}
	if v := got.Get("Origin"); v != "https://megacloud.blog" {
		t.Errorf("Origin = %q, want default kept", v)
	}
}

func TestOriginClient_RangeForwarded(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer srv.Close()

	c := NewOriginClient(testConfig(), testLogger(), nil)
	rr := testRequest(srv.URL + "/seg1.ts")
	rr.RangeHeader = "bytes=100-199"

	resp, err := c.Fetch(rr)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if gotRange != "bytes=100-199" {
		t.Errorf("Range = %q, want %q", gotRange, "bytes=100-199")
	}
	if resp.StatusCode != http.StatusPartialContent {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusPartialContent)
	}
}

func TestOriginClient_HeadMirrored(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewOriginClient(testConfig(), testLogger(), nil)
	rr := testRequest(srv.URL + "/seg1.ts")
	rr.Method = http.MethodHead

	resp, err := c.Fetch(rr)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if gotMethod != http.MethodHead {
		t.Errorf("upstream method = %q, want HEAD", gotMethod)
	}
}

func TestOriginClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Relay.TimeoutSeconds = 1

	c := NewOriginClient(cfg, testLogger(), nil)
	_, err := c.Fetch(testRequest(srv.URL + "/slow"))
	if err == nil {
		t.Fatal("Fetch() expected timeout error, got nil")
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) || !urlErr.Timeout() {
		t.Errorf("expected timeout url.Error, got %v", err)
	}
}

func TestOriginClient_NetworkError(t *testing.T) {
	c := NewOriginClient(testConfig(), testLogger(), nil)
	_, err := c.Fetch(testRequest("http://127.0.0.1:1/nonexistent"))
	if err == nil {
		t.Fatal("Fetch() expected error for unreachable host, got nil")
	}
}
