// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fieldsync/fieldsync/internal/logger"
)

func TestClient_Get(t *testing.T) {
	log := logger.NewLogger(slog.LevelError, os.Stderr)
	t.Run("successful GET with query and headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("q"); got != "seoul" {
				t.Errorf("expected query q=seoul, got %q", got)
			}
			if got := r.Header.Get("Accept-Language"); got != "ko" {
				t.Errorf("expected Accept-Language header ko, got %q", got)
			}
			if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "fieldsync") {
				t.Errorf("expected fieldsync user agent, got %q", ua)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"test"}`))
		}))
		defer server.Close()

		var target struct {
			Name string `json:"name"`
		}
		query := url.Values{"q": []string{"seoul"}}
		headers := map[string]string{"Accept-Language": "ko"}
		status, err := New(log).Get(context.Background(), server.URL, &target, query, headers)
		if err != nil {
			t.Fatalf("failed to perform GET request: %s", err)
		}
		if status != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, status)
		}
		if target.Name != "test" {
			t.Errorf("expected name to be test, got %q", target.Name)
		}
	})
	t.Run("GET with non-pointer target fails", func(t *testing.T) {
		var target struct{}
		_, err := New(log).Get(context.Background(), "http://localhost", target, nil, nil)
		if err == nil {
			t.Fatal("expected error on non-pointer target")
		}
		if err != ErrNonPointerTarget {
			t.Errorf("expected ErrNonPointerTarget, got %s", err)
		}
	})
	t.Run("GET with invalid JSON response fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`this is not JSON`))
		}))
		defer server.Close()

		var target struct{}
		_, err := New(log).Get(context.Background(), server.URL, &target, nil, nil)
		if err == nil {
			t.Fatal("expected error on invalid JSON response")
		}
	})
	t.Run("GET honors the timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(time.Second)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		var target struct{}
		_, err := New(log).GetWithTimeout(context.Background(), server.URL, &target, nil, nil, time.Millisecond*50)
		if err == nil {
			t.Fatal("expected timeout error")
		}
	})
}

func TestClient_Post(t *testing.T) {
	log := logger.NewLogger(slog.LevelError, os.Stderr)
	t.Run("successful POST with body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST request, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"accuracy":25.5}`))
		}))
		defer server.Close()

		var target struct {
			Accuracy float64 `json:"accuracy"`
		}
		body := strings.NewReader(`{"considerIp":true}`)
		status, err := New(log).Post(context.Background(), server.URL, &target, body, nil)
		if err != nil {
			t.Fatalf("failed to perform POST request: %s", err)
		}
		if status != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, status)
		}
		if target.Accuracy != 25.5 {
			t.Errorf("expected accuracy 25.5, got %f", target.Accuracy)
		}
	})
}
