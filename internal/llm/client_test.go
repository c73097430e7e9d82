// Reelfeed - Personalized Short-Video Feed and Recommendation Service
// Copyright 2026 gvarikaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gvarikaa/reelfeed

package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/gvarikaa/reelfeed/internal/config"
)

func newTestClient(srv *httptest.Server) *Client {
	return New(&config.LLMConfig{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		Model:           "test-model",
		Timeout:         2 * time.Second,
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
	})
}

func TestCompleteReturnsMessageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != completionsPath {
			t.Errorf("path = %s, want %s", r.URL.Path, completionsPath)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want single user message", req.Messages)
		}

		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: "hello"}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	got, err := newTestClient(srv).Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete = %q, want hello", got)
	}
}

func TestCompleteErrorsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Complete(context.Background(), "hi"); err == nil {
		t.Error("Complete = nil error, want failure on 503")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := c.Complete(ctx, "hi"); err == nil {
			t.Fatal("expected error")
		}
	}

	// Breaker trips at 3 consecutive failures; later calls never reach
	// the server.
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3 before the breaker opened", calls)
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{
			name: "bare array",
			text: `[{"id":"a","score":0.9}]`,
			want: `[{"id":"a","score":0.9}]`,
		},
		{
			name: "array inside prose",
			text: `Here are your recommendations: [{"id":"a"}] Hope that helps!`,
			want: `[{"id":"a"}]`,
		},
		{
			name: "fenced json block",
			text: "Sure!\n```json\n[{\"id\":\"a\"}]\n```\n",
			want: `[{"id":"a"}]`,
		},
		{
			name: "brackets inside string values",
			text: `[{"explanation":"matches [fitness] tag"}]`,
			want: `[{"explanation":"matches [fitness] tag"}]`,
		},
		{
			name: "nested arrays",
			text: `[{"tags":["a","b"]},{"tags":[]}]`,
			want: `[{"tags":["a","b"]},{"tags":[]}]`,
		},
		{
			name:    "no array",
			text:    "I cannot produce recommendations right now.",
			wantErr: true,
		},
		{
			name:    "unterminated array",
			text:    `[{"id":"a"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONArray(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ExtractJSONArray(%q) = %q, want error", tt.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSONArray(%q): %v", tt.text, err)
			}
			if strings.TrimSpace(got) != tt.want {
				t.Errorf("ExtractJSONArray = %q, want %q", got, tt.want)
			}
		})
	}
}
