package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"postal-prediction-api/config"
)

func newTestChatService(baseURL string) *ChatService {
	return NewChatService(config.ChatConfig{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: baseURL,
	})
}

func TestChatAsk(t *testing.T) {
	var gotPath, gotKey string
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" On average items spend 18 hours per leg. "}]}}]}`))
	}))
	defer srv.Close()

	chat := newTestChatService(srv.URL)
	res := chat.Ask(context.Background(), "how long per leg?",
		[]string{"MAILITM_FID", "date", "etablissement_postal"},
		[]string{"prediction_timestamp", "entity_id"})

	if res.Reply != "On average items spend 18 hours per leg." {
		t.Fatalf("unexpected reply %q", res.Reply)
	}
	if gotPath != "/models/test-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q", gotKey)
	}
	for _, want := range []string{"MAILITM_FID", "prediction_timestamp", "how long per leg?"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestChatAskNoPredictionColumns(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Contents[0].Parts[0].Text
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	chat := newTestChatService(srv.URL)
	res := chat.Ask(context.Background(), "anything?", []string{"date"}, nil)
	if res.Reply != "ok" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if !strings.Contains(gotPrompt, "No predictions logged yet.") {
		t.Errorf("prompt missing empty-log note: %q", gotPrompt)
	}
}

func TestChatAskErrorsBecomeReplies(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "api error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
			},
			want: "API key not valid",
		},
		{
			name: "empty candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"candidates":[]}`))
			},
			want: "empty response",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
			want: "decode response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			res := newTestChatService(srv.URL).Ask(context.Background(), "q", []string{"date"}, nil)
			if !strings.HasPrefix(res.Reply, "Assistant error:") {
				t.Fatalf("expected error reply, got %q", res.Reply)
			}
			if !strings.Contains(res.Reply, tt.want) {
				t.Errorf("reply %q missing %q", res.Reply, tt.want)
			}
		})
	}
}

func TestChatAskUnreachableServer(t *testing.T) {
	res := newTestChatService("http://127.0.0.1:1").Ask(context.Background(), "q", []string{"date"}, nil)
	if !strings.HasPrefix(res.Reply, "Assistant error:") {
		t.Fatalf("expected error reply, got %q", res.Reply)
	}
}
