package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"receipt-ledger/pkg/config"

	"go.uber.org/zap"
)

type gigaChatStub struct {
	mu           sync.Mutex
	tokens       int
	rejectNext   bool
	uploadedName string
	attachments  [][]string
	deleted      []string
}

func (g *gigaChatStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.tokens++
		n := g.tokens
		g.mu.Unlock()

		if r.Header.Get("Authorization") != "Basic secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("RqUID") == "" {
			t.Error("RqUID header missing")
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "token-" + string(rune('0'+n)), "expires_at": 1})
	})
	mux.HandleFunc("/api/files", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		reject := g.rejectNext
		g.rejectNext = false
		g.mu.Unlock()
		if reject {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("purpose") != "general" {
			t.Errorf("purpose = %q", r.FormValue("purpose"))
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			g.uploadedName = header.Filename
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "file-1"})
	})
	mux.HandleFunc("/api/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Attachments [][]string `json:"attachments"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) == 1 {
			g.attachments = body.Messages[0].Attachments
		}
		io.WriteString(w, `{"choices": [{"message": {"content": "{\"store_name\": \"x\"}"}, "finish_reason": "stop"}]}`)
	})
	mux.HandleFunc("/api/files/file-1/delete", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.deleted = append(g.deleted, "file-1")
		g.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestLLM(t *testing.T, stub *gigaChatStub) *LLMService {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	cfg := &config.GigaChatConfig{APIKey: "secret", Scope: "GIGACHAT_API_PERS", Model: "GigaChat-Pro"}
	return NewLLMService(cfg, zap.NewNop()).WithEndpoints(server.URL+"/oauth", server.URL+"/api", server.Client())
}

func TestVisionUploadsAttachesAndDeletes(t *testing.T) {
	stub := &gigaChatStub{}
	llm := newTestLLM(t, stub)

	completion, err := llm.Vision(context.Background(), []byte("jpeg"), "telegram_photo.jpg", "image/jpeg", "prompt")
	if err != nil {
		t.Fatalf("Vision: %v", err)
	}
	if len(completion.Choices) != 1 || !strings.Contains(completion.Choices[0].Text, "store_name") {
		t.Fatalf("completion = %+v", completion)
	}
	if completion.Choices[0].FinishReason != "stop" {
		t.Errorf("finish reason = %q", completion.Choices[0].FinishReason)
	}
	if stub.uploadedName != "telegram_photo.jpg" {
		t.Errorf("uploaded name = %q", stub.uploadedName)
	}
	if len(stub.attachments) != 1 || stub.attachments[0][0] != "file-1" {
		t.Errorf("attachments = %v", stub.attachments)
	}
	if len(stub.deleted) != 1 {
		t.Errorf("deleted = %v", stub.deleted)
	}
	if stub.tokens != 1 {
		t.Errorf("token requests = %d, want 1", stub.tokens)
	}
}

func TestVisionRefreshesRejectedToken(t *testing.T) {
	stub := &gigaChatStub{rejectNext: true}
	llm := newTestLLM(t, stub)

	if _, err := llm.Vision(context.Background(), []byte("jpeg"), "a.jpg", "image/jpeg", "prompt"); err != nil {
		t.Fatalf("Vision: %v", err)
	}
	if stub.tokens != 2 {
		t.Errorf("token requests = %d, want 2", stub.tokens)
	}
}
