package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"commentator/internal/services"
	"commentator/internal/services/httpx"
)

func noSleepRetrier(attempts int) httpx.Retrier {
	return httpx.Retrier{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Sleeper: func(time.Duration) {}}
}

func completionPayload(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestClientCompleteSendsMessagesAndMaxTokens(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(completionPayload("Verstappen takes the lead!")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "gpt-4-1106-preview"})
	text, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Name: "instructions", Text: "You are a commentator."},
		{Role: RoleUser, Text: "Overtake for the lead."},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "Verstappen takes the lead!" {
		t.Fatalf("unexpected text %q", text)
	}
	if captured["max_tokens"].(float64) != DefaultMaxTokens {
		t.Fatalf("expected max_tokens %d, got %v", DefaultMaxTokens, captured["max_tokens"])
	}
	if captured["model"] != "gpt-4-1106-preview" {
		t.Fatalf("unexpected model %v", captured["model"])
	}
	msgs := captured["messages"].([]any)
	first := msgs[0].(map[string]any)
	if first["name"] != "instructions" || first["content"] != "You are a commentator." {
		t.Fatalf("unexpected first message %v", first)
	}
	if _, ok := msgs[1].(map[string]any)["name"]; ok {
		t.Fatal("expected empty name to be omitted")
	}
}

func TestMessageMarshalsMultipartContent(t *testing.T) {
	msg := Message{Role: RoleUser, Parts: []ContentPart{
		TextPart("Use this image"),
		ImagePart("data:image/jpeg;base64,AAAA", "low"),
	}}
	encoded, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Content []map[string]any `json:"content"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Content) != 2 {
		t.Fatalf("expected two parts, got %s", encoded)
	}
	image := decoded.Content[1]["image_url"].(map[string]any)
	if image["detail"] != "low" || !strings.HasPrefix(image["url"].(string), "data:image/jpeg") {
		t.Fatalf("unexpected image part %v", image)
	}
	if !msg.HasImage() {
		t.Fatal("expected HasImage")
	}
}

func TestMessageNameIsSanitized(t *testing.T) {
	encoded, _ := json.Marshal(Message{Role: RoleAssistant, Name: "Play-By-Play (lead)", Text: "x"})
	if !strings.Contains(string(encoded), `"name":"Play-By-Play_lead"`) {
		t.Fatalf("unexpected name encoding %s", encoded)
	}
}

func TestClientCompleteRetriesEmptyContent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_ = json.NewEncoder(w).Encode(completionPayload(""))
			return
		}
		_ = json.NewEncoder(w).Encode(completionPayload("Second time lucky."))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"}, WithRetrier(noSleepRetrier(3)))
	text, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Text: "go"}})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "Second time lucky." || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("unexpected result %q after %d calls", text, calls)
	}
}

func TestClientCompleteRefusalIsBackendError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "", "refusal": "no"}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"}, WithRetrier(noSleepRetrier(3)))
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Text: "go"}})
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected refusal not to be retried, got %d calls", calls)
	}
}

func TestClientCompleteHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "m"}, WithRetrier(noSleepRetrier(3)))
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Text: "go"}})
	if services.Kind(err) != services.KindBackend {
		t.Fatalf("expected backend kind, got %q (%v)", services.Kind(err), err)
	}
	var statusErr *httpx.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}

func TestClientCompleteTimeoutIsTimeoutKind(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"}, WithRetrier(noSleepRetrier(1)))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, []Message{{Role: RoleUser, Text: "go"}})
	if services.Kind(err) != services.KindTimeout {
		t.Fatalf("expected timeout kind, got %q (%v)", services.Kind(err), err)
	}
	if !errors.Is(err, services.ErrBackend) {
		t.Fatalf("expected timeout to also be a backend error, got %v", err)
	}
}

func TestClientCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "m"})
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Text: "go"}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestResolveTier(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		vision bool
	}{
		{"gpt-3.5-turbo", "gpt-3.5-turbo", false},
		{"GPT-4 Turbo", "gpt-4-1106-preview", false},
		{"GPT-4 Turbo with Vision", "gpt-4-vision-preview", true},
		{" gpt-4-turbo-vision ", "gpt-4-vision-preview", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, err := ResolveTier(tt.name)
			if err != nil {
				t.Fatalf("ResolveTier returned error: %v", err)
			}
			if tier.Model != tt.model || tier.Vision != tt.vision {
				t.Fatalf("unexpected tier %+v", tier)
			}
		})
	}
}

func TestResolveTierUnknownIsConfigurationError(t *testing.T) {
	_, err := ResolveTier("gpt-9-ultra")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "gpt-3.5-turbo") {
		t.Fatalf("expected known tiers in message, got %q", err.Error())
	}
}
