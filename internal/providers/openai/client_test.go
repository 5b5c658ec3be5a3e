package openai_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/team-leekim/newsnack-ai/internal/audio"
	"github.com/team-leekim/newsnack-ai/internal/config"
	"github.com/team-leekim/newsnack-ai/internal/providers"
	"github.com/team-leekim/newsnack-ai/internal/providers/openai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return openai.NewClient(config.OpenAIProvider{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		ChatModel:      "chat-model",
		ImageModel:     "image-model",
		TTSModel:       "tts-model",
		TTSVoice:       "nova",
		TimeoutSeconds: 5,
	}, 24000, openai.WithHTTPClient(server.Client()))
}

func TestCompleteJSONSendsAuthAndFormat(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content %q", content)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	format, _ := gotBody["response_format"].(map[string]any)
	if format == nil || format["type"] != "json_object" {
		t.Fatalf("expected json response format, got %v", gotBody["response_format"])
	}
}

func TestUpstreamErrorCarriesStatusCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.CompleteJSON(context.Background(), "system", "user")
	var statusErr *providers.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode() != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", statusErr.StatusCode())
	}
}

func TestChatRoundTripsToolMessages(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"","tool_calls":[
            {"id":"call_1","type":"function","function":{"name":"search_image","arguments":"{\"query\":\"city\"}"}}
        ]}}]}`))
	})

	result, err := client.Chat(context.Background(), []providers.Message{
		{Role: providers.RoleSystem, Content: "find images"},
		{Role: providers.RoleUser, Content: "city skyline story"},
		{Role: providers.RoleAssistant, ToolCalls: []providers.ToolCall{
			{ID: "call_0", Name: "search_image", Arguments: `{"query":"skyline"}`},
		}},
		{Role: providers.RoleTool, ToolCallID: "call_0", Content: "https://example.com/a.png"},
	}, []providers.ToolSpec{
		{Name: "search_image", Parameters: `{"type":"object"}`},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].ID != "call_1" {
		t.Fatalf("unexpected tool calls %#v", result.ToolCalls)
	}

	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 4 {
		t.Fatalf("expected 4 wire messages, got %d", len(messages))
	}
	toolMsg, _ := messages[3].(map[string]any)
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "call_0" {
		t.Fatalf("unexpected tool message %v", toolMsg)
	}
}

func TestGenerateImageDecodesPayload(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString([]byte("img-bytes")) + `"}]}`))
	})

	data, err := client.GenerateImage(context.Background(), providers.ImageRequest{
		Prompt: "a robot reading a newspaper",
		Reference: &providers.ImageReference{
			Mode: providers.ReferenceStyle,
		},
	})
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	if string(data) != "img-bytes" {
		t.Fatal("unexpected image payload")
	}
	prompt, _ := gotBody["prompt"].(string)
	if !strings.Contains(prompt, "consistent illustration style") {
		t.Fatalf("expected style guidance in prompt, got %q", prompt)
	}
}

func TestSynthesizePassesThroughWAV(t *testing.T) {
	pcm := make([]byte, 24000*2)
	wavBytes, err := audio.PCMToWAV(pcm, 24000)
	if err != nil {
		t.Fatalf("PCMToWAV failed: %v", err)
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write(wavBytes)
	})

	data, err := client.Synthesize(context.Background(), "Good morning.")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !audio.IsWAV(data) {
		t.Fatal("expected wav payload")
	}
}

func TestSynthesizeWrapsRawPCM(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 24000))
	})

	data, err := client.Synthesize(context.Background(), "Good morning.")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !audio.IsWAV(data) {
		t.Fatal("expected wrapped wav payload")
	}
}
