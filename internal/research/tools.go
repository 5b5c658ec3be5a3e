package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

const userAgent = "Newsnack/1.0 (https://newsnack.site; contact@newsnack.site)"

// Tool is one lookup capability exposed to the research model. Call
// returns the tool output as text for the model to read. Lookup
// failures come back as a TOOL_FAILED message that steers the model to
// another tool; they are never Go errors, which would abort the run.
type Tool interface {
	Name() string
	Description() string
	// Parameters is the JSON-schema string describing the arguments.
	Parameters() string
	Call(ctx context.Context, arguments string) string
}

type toolClient struct {
	http *http.Client
}

func newToolClient(cfg config.Research) *toolClient {
	return &toolClient{
		http: &http.Client{Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second},
	}
}

// getJSON fetches url and decodes the response body into out.
// Non-200 statuses are errors.
func (c *toolClient) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := c.get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

func (c *toolClient) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return body, nil
}

// decodeArgs unmarshals tool-call arguments, tolerating a bare string
// where some models skip the JSON object wrapper.
func decodeArgs(arguments, key string) (string, error) {
	var object map[string]string
	if err := json.Unmarshal([]byte(arguments), &object); err == nil {
		return object[key], nil
	}
	var bare string
	if err := json.Unmarshal([]byte(arguments), &bare); err == nil {
		return bare, nil
	}
	return "", fmt.Errorf("unreadable arguments %q", arguments)
}

func toolJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("TOOL_FAILED: encode result - %v.", err)
	}
	return string(encoded)
}
