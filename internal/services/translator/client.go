package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// doJSON performs an HTTP request with an optional JSON body and decodes a JSON response into result
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func singlePrompt(target, text string) string {
	return fmt.Sprintf("Translate the following video title into %s. Reply with the translation only, no quotes or notes.\n\n%s", target, text)
}

func batchPrompt(target string, texts []string) string {
	payload, _ := json.Marshal(texts)
	return fmt.Sprintf("Translate every string of the following JSON array into %s. Reply with a JSON array of the same length and order, nothing else.\n\n%s", target, payload)
}

// parseBatchReply extracts a JSON string array of length n from a model reply
func parseBatchReply(reply string, n int) ([]string, error) {
	reply = strings.TrimSpace(reply)
	start, end := strings.Index(reply, "["), strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("reply has no JSON array")
	}
	var out []string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("failed to parse batch reply: %w", err)
	}
	if len(out) != n {
		return nil, fmt.Errorf("batch reply has %d items, want %d", len(out), n)
	}
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out, nil
}

// cleanReply strips the quoting models like to wrap single answers in
func cleanReply(reply string) string {
	return strings.Trim(strings.TrimSpace(reply), "\"'“”「」")
}

// translateEach is the per-item fallback when a batch reply is unusable.
// Failed items are left empty.
func translateEach(ctx context.Context, b Backend, texts []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		if translated, err := b.Translate(ctx, text); err == nil {
			out[i] = translated
		}
	}
	return out
}
