package translator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
)

// OpenAI translates through an OpenAI-compatible chat completion API
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	target     string
	httpClient *http.Client
}

func NewOpenAI(cfg *config.Config, httpClient *http.Client) Backend {
	return &OpenAI{
		baseURL:    strings.TrimRight(cfg.OpenAIURL, "/"),
		apiKey:     cfg.OpenAIAPIKey,
		model:      cfg.OpenAIModel,
		target:     cfg.TranslationTarget,
		httpClient: httpClient,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + o.apiKey}
}

// Available needs a key and a reachable model listing
func (o *OpenAI) Available(ctx context.Context) bool {
	if o.apiKey == "" || o.baseURL == "" {
		return false
	}
	return doJSON(ctx, o.httpClient, http.MethodGet, o.baseURL+"/v1/models", o.headers(), nil, nil) == nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a professional translator for video catalogue titles."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}
	var resp chatResponse
	if err := doJSON(ctx, o.httpClient, http.MethodPost, o.baseURL+"/v1/chat/completions", o.headers(), req, &resp); err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Translate(ctx context.Context, text string) (string, error) {
	reply, err := o.complete(ctx, singlePrompt(o.target, text))
	if err != nil {
		return "", err
	}
	return cleanReply(reply), nil
}

func (o *OpenAI) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	reply, err := o.complete(ctx, batchPrompt(o.target, texts))
	if err != nil {
		return nil, err
	}
	out, err := parseBatchReply(reply, len(texts))
	if err != nil {
		return translateEach(ctx, o, texts), nil
	}
	return out, nil
}
