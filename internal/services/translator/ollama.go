package translator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
)

// Ollama translates with a locally served model
type Ollama struct {
	baseURL    string
	model      string
	target     string
	httpClient *http.Client
}

func NewOllama(cfg *config.Config, httpClient *http.Client) Backend {
	return &Ollama{
		baseURL:    strings.TrimRight(cfg.OllamaURL, "/"),
		model:      cfg.OllamaModel,
		target:     cfg.TranslationTarget,
		httpClient: httpClient,
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Available checks that the configured model is pulled
func (o *Ollama) Available(ctx context.Context) bool {
	if o.baseURL == "" || o.model == "" {
		return false
	}
	var tags ollamaTags
	if err := doJSON(ctx, o.httpClient, http.MethodGet, o.baseURL+"/api/tags", nil, nil, &tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == o.model || strings.TrimSuffix(m.Name, ":latest") == o.model {
			return true
		}
	}
	return false
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) generate(ctx context.Context, prompt string) (string, error) {
	var resp ollamaGenerateResponse
	req := ollamaGenerateRequest{Model: o.model, Prompt: prompt}
	if err := doJSON(ctx, o.httpClient, http.MethodPost, o.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	return resp.Response, nil
}

func (o *Ollama) Translate(ctx context.Context, text string) (string, error) {
	reply, err := o.generate(ctx, singlePrompt(o.target, text))
	if err != nil {
		return "", err
	}
	return cleanReply(reply), nil
}

func (o *Ollama) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	reply, err := o.generate(ctx, batchPrompt(o.target, texts))
	if err != nil {
		return nil, err
	}
	out, err := parseBatchReply(reply, len(texts))
	if err != nil {
		return translateEach(ctx, o, texts), nil
	}
	return out, nil
}
