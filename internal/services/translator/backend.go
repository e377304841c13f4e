package translator

import (
	"context"
	"net/http"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
)

// Backend is one machine translation service
type Backend interface {
	Name() string
	// Available probes the service; called once when the resolver is built
	Available(ctx context.Context) bool
	Translate(ctx context.Context, text string) (string, error)
	// TranslateBatch keeps input order; an empty string marks a failed item
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

// Factory builds a backend from configuration
type Factory func(cfg *config.Config, httpClient *http.Client) Backend

// Factories is the fixed table of known translation backends
var Factories = map[string]Factory{
	"ollama": NewOllama,
	"openai": NewOpenAI,
}
