package translator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const defaultRetryDelay = 2 * time.Second

// Resolver tries available backends in order, each with bounded retries
type Resolver struct {
	backends   []Backend
	maxRetries int
	retryDelay time.Duration
	vocabulary *utils.Vocabulary
	logger     *logrus.Logger
}

// NewResolver probes every candidate once and keeps the available ones
func NewResolver(ctx context.Context, candidates []Backend, maxRetries int, retryDelay time.Duration, vocabulary *utils.Vocabulary, logger *logrus.Logger) *Resolver {
	r := &Resolver{
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		vocabulary: vocabulary,
		logger:     logger,
	}
	for _, b := range candidates {
		if b.Available(ctx) {
			r.backends = append(r.backends, b)
			logger.WithField("backend", b.Name()).Info("Translation backend available")
		} else {
			logger.WithField("backend", b.Name()).Warn("Translation backend unavailable, skipping")
		}
	}
	return r
}

// BuildResolver instantiates backends in TRANSLATOR_ORDER from the factory table
func BuildResolver(ctx context.Context, cfg *config.Config, httpClient *http.Client, vocabulary *utils.Vocabulary, logger *logrus.Logger) (*Resolver, error) {
	var candidates []Backend
	for _, name := range cfg.TranslatorOrder {
		factory, ok := Factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown translation backend %q", name)
		}
		candidates = append(candidates, factory(cfg, httpClient))
	}
	return NewResolver(ctx, candidates, cfg.TranslatorMaxRetries, defaultRetryDelay, vocabulary, logger), nil
}

// Backends lists the registered backend names in try order
func (r *Resolver) Backends() []string {
	names := make([]string, 0, len(r.backends))
	for _, b := range r.backends {
		names = append(names, b.Name())
	}
	return names
}

func (r *Resolver) retryPolicy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.retryDelay), uint64(r.maxRetries)),
		ctx,
	)
}

// Translate returns the first non-empty translation, with vocabulary fixes applied.
// ok is false when every backend failed.
func (r *Resolver) Translate(ctx context.Context, text string) (string, bool) {
	if text == "" {
		return "", false
	}

	for _, b := range r.backends {
		var result string
		err := backoff.Retry(func() error {
			translated, err := b.Translate(ctx, text)
			if err != nil {
				return err
			}
			if translated == "" {
				return fmt.Errorf("empty translation")
			}
			result = translated
			return nil
		}, r.retryPolicy(ctx))
		if err == nil {
			return r.vocabulary.Apply(result), true
		}

		r.logger.WithFields(logrus.Fields{
			"backend": b.Name(),
		}).WithError(err).Warn("Translation backend failed")
	}
	return "", false
}

// BatchTranslate sends the whole batch to the first backend, then only the
// failed indices to each following backend. Order is preserved; indices
// every backend failed on are nil.
func (r *Resolver) BatchTranslate(ctx context.Context, texts []string) []*string {
	results := make([]*string, len(texts))

	pending := make([]int, 0, len(texts))
	for i, t := range texts {
		if t != "" {
			pending = append(pending, i)
		}
	}

	for _, b := range r.backends {
		if len(pending) == 0 {
			break
		}

		batch := make([]string, len(pending))
		for j, idx := range pending {
			batch[j] = texts[idx]
		}

		var out []string
		err := backoff.Retry(func() error {
			translated, err := b.TranslateBatch(ctx, batch)
			if err != nil {
				return err
			}
			out = translated
			return nil
		}, r.retryPolicy(ctx))
		if err != nil || len(out) != len(batch) {
			r.logger.WithFields(logrus.Fields{
				"backend": b.Name(),
				"items":   len(batch),
			}).WithError(err).Warn("Batch translation failed")
			continue
		}

		var stillPending []int
		for j, idx := range pending {
			if out[j] == "" {
				stillPending = append(stillPending, idx)
				continue
			}
			fixed := r.vocabulary.Apply(out[j])
			results[idx] = &fixed
		}
		pending = stillPending
	}
	return results
}
