package enrichment

import (
	"context"
	"fmt"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
	"github.com/sirupsen/logrus"
)

// Factory builds an enricher from its configuration
type Factory func(cfg config.EnrichmentConfig, fetcher *sources.Fetcher, logger *logrus.Logger) Enricher

// Factories is the fixed table of known enrichment sites
var Factories = map[string]Factory{
	"javbus":    NewJavBus,
	"busmirror": NewJavBus,
}

// Resolver tries enrichment sites in declaration order
type Resolver struct {
	enrichers []Enricher
	logger    *logrus.Logger
}

// NewResolver uses enrichers in the given order
func NewResolver(enrichers []Enricher, logger *logrus.Logger) *Resolver {
	return &Resolver{enrichers: enrichers, logger: logger}
}

// BuildResolver instantiates every configured enrichment site
func BuildResolver(cfg *config.Config, fetcher *sources.Fetcher, logger *logrus.Logger) (*Resolver, error) {
	var enrichers []Enricher
	for _, ec := range cfg.Enrichment {
		factory, ok := Factories[ec.Name]
		if !ok {
			return nil, fmt.Errorf("unknown enrichment site %q", ec.Name)
		}
		enrichers = append(enrichers, factory(ec, fetcher, logger))
	}
	return NewResolver(enrichers, logger), nil
}

// Resolve returns the first non-empty metadata, or nil when no site has any
func (r *Resolver) Resolve(ctx context.Context, identifier string) *Metadata {
	for _, e := range r.enrichers {
		logger := r.logger.WithFields(logrus.Fields{
			"enricher":   e.Name(),
			"identifier": identifier,
		})

		doc, outcome := e.FetchDocument(ctx, identifier)
		if outcome != sources.OutcomeOK {
			logger.WithField("outcome", outcome).Debug("Enrichment fetch failed")
			continue
		}

		md, err := safeParse(e, doc, identifier)
		if err != nil {
			logger.WithError(err).Error("Enrichment parser crashed")
			continue
		}
		if md.Empty() {
			logger.Debug("Enrichment page had no metadata")
			continue
		}

		logger.Info("Enrichment resolved")
		return md
	}
	return nil
}
