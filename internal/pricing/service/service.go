package service

import (
	"context"
	"errors"
	"strings"

	"catalog_backend/internal/marketplace"
	"catalog_backend/internal/pricing/transport"
	"catalog_backend/platform/apperr"
	"catalog_backend/platform/logger"
	"catalog_backend/platform/metrics"
)

// ErrNoListings means the search succeeded but returned nothing to price.
var ErrNoListings = errors.New("no listings found")

// QueryRewriter turns a raw product name into a marketplace search phrase.
type QueryRewriter interface {
	Rewrite(ctx context.Context, product string) (string, error)
}

// Searcher runs a bearer-authenticated marketplace search.
type Searcher interface {
	Search(ctx context.Context, token, query string, limit int) (*marketplace.SearchResult, error)
}

// Options holds the per-deployment settings of the service.
type Options struct {
	AccessToken string
	SearchLimit int
}

// Service analyses marketplace prices for a product name.
type Service struct {
	rewriter QueryRewriter
	searcher Searcher
	opts     Options
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New creates a pricing service. metrics may be nil.
func New(rewriter QueryRewriter, searcher Searcher, opts Options, log *logger.Logger, m *metrics.Metrics) *Service {
	if opts.SearchLimit < 1 {
		opts.SearchLimit = marketplace.DefaultLimit
	}
	return &Service{rewriter: rewriter, searcher: searcher, opts: opts, log: log, metrics: m}
}

// Analyze rewrites product into a search phrase, searches the marketplace and
// summarises the prices found.
//
// A non-200 search answer is returned as *marketplace.UpstreamError and an
// empty result set as ErrNoListings.
func (s *Service) Analyze(ctx context.Context, product string) (*transport.PriceSummary, error) {
	log := s.log.WithContext(ctx)
	product = strings.TrimSpace(product)

	term, err := s.rewriter.Rewrite(ctx, product)
	if err != nil {
		s.metrics.IncPricing(metrics.OutcomeError)
		return nil, err
	}
	log.Info("search term rewritten", "produto", product, "termo", term)

	if s.opts.AccessToken == "" {
		s.metrics.IncPricing(metrics.OutcomeError)
		return nil, apperr.Internal(marketplace.ErrMissingToken.Error()).WithOp("pricing.Analyze")
	}

	result, err := s.searcher.Search(ctx, s.opts.AccessToken, term, s.opts.SearchLimit)
	if err != nil {
		var upstream *marketplace.UpstreamError
		if errors.As(err, &upstream) {
			s.metrics.IncPricing(metrics.OutcomeUpstream)
		} else {
			s.metrics.IncPricing(metrics.OutcomeError)
		}
		return nil, err
	}

	prices := make([]float64, len(result.Results))
	for i, listing := range result.Results {
		prices[i] = listing.Price
	}
	stats, ok := ComputeStats(prices)
	if !ok {
		s.metrics.IncPricing(metrics.OutcomeEmpty)
		return nil, ErrNoListings
	}

	s.metrics.IncPricing(metrics.OutcomeOK)
	return &transport.PriceSummary{
		ProdutoPesquisado: product,
		TermoOtimizado:    term,
		TotalAnuncios:     len(result.Results),
		PrecoMedio:        stats.Mean,
		PrecoMinimo:       stats.Min,
		PrecoMaximo:       stats.Max,
		ExemploLink:       result.Results[0].Permalink,
	}, nil
}
