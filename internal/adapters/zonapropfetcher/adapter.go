package zonapropfetcher

import (
	"log"
	"net/url"
	"time"

	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// ZonapropFetcherAdapter is responsible for all interactions with the
// Zonaprop listings API. The site sits behind scrape protection, so all
// requests go through a shared colly collector with browser-like headers
// and rate limits.
type ZonapropFetcherAdapter struct {
	// one parent collector that shares limits across clones
	collector *colly.Collector
	baseURL   string
	logger    port.LoggerPort
}

// NewZonapropFetcherAdapter builds the shared collector.
func NewZonapropFetcherAdapter(baseURL string, timeout time.Duration, logger port.LoggerPort) *ZonapropFetcherAdapter {
	u, err := url.Parse(baseURL)
	if err != nil {
		log.Fatalf("ZonapropFetcherAdapter: invalid base URL %q: %v", baseURL, err)
	}

	c := colly.NewCollector(colly.AllowedDomains(u.Host), colly.AllowURLRevisit())
	c.SetRequestTimeout(timeout)

	err = c.Limit(&colly.LimitRule{
		DomainGlob:  u.Host,
		Parallelism: 1,
		RandomDelay: 1 * time.Second,
	})
	if err != nil {
		log.Fatalf("ZonapropFetcherAdapter: Failed to set limit rule: %v", err)
	}

	extensions.RandomUserAgent(c) // every request carries a real browser User-Agent
	extensions.Referer(c)

	return &ZonapropFetcherAdapter{
		collector: c,
		baseURL:   baseURL,
		logger:    logger,
	}
}

func (a *ZonapropFetcherAdapter) Platform() domain.Platform {
	return domain.PlatformZonaprop
}
