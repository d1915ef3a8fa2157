package melifetcher

import (
	"net/http"
	"time"

	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"
)

// realEstateCategory is the MLA category for inmuebles.
const realEstateCategory = "MLA1459"

// MeliFetcherAdapter talks to the MercadoLibre search API. The API is a
// plain JSON service, so a standard HTTP client is enough here.
type MeliFetcherAdapter struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      port.LoggerPort
}

func NewMeliFetcherAdapter(baseURL, accessToken string, timeout time.Duration, logger port.LoggerPort) *MeliFetcherAdapter {
	return &MeliFetcherAdapter{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (a *MeliFetcherAdapter) Platform() domain.Platform {
	return domain.PlatformMercadoLibre
}
