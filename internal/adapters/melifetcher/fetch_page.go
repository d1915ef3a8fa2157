package melifetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"
)

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
	Paging  pagingInfo        `json:"paging"`
}

type pagingInfo struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (a *MeliFetcherAdapter) buildSearchURL(req domain.PageRequest, offset int) string {
	q := url.Values{}
	q.Set("category", realEstateCategory)
	if req.Zone.MeliStateID != "" {
		q.Set("state", req.Zone.MeliStateID)
	}
	if req.Operation.MeliOperationID != "" {
		q.Set("OPERATION", req.Operation.MeliOperationID)
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(req.PageSize))

	return fmt.Sprintf("%s/sites/MLA/search?%s", a.baseURL, q.Encode())
}

// FetchPage requests one page of search results for the (zone, operation)
// pair. Pagination advances by offset against the paging.total the API
// reports.
func (a *MeliFetcherAdapter) FetchPage(ctx context.Context, req domain.PageRequest) (*domain.RawPage, error) {
	offset := (req.PageNumber - 1) * req.PageSize
	if req.Continuation != "" {
		parsed, err := strconv.Atoi(req.Continuation)
		if err != nil {
			return nil, domain.NewTerminalFetchError(domain.PlatformMercadoLibre, 0,
				fmt.Errorf("bad continuation %q: %w", req.Continuation, err))
		}
		offset = parsed
	}

	targetURL := a.buildSearchURL(req, offset)
	a.logger.Debug("mercadolibre: fetching page", port.Fields{
		"zone":      req.Zone.Key,
		"operation": string(req.Operation.Key),
		"page":      req.PageNumber,
		"offset":    offset,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, domain.NewTerminalFetchError(domain.PlatformMercadoLibre, 0,
			fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if a.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.accessToken)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewTransientFetchError(domain.PlatformMercadoLibre, 0,
			fmt.Errorf("request to %s failed: %w", targetURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("search returned status %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests {
			return nil, domain.NewTransientFetchError(domain.PlatformMercadoLibre, resp.StatusCode, err)
		}
		return nil, domain.NewTerminalFetchError(domain.PlatformMercadoLibre, resp.StatusCode, err)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, domain.NewTransientFetchError(domain.PlatformMercadoLibre, resp.StatusCode,
			fmt.Errorf("malformed response from %s: %w", targetURL, err))
	}

	nextOffset := data.Paging.Offset + data.Paging.Limit
	hasMore := nextOffset < data.Paging.Total && len(data.Results) > 0

	page := &domain.RawPage{
		Items:   data.Results,
		HasMore: hasMore,
	}
	if hasMore {
		page.NextContinuation = strconv.Itoa(nextOffset)
	}
	return page, nil
}
