package zonapropfetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"

	"github.com/gocolly/colly/v2"
)

const postingsPath = "/rplis-api/postings?dynamicListingSearch=true"

type searchResponse struct {
	ListPostings []json.RawMessage `json:"listPostings"`
	Paging       pagingInfo        `json:"paging"`
}

type pagingInfo struct {
	Total       int  `json:"total"`
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	LastPage    bool `json:"lastPage"`
}

// searchPayload mirrors the body the Zonaprop listing search expects. Fields
// the pipeline never filters on are sent with their neutral values; the API
// rejects requests that omit them.
type searchPayload struct {
	TipoDePropiedad    string  `json:"tipoDePropiedad"`
	TipoDeOperacion    string  `json:"tipoDeOperacion"`
	PreTipoDeOperacion string  `json:"preTipoDeOperacion"`
	TipoAnunciante     string  `json:"tipoAnunciante"`
	Sort               string  `json:"sort"`
	Province           string  `json:"province"`
	Zone               *string `json:"zone"`
	City               *string `json:"city"`
	Page               int     `json:"page"`
	Offset             int     `json:"offset"`
	Limit              int     `json:"limit"`
}

func (a *ZonapropFetcherAdapter) buildPayload(req domain.PageRequest) ([]byte, int, error) {
	offset := (req.PageNumber - 1) * req.PageSize
	if req.Continuation != "" {
		parsed, err := strconv.Atoi(req.Continuation)
		if err != nil {
			return nil, 0, fmt.Errorf("bad continuation %q: %w", req.Continuation, err)
		}
		offset = parsed
	}

	var zone *string
	if req.Zone.ZonapropZoneCode != "" {
		z := req.Zone.ZonapropZoneCode
		zone = &z
	}

	payload := searchPayload{
		TipoDePropiedad:    "2", // departamentos
		TipoDeOperacion:    req.Operation.ZonapropCode,
		PreTipoDeOperacion: req.Operation.ZonapropCode,
		TipoAnunciante:     "ALL",
		Sort:               "relevance",
		Province:           req.Zone.ZonapropProvinceCode,
		Zone:               zone,
		Page:               req.PageNumber,
		Offset:             offset,
		Limit:              req.PageSize,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	return body, offset, nil
}

// FetchPage requests one page of postings for the (zone, operation) pair.
// Pagination advances by offset; the continuation carried between pages is
// the next offset as reported by the API's paging block.
func (a *ZonapropFetcherAdapter) FetchPage(ctx context.Context, req domain.PageRequest) (*domain.RawPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, offset, err := a.buildPayload(req)
	if err != nil {
		return nil, domain.NewTerminalFetchError(domain.PlatformZonaprop, 0, err)
	}

	// inherits the parent limits but carries its own handlers
	collector := a.collector.Clone()

	var page *domain.RawPage
	var fetchErr error

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Content-Type", "application/json")
		r.Headers.Set("Accept", "*/*")
		r.Headers.Set("X-Requested-With", "XMLHttpRequest")
		r.Headers.Set("Referer", a.baseURL+"/inmuebles-venta-capital-federal.html")
	})

	collector.OnResponse(func(r *colly.Response) {
		var data searchResponse
		if jsonErr := json.Unmarshal(r.Body, &data); jsonErr != nil {
			fetchErr = domain.NewTransientFetchError(domain.PlatformZonaprop, r.StatusCode,
				fmt.Errorf("malformed response from %s: %w", r.Request.URL.String(), jsonErr))
			return
		}

		next := ""
		if !data.Paging.LastPage {
			next = strconv.Itoa(data.Paging.Offset + data.Paging.Limit)
		}
		page = &domain.RawPage{
			Items:            data.ListPostings,
			HasMore:          !data.Paging.LastPage && len(data.ListPostings) > 0,
			NextContinuation: next,
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = classifyStatus(r.StatusCode, fmt.Errorf("request to %s failed: %w", r.Request.URL, err))
	})

	targetURL := a.baseURL + postingsPath
	a.logger.Debug("zonaprop: fetching page", port.Fields{
		"zone":      req.Zone.Key,
		"operation": string(req.Operation.Key),
		"page":      req.PageNumber,
		"offset":    offset,
	})

	visitErr := collector.PostRaw(targetURL, body)
	collector.Wait()

	// PostRaw reports every HTTP error status as a bare error; the OnError
	// handler saw the real status code, so its classification wins
	if visitErr != nil && fetchErr == nil {
		fetchErr = domain.NewTransientFetchError(domain.PlatformZonaprop, 0,
			fmt.Errorf("failed to post to %s: %w", targetURL, visitErr))
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	if page == nil {
		return nil, domain.NewTransientFetchError(domain.PlatformZonaprop, 0,
			fmt.Errorf("no response received from %s", targetURL))
	}
	return page, nil
}

// classifyStatus maps an HTTP status to the retry policy: connection
// failures, 5xx, timeouts and throttling are retryable; other client errors
// are not.
func classifyStatus(status int, err error) *domain.FetchError {
	switch {
	case status == 0, status >= 500, status == 408, status == 429:
		return domain.NewTransientFetchError(domain.PlatformZonaprop, status, err)
	default:
		return domain.NewTerminalFetchError(domain.PlatformZonaprop, status, err)
	}
}
