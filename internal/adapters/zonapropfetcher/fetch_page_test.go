package zonapropfetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"listings-ingest-service/internal/core/domain"
	"listings-ingest-service/internal/core/port"

	"github.com/gocolly/colly/v2"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields port.Fields)            {}
func (nopLogger) Info(msg string, fields port.Fields)             {}
func (nopLogger) Warn(msg string, fields port.Fields)             {}
func (nopLogger) Error(msg string, err error, fields port.Fields) {}
func (nopLogger) WithFields(fields port.Fields) port.LoggerPort   { return nopLogger{} }

// serverAdapter builds an adapter against a local test server, without the
// production collector's domain filter and rate limits.
func serverAdapter(baseURL string) *ZonapropFetcherAdapter {
	return &ZonapropFetcherAdapter{
		collector: colly.NewCollector(),
		baseURL:   baseURL,
		logger:    nopLogger{},
	}
}

func pageRequest(pageNumber int, continuation string) domain.PageRequest {
	return domain.PageRequest{
		Zone: domain.ZoneConfig{
			Key:                  "capital_federal",
			ZonapropProvinceCode: "6",
		},
		Operation: domain.OperationConfig{
			Key:          domain.OperationSale,
			ZonapropCode: "1",
		},
		PageNumber:   pageNumber,
		Continuation: continuation,
		PageSize:     2,
	}
}

func TestFetchPagePaging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s; want POST", r.Method)
		}
		if r.URL.Path != "/rplis-api/postings" {
			t.Errorf("path = %s; want /rplis-api/postings", r.URL.Path)
		}

		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("payload did not decode: %v", err)
		}
		if payload["province"] != "6" {
			t.Errorf("province = %v; want 6", payload["province"])
		}
		if payload["tipoDeOperacion"] != "1" {
			t.Errorf("tipoDeOperacion = %v; want 1", payload["tipoDeOperacion"])
		}

		offset := int(payload["offset"].(float64))
		lastPage := offset >= 2
		fmt.Fprintf(w, `{
			"listPostings": [{"postingId": "%d"}, {"postingId": "%d"}],
			"paging": {"total": 4, "offset": %d, "limit": 2, "lastPage": %t}
		}`, offset+1, offset+2, offset, lastPage)
	}))
	defer server.Close()

	adapter := serverAdapter(server.URL)

	page, err := adapter.FetchPage(context.Background(), pageRequest(1, ""))
	if err != nil {
		t.Fatalf("FetchPage() = %v; want nil", err)
	}
	if len(page.Items) != 2 {
		t.Errorf("items = %d; want 2", len(page.Items))
	}
	if !page.HasMore {
		t.Error("HasMore = false; want true before the last page")
	}
	if page.NextContinuation != "2" {
		t.Errorf("NextContinuation = %q; want next offset 2", page.NextContinuation)
	}

	page, err = adapter.FetchPage(context.Background(), pageRequest(2, page.NextContinuation))
	if err != nil {
		t.Fatalf("FetchPage() = %v; want nil", err)
	}
	if page.HasMore {
		t.Error("HasMore = true on the last page; want false")
	}
	if page.NextContinuation != "" {
		t.Errorf("NextContinuation = %q; want empty on the last page", page.NextContinuation)
	}
}

func TestFetchPageClassifiesClientErrorAsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := serverAdapter(server.URL).FetchPage(context.Background(), pageRequest(1, ""))

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("FetchPage() = %v; want *FetchError", err)
	}
	if fetchErr.IsTransient() {
		t.Error("a 403 must be terminal, never retried")
	}
	if fetchErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d; want 403", fetchErr.StatusCode)
	}
}

func TestFetchPageClassifiesServerErrorAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := serverAdapter(server.URL).FetchPage(context.Background(), pageRequest(1, ""))

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("FetchPage() = %v; want *FetchError", err)
	}
	if !fetchErr.IsTransient() {
		t.Error("a 503 must be transient")
	}
	if fetchErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d; want 503", fetchErr.StatusCode)
	}
}

func TestFetchPageMalformedResponseIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>captcha</html>")
	}))
	defer server.Close()

	_, err := serverAdapter(server.URL).FetchPage(context.Background(), pageRequest(1, ""))

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("FetchPage() = %v; want *FetchError", err)
	}
	if !fetchErr.IsTransient() {
		t.Error("a malformed body must be transient")
	}
}

func TestFetchPageBadContinuationIsTerminal(t *testing.T) {
	_, err := serverAdapter("http://127.0.0.1:0").FetchPage(context.Background(), pageRequest(2, "not-a-number"))

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("FetchPage() = %v; want *FetchError", err)
	}
	if fetchErr.IsTransient() {
		t.Error("a bad continuation must be terminal")
	}
}
