package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPRowsProvider fetches spreadsheet rows from a CSV export
// endpoint, the kind hosted spreadsheet services expose for shared
// documents. urlTemplate contains one %s placeholder for the sheet ID.
type HTTPRowsProvider struct {
	client      *http.Client
	urlTemplate string
}

func NewHTTPRowsProvider(urlTemplate string, client *http.Client) *HTTPRowsProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRowsProvider{client: client, urlTemplate: urlTemplate}
}

func (p *HTTPRowsProvider) FetchRows(ctx context.Context, sheetID, rangeSpec string) ([][]string, error) {
	exportURL := fmt.Sprintf(p.urlTemplate, url.PathEscape(sheetID))
	if rangeSpec != "" {
		sep := "?"
		if u, err := url.Parse(exportURL); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		exportURL += sep + "range=" + url.QueryEscape(rangeSpec)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build export request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet export returned %s", resp.Status)
	}

	reader := csv.NewReader(resp.Body)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse sheet export: %w", err)
	}
	return rows, nil
}
