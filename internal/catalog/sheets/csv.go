package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultDocsBaseURL = "https://docs.google.com"
	userAgent          = "vc999-catalog-sync/1.0"
	maxTabBytes        = 10 << 20
)

// ErrTabTooLarge is returned when a tab exceeds maxTabBytes. The tab is
// rejected rather than parsed truncated.
var ErrTabTooLarge = errors.New("sheet tab exceeds size limit")

// CSVFetcher reads a publicly shared spreadsheet through its CSV export.
type CSVFetcher struct {
	client  *http.Client
	baseURL string
	sheetID string
	tabs    Tabs
}

// NewCSVFetcher creates a fetcher. An empty baseURL uses docs.google.com.
func NewCSVFetcher(client *http.Client, baseURL, sheetID string, tabs Tabs) *CSVFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultDocsBaseURL
	}
	return &CSVFetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		sheetID: sheetID,
		tabs:    tabs,
	}
}

// Mode reports the fetch mode.
func (f *CSVFetcher) Mode() string { return ModeCSV }

// Fetch downloads both tabs.
func (f *CSVFetcher) Fetch(ctx context.Context) (Tables, error) {
	return fetchTables(ctx, f.tabs, f.readTab)
}

func (f *CSVFetcher) tabURL(tab string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		f.baseURL, url.PathEscape(f.sheetID), url.QueryEscape(tab))
}

func (f *CSVFetcher) readTab(ctx context.Context, tab string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.tabURL(tab), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := readTabBody(resp.Body, maxTabBytes)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimPrefix(body, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rowsFromGrid(grid), nil
}

func readTabBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("read body: %w (%d bytes)", ErrTabTooLarge, limit)
	}
	return body, nil
}
