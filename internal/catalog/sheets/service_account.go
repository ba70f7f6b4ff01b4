package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultSheetsAPIBaseURL = "https://sheets.googleapis.com"
	sheetsReadonlyScope     = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// ServiceAccountFetcher reads the spreadsheet through the Sheets v4 API
// using service account credentials.
type ServiceAccountFetcher struct {
	client  *http.Client
	baseURL string
	sheetID string
	tabs    Tabs
}

// NewServiceAccountFetcherFromFile loads a service account key file.
func NewServiceAccountFetcherFromFile(credentialsPath, baseURL, sheetID string, tabs Tabs) (*ServiceAccountFetcher, error) {
	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read service account credentials: %w", err)
	}
	return NewServiceAccountFetcher(raw, baseURL, sheetID, tabs)
}

// NewServiceAccountFetcher builds an authorized client from key JSON. Token
// refreshes happen lazily on the first request.
func NewServiceAccountFetcher(credentialsJSON []byte, baseURL, sheetID string, tabs Tabs) (*ServiceAccountFetcher, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	if baseURL == "" {
		baseURL = defaultSheetsAPIBaseURL
	}
	return &ServiceAccountFetcher{
		client:  oauth2.NewClient(context.Background(), cfg.TokenSource(context.Background())),
		baseURL: strings.TrimRight(baseURL, "/"),
		sheetID: sheetID,
		tabs:    tabs,
	}, nil
}

// Mode reports the fetch mode.
func (f *ServiceAccountFetcher) Mode() string { return ModeServiceAccount }

// Fetch downloads both tabs.
func (f *ServiceAccountFetcher) Fetch(ctx context.Context) (Tables, error) {
	return fetchTables(ctx, f.tabs, f.readRange)
}

type valueRange struct {
	Values [][]any `json:"values"`
}

func (f *ServiceAccountFetcher) readRange(ctx context.Context, tab string) ([]Row, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		f.baseURL, url.PathEscape(f.sheetID), url.PathEscape(tab+"!A:ZZ"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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
	var payload valueRange
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}

	grid := make([][]string, len(payload.Values))
	for i, row := range payload.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellText(cell)
		}
		grid[i] = cells
	}
	return rowsFromGrid(grid), nil
}

func cellText(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprint(v)
	}
}
