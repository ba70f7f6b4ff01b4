// Package sheets fetches the pricing tabs of the remote catalog spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Fetch modes reported in sync results.
const (
	ModeCSV            = "sheets_csv"
	ModeServiceAccount = "sheets_service_account"
)

// Row is one spreadsheet row keyed by header text.
type Row map[string]string

// Tables holds the rows of the machines tab and the prices tab.
type Tables struct {
	Machines []Row
	Prices   []Row
}

// Tabs names the two spreadsheet tabs.
type Tabs struct {
	Machines string
	Prices   string
}

type tabReader func(ctx context.Context, tab string) ([]Row, error)

// fetchTables reads both tabs concurrently. Either failure fails the fetch.
func fetchTables(ctx context.Context, tabs Tabs, read tabReader) (Tables, error) {
	var out Tables
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := read(gctx, tabs.Machines)
		if err != nil {
			return fmt.Errorf("tab %s: %w", tabs.Machines, err)
		}
		out.Machines = rows
		return nil
	})
	g.Go(func() error {
		rows, err := read(gctx, tabs.Prices)
		if err != nil {
			return fmt.Errorf("tab %s: %w", tabs.Prices, err)
		}
		out.Prices = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Tables{}, err
	}
	return out, nil
}

// rowsFromGrid turns a header row plus data rows into Rows. Short rows are
// padded with empty cells and fully blank rows are dropped.
func rowsFromGrid(grid [][]string) []Row {
	if len(grid) == 0 {
		return nil
	}
	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = strings.TrimSpace(h)
	}
	rows := make([]Row, 0, len(grid)-1)
	for _, record := range grid[1:] {
		row := make(Row, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			cell := ""
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			if cell != "" {
				blank = false
			}
			row[h] = cell
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows
}
