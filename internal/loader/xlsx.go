// Package loader reads instrument lists from spreadsheets.
package loader

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/quotelab/stock-consensus/internal/model"
)

// columnAliases maps header spellings to canonical column names.
var columnAliases = map[string]string{
	"ticker":         "ticker",
	"symbol":         "ticker",
	"price":          "price",
	"last":           "price",
	"close":          "price",
	"change":         "change",
	"change %":       "change",
	"change percent": "change",
	"volume":         "volume",
	"vol":            "volume",
	"context":        "context",
	"notes":          "context",
	"info":           "context",
}

// Options configures the spreadsheet parser.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// LoadInstruments reads instruments from an XLSX file. The first row must be
// a header containing at least a ticker and a price column; column order is
// free. Rows without a ticker are skipped.
func LoadInstruments(path string, opts Options) ([]model.Instrument, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("loader: empty sheet")
	}

	columns, err := mapColumns(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var instruments []model.Instrument
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		ticker := strings.ToUpper(strings.TrimSpace(cell(cells, columns["ticker"])))
		if ticker == "" {
			continue
		}

		inst := model.Instrument{
			Ticker:  ticker,
			Context: strings.TrimSpace(cell(cells, columns["context"])),
		}
		if inst.Price, err = parseFloat(cell(cells, columns["price"])); err != nil {
			return nil, eris.Wrapf(err, "loader: price for %s", ticker)
		}
		if inst.ChangePercent, err = parseFloat(cell(cells, columns["change"])); err != nil {
			return nil, eris.Wrapf(err, "loader: change for %s", ticker)
		}
		volume, err := parseFloat(cell(cells, columns["volume"]))
		if err != nil {
			return nil, eris.Wrapf(err, "loader: volume for %s", ticker)
		}
		inst.Volume = int64(volume)

		instruments = append(instruments, inst)
	}
	return instruments, nil
}

// mapColumns resolves header names to cell indexes. ticker and price are
// required; the rest default to absent (index -1).
func mapColumns(header []string) (map[string]int, error) {
	columns := map[string]int{
		"ticker":  -1,
		"price":   -1,
		"change":  -1,
		"volume":  -1,
		"context": -1,
	}
	for i, name := range header {
		canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if columns[canonical] == -1 {
			columns[canonical] = i
		}
	}
	if columns["ticker"] == -1 {
		return nil, eris.New("loader: no ticker column in header")
	}
	if columns["price"] == -1 {
		return nil, eris.New("loader: no price column in header")
	}
	return columns, nil
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("loader: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("loader: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// parseFloat accepts spreadsheet number formats: currency signs, thousands
// separators, and trailing percent signs. Empty cells parse to zero.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
