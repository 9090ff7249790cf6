package collector

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"RLTrader/internal/model"
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "01/02/2006"}

// LoadHistory reads every CSV file matched by the glob pattern into market
// data. The instrument name is the file's base name without extension. A
// header row is required with Date and Close columns; Open, High, Low and
// Volume are optional.
func LoadHistory(pattern string) (*model.StockMarketData, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no history files match %s", pattern)
	}
	sort.Strings(paths)

	data := model.NewStockMarketData()
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, dup := data.Series[name]; dup {
			return nil, fmt.Errorf("duplicate instrument %s in %s", name, path)
		}
		bars, err := readCSV(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		data.Add(name, bars)
	}
	return data, nil
}

func readCSV(path string) ([]model.OHLCV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, okDate := cols["date"]
	closeCol, okClose := cols["close"]
	if !okDate || !okClose {
		return nil, errors.New("date and close columns are required")
	}

	var bars []model.OHLCV
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closePrice, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		if closePrice <= 0 {
			return nil, fmt.Errorf("line %d: close must be positive, got %v", line, closePrice)
		}
		bar := model.OHLCV{Time: t, Open: closePrice, High: closePrice, Low: closePrice, Close: closePrice}
		optional(rec, cols, "open", &bar.Open)
		optional(rec, cols, "high", &bar.High)
		optional(rec, cols, "low", &bar.Low)
		optional(rec, cols, "volume", &bar.Volume)
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, errors.New("no rows")
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func optional(rec []string, cols map[string]int, name string, dst *float64) {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
		*dst = v
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
