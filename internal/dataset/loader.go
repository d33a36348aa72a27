// Package dataset loads the survey table into an immutable in-memory dataset.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/target/surveystats/internal/domain/model"
)

// Column headers read from the source table.
const (
	ColumnLocation               = "LocationDesc"
	ColumnQuestion               = "Question"
	ColumnValue                  = "Data_Value"
	ColumnStratificationCategory = "StratificationCategory1"
	ColumnStratification         = "Stratification1"
)

var requiredColumns = []string{ColumnLocation, ColumnQuestion, ColumnValue}

// ErrUnsupportedFormat is returned for files that are neither .csv nor .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// LoadOptions configures Load.
type LoadOptions struct {
	Path string
	// LowerIsBetter overrides DefaultLowerIsBetter when non-empty.
	LowerIsBetter []string
	Logger        *slog.Logger
}

// Stats summarizes a load.
type Stats struct {
	Rows    int
	Loaded  int
	Skipped int
}

// Load reads the dataset at opts.Path.
func Load(opts LoadOptions) (*model.Dataset, Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(opts.Path)) {
	case ".csv":
		rows, err = readCSV(opts.Path)
	case ".xlsx":
		rows, err = readXLSX(opts.Path)
	default:
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Path)
	}
	if err != nil {
		return nil, Stats{}, err
	}

	records, stats, err := parseRows(rows)
	if err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", opts.Path, err)
	}

	lower := opts.LowerIsBetter
	if len(lower) == 0 {
		lower = DefaultLowerIsBetter()
	}

	logger.Info("dataset loaded",
		"path", opts.Path,
		"rows", stats.Rows,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
		"lower_is_better", len(lower))

	return model.NewDataset(records, lower), stats, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func parseRows(rows [][]string) ([]model.Record, Stats, error) {
	var stats Stats
	if len(rows) == 0 {
		return nil, stats, errors.New("missing header row")
	}

	cols := buildColumnMap(rows[0])
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, stats, fmt.Errorf("missing column %q", name)
		}
	}

	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		stats.Rows++

		raw := cell(row, cols, ColumnValue)
		value, err := strconv.ParseFloat(raw, 64)
		if raw == "" || err != nil || math.IsNaN(value) {
			stats.Skipped++
			continue
		}

		records = append(records, model.Record{
			Location:               cell(row, cols, ColumnLocation),
			Question:               cell(row, cols, ColumnQuestion),
			Value:                  value,
			StratificationCategory: optional(cell(row, cols, ColumnStratificationCategory)),
			Stratification:         optional(cell(row, cols, ColumnStratification)),
		})
		stats.Loaded++
	}
	return records, stats, nil
}

func buildColumnMap(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

// cell returns the trimmed value of a column. Submitted job parameters are trimmed the same way.
func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
