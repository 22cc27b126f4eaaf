package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	ColumnReviewID   = "review_id"
	ColumnAppName    = "app_name"
	ColumnReviewText = "review_text"
	ColumnRating     = "rating"
)

var columnAliases = map[string]string{
	"review_id":   ColumnReviewID,
	"id":          ColumnReviewID,
	"app_name":    ColumnAppName,
	"review_text": ColumnReviewText,
	"text":        ColumnReviewText,
	"rating":      ColumnRating,
}

// Row is one data line of a batch file. Absent columns are left empty;
// Err is set when the line could not be parsed.
type Row struct {
	Line     int
	ReviewID string
	AppName  string
	Text     string
	Rating   string
	Err      error
}

// ReadRows parses a header-prefixed CSV batch. Only header problems are
// returned as an error; broken lines come back as rows carrying Err.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty batch")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := indexColumns(header)
	if len(columns) == 0 {
		return nil, fmt.Errorf("read header: no recognized columns in %v", header)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("read batch: %w", err)
			}
			line := parseErr.Line
			rows = append(rows, Row{Line: line, Err: fmt.Errorf("parse line %d: %w", line, err)})
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, Row{
			Line:     line,
			ReviewID: field(record, columns, ColumnReviewID),
			AppName:  field(record, columns, ColumnAppName),
			Text:     field(record, columns, ColumnReviewText),
			Rating:   field(record, columns, ColumnRating),
		})
	}

	return rows, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := columns[canonical]; dup {
			continue
		}
		columns[canonical] = i
	}
	return columns
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}
