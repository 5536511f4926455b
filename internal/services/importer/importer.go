// Package importer handles CSV import of transactions
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dimasprabowo/fintrack/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyFile     = errors.New("CSV file is empty")
	ErrUnknownFormat = errors.New("unknown CSV format")
	ErrNoData        = errors.New("no valid transactions found")
)

// expected header columns, in any order
var columns = []string{"date", "title", "amount", "type", "category"}

// Row is one parsed transaction line, not yet persisted
type Row struct {
	Title    string
	Amount   decimal.Decimal
	Kind     models.Kind
	Category string
	Date     string
}

// ParseResult contains the rows that parsed cleanly plus one message per
// skipped line
type ParseResult struct {
	Rows   []Row
	Errors []string
}

// ParseCSV reads a transaction export with a header line of
// date,title,amount,type,category (any order). Lines that fail
// validation are collected in Errors instead of aborting the import.
func ParseCSV(reader io.Reader) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	index, ok := mapHeader(records[0])
	if !ok {
		return nil, ErrUnknownFormat
	}

	result := &ParseResult{}
	for i, record := range records[1:] {
		row, err := parseRow(record, index)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", i+2, err))
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	if len(result.Rows) == 0 {
		return nil, ErrNoData
	}
	return result, nil
}

func mapHeader(header []string) (map[string]int, bool) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, false
		}
	}
	return index, true
}

func parseRow(record []string, index map[string]int) (Row, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	title := field("title")
	if title == "" {
		return Row{}, errors.New("blank title")
	}

	amount, err := decimal.NewFromString(field("amount"))
	if err != nil || !amount.IsPositive() {
		return Row{}, fmt.Errorf("invalid amount %q", field("amount"))
	}

	kind := models.Kind(strings.ToLower(field("type")))
	if !kind.Valid() {
		return Row{}, fmt.Errorf("invalid type %q", field("type"))
	}

	category := field("category")
	if !models.ValidCategory(category) {
		// Unknown categories fall back to the catch-all instead of
		// failing the whole line.
		category = "Lainnya"
	}

	date := field("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return Row{}, fmt.Errorf("invalid date %q", date)
	}

	return Row{
		Title:    title,
		Amount:   amount,
		Kind:     kind,
		Category: category,
		Date:     date,
	}, nil
}
