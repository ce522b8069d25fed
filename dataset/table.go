package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// table streams the rows of a tabular file after its header.
type table interface {
	Header() []string
	// Next returns the next data row, or io.EOF.
	Next() ([]string, error)
	Close() error
}

// Format returns the table format for a file path: "xlsx" or "csv".
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	default:
		return "csv"
	}
}

func openTable(path string) (table, error) {
	if Format(path) == "xlsx" {
		return openXLSX(path)
	}
	return openCSV(path)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvTable struct {
	f      *os.File
	r      *csv.Reader
	header []string
	delim  rune
}

func openCSV(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV: %w", err)
	}

	br := bufio.NewReaderSize(f, 4096)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	sample, err := br.Peek(sniffSampleSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		f.Close()
		return nil, fmt.Errorf("reading CSV sample: %w", err)
	}
	delim, ok := sniffDelimiter(sample, len(sample) == sniffSampleSize)
	if !ok {
		delim = ','
	}

	r := csv.NewReader(br)
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("CSV file is empty")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	return &csvTable{f: f, r: r, header: header, delim: delim}, nil
}

func (t *csvTable) Header() []string { return t.header }

func (t *csvTable) Next() ([]string, error) { return t.r.Read() }

func (t *csvTable) Close() error { return t.f.Close() }

// xlsxTable reads the first worksheet of a workbook.
type xlsxTable struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
	sheet  string
}

func openXLSX(path string) (*xlsxTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("XLSX has no worksheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	t := &xlsxTable{f: f, rows: rows, sheet: sheets[0]}
	header, err := t.Next()
	if err != nil {
		t.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("sheet %q is empty", sheets[0])
		}
		return nil, err
	}
	t.header = header
	return t, nil
}

func (t *xlsxTable) Header() []string { return t.header }

func (t *xlsxTable) Next() ([]string, error) {
	if !t.rows.Next() {
		if err := t.rows.Error(); err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", t.sheet, err)
		}
		return nil, io.EOF
	}
	return t.rows.Columns()
}

func (t *xlsxTable) Close() error {
	t.rows.Close()
	return t.f.Close()
}
