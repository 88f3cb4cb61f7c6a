package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// CSVExporter renders datasets as delimited text.
type CSVExporter struct {
	delimiter rune
}

// NewCSVExporter builds a CSV exporter; a zero delimiter means ';'.
func NewCSVExporter(delimiter rune) *CSVExporter {
	if delimiter == 0 {
		delimiter = ';'
	}
	return &CSVExporter{delimiter: delimiter}
}

// Render produces the encoded bytes for the dataset, header line first.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.delimiter
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(data.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse reads a dataset previously written by Render.
func (e *CSVExporter) Parse(name string, r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = e.delimiter
	records, err := reader.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv %s: %w", name, err)
	}
	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("csv %s has no header", name)
	}
	return Dataset{Name: name, Headers: records[0], Rows: records[1:]}, nil
}
