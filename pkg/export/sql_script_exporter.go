package export

import (
	"bytes"
	"fmt"
	"strings"
)

// SQLScriptExporter renders datasets into a bulk INSERT script.
type SQLScriptExporter struct {
	chunkSize int
}

// NewSQLScriptExporter builds an exporter that packs chunkSize rows per statement.
func NewSQLScriptExporter(chunkSize int) *SQLScriptExporter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &SQLScriptExporter{chunkSize: chunkSize}
}

// Render writes every dataset in table order, wrapped in disabled foreign key checks.
func (e *SQLScriptExporter) Render(sets []Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString("-- generated sample data for the digital class register\n\n")
	buf.WriteString("SET FOREIGN_KEY_CHECKS = 0;\n\n")

	for _, data := range SortByTableOrder(sets) {
		if err := data.Validate(); err != nil {
			return nil, err
		}
		fmt.Fprintf(buf, "-- table %s: %d rows\n", data.Name, len(data.Rows))
		columns := strings.Join(data.Headers, ", ")
		for start := 0; start < len(data.Rows); start += e.chunkSize {
			end := start + e.chunkSize
			if end > len(data.Rows) {
				end = len(data.Rows)
			}
			fmt.Fprintf(buf, "INSERT IGNORE INTO %s (%s) VALUES\n", data.Name, columns)
			for i, row := range data.Rows[start:end] {
				values := make([]string, len(row))
				for j, v := range row {
					values[j] = SQLLiteral(v)
				}
				buf.WriteString("(" + strings.Join(values, ", ") + ")")
				if start+i == end-1 {
					buf.WriteString(";\n\n")
				} else {
					buf.WriteString(",\n")
				}
			}
		}
	}

	buf.WriteString("SET FOREIGN_KEY_CHECKS = 1;\n")
	return buf.Bytes(), nil
}

// SQLLiteral converts a cell into a SQL literal: empty is NULL, numbers stay bare.
func SQLLiteral(value string) string {
	if value == "" {
		return "NULL"
	}
	if isNumeric(value) {
		return value
	}
	switch strings.ToLower(value) {
	case "true", "false":
		return strings.ToUpper(value)
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func isNumeric(value string) bool {
	digits, dots := 0, 0
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
