package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-generator/pkg/export"
)

// maxPlaceholders stays below the PostgreSQL bind parameter limit of 65535.
const maxPlaceholders = 60000

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// DatasetRepository bulk-loads exported datasets into PostgreSQL.
type DatasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository constructs repository.
func NewDatasetRepository(db *sqlx.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertDataset writes the rows of data in chunks of chunkSize rows. Rows that
// collide with an existing key are ignored. Empty cells are inserted as NULL.
func (r *DatasetRepository) InsertDataset(ctx context.Context, exec sqlx.ExtContext, data export.Dataset, chunkSize int) (int64, error) {
	if err := data.Validate(); err != nil {
		return 0, err
	}
	if !identifierPattern.MatchString(data.Name) {
		return 0, fmt.Errorf("invalid table name %q", data.Name)
	}
	for _, h := range data.Headers {
		if !identifierPattern.MatchString(h) {
			return 0, fmt.Errorf("invalid column %q in table %s", h, data.Name)
		}
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if limit := maxPlaceholders / len(data.Headers); chunkSize > limit {
		chunkSize = limit
	}

	target := r.exec(exec)
	var inserted int64
	for start := 0; start < len(data.Rows); start += chunkSize {
		end := start + chunkSize
		if end > len(data.Rows) {
			end = len(data.Rows)
		}
		query, args := buildInsert(data.Name, data.Headers, data.Rows[start:end])
		res, err := target.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert %s rows %d-%d: %w", data.Name, start+1, end, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	return inserted, nil
}

func buildInsert(table string, headers []string, rows [][]string) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(headers, ", "))
	args := make([]interface{}, 0, len(rows)*len(headers))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, value := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			args = append(args, nullable(value))
			fmt.Fprintf(&sb, "$%d", len(args))
		}
		sb.WriteString(")")
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")
	return sb.String(), args
}

func nullable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
