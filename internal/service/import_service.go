package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-timetable-generator/pkg/errors"
	"github.com/noah-isme/sma-timetable-generator/pkg/export"
)

type datasetWriter interface {
	InsertDataset(ctx context.Context, exec sqlx.ExtContext, data export.Dataset, chunkSize int) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type datasetParser interface {
	Parse(name string, r io.Reader) (export.Dataset, error)
}

// ImportReport counts inserted rows per table.
type ImportReport struct {
	Tables  map[string]int64 `json:"tables"`
	Skipped []string         `json:"skipped,omitempty"`
}

// ImportService loads datasets into the class-register database.
type ImportService struct {
	tx        txProvider
	repo      datasetWriter
	parser    datasetParser
	metrics   *MetricsService
	logger    *zap.Logger
	chunkSize int
}

// NewImportService constructs an ImportService.
func NewImportService(tx txProvider, repo datasetWriter, parser datasetParser, chunkSize int, metrics *MetricsService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = export.NewCSVExporter(';')
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &ImportService{tx: tx, repo: repo, parser: parser, metrics: metrics, logger: logger, chunkSize: chunkSize}
}

// Import inserts sets in foreign-key order inside one transaction. Tables
// without a dataset are skipped with a warning; any insert error rolls back
// the whole import.
func (s *ImportService) Import(ctx context.Context, sets []export.Dataset) (report *ImportReport, err error) {
	if s.tx == nil || s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "database import is not configured")
	}
	byName := make(map[string]export.Dataset, len(sets))
	for _, data := range sets {
		byName[data.Name] = data
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin import transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	report = &ImportReport{Tables: make(map[string]int64, len(export.TableOrder))}
	for _, table := range export.TableOrder {
		data, ok := byName[table]
		if !ok {
			s.logger.Warn("dataset missing, table skipped", zap.String("table", table))
			report.Skipped = append(report.Skipped, table)
			continue
		}
		start := time.Now()
		inserted, insertErr := s.repo.InsertDataset(ctx, tx, data, s.chunkSize)
		s.metrics.ObserveDBQuery("import_"+table, time.Since(start))
		if insertErr != nil {
			err = appErrors.Wrap(insertErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to import table %s", table))
			return nil, err
		}
		report.Tables[table] = inserted
		s.logger.Debug("table imported", zap.String("table", table), zap.Int64("rows", inserted))
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit import transaction")
		return nil, err
	}
	s.logger.Info("datasets imported", zap.Int("tables", len(report.Tables)), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// LoadDir reads the CSV file of every known table from dir. Missing files are
// left out so Import can skip them.
func (s *ImportService) LoadDir(dir string) ([]export.Dataset, error) {
	sets := make([]export.Dataset, 0, len(export.TableOrder))
	for _, table := range export.TableOrder {
		data, err := s.loadFile(filepath.Join(dir, table+".csv"), table)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		sets = append(sets, data)
	}
	return sets, nil
}

func (s *ImportService) loadFile(path, table string) (export.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return export.Dataset{}, err
	}
	defer file.Close()
	return s.parser.Parse(table, file)
}
