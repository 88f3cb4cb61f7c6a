package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/csvio"
	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/internal/repository"
	"github.com/noah-isme/sma-timetable-generator/internal/service"
	"github.com/noah-isme/sma-timetable-generator/pkg/config"
	"github.com/noah-isme/sma-timetable-generator/pkg/database"
	"github.com/noah-isme/sma-timetable-generator/pkg/export"
	"github.com/noah-isme/sma-timetable-generator/pkg/logger"
	"github.com/noah-isme/sma-timetable-generator/pkg/storage"
)

const reportFile = "lehrerauslastung.csv"

type options struct {
	seed       int64
	schoolYear string
	start      string
	days       int
	attempts   int
	inputDir   string
	outputDir  string
	runName    string
	importDB   bool
	importOnly string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := options{}
	flag.Int64Var(&opts.seed, "seed", cfg.Generator.Seed, "random seed")
	flag.StringVar(&opts.schoolYear, "school-year", cfg.Generator.SchoolYear, "school year label, e.g. 2026/27")
	flag.StringVar(&opts.start, "start", cfg.Generator.SimulationStart.Format("2006-01-02"), "first simulated day")
	flag.IntVar(&opts.days, "days", cfg.Generator.SimulationDays, "number of simulated calendar days")
	flag.IntVar(&opts.attempts, "attempts", cfg.Generator.AllocationAttempts, "slot allocation attempts per class")
	flag.StringVar(&opts.inputDir, "input", cfg.Generator.InputDir, "directory with reference tables and name lists")
	flag.StringVar(&opts.outputDir, "out", cfg.Export.Dir, "export directory")
	flag.StringVar(&opts.runName, "name", "", "sub directory for this run (default seed-<seed>)")
	flag.BoolVar(&opts.importDB, "import", false, "import the generated tables into PostgreSQL")
	flag.StringVar(&opts.importOnly, "import-dir", "", "skip generation and import the CSV tables found in this directory")
	flag.Parse()

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logr); err != nil {
		logr.Fatal("generator failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logr *zap.Logger) error {
	metrics := service.NewMetricsService()

	if opts.importOnly != "" {
		importer, closeDB, err := newImporter(ctx, cfg, metrics, logr)
		if err != nil {
			return err
		}
		defer closeDB()
		sets, err := importer.LoadDir(opts.importOnly)
		if err != nil {
			return err
		}
		return importSets(ctx, importer, sets, logr)
	}

	start, err := time.Parse("2006-01-02", opts.start)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}

	loader := csvio.NewLoader(opts.inputDir, cfg.Export.Delimiter)
	reference, err := loader.ReferenceData(service.DefaultReferenceData())
	if err != nil {
		return err
	}
	names, err := loader.NameLists()
	if err != nil {
		return err
	}

	generator := service.NewGeneratorService(reference, names, metrics, logr)
	result, err := generator.Generate(ctx, models.RunParams{
		Seed:               opts.seed,
		SchoolYear:         opts.schoolYear,
		SimulationStart:    start,
		SimulationDays:     opts.days,
		AllocationAttempts: opts.attempts,
		Import:             opts.importDB,
	})
	if err != nil {
		return err
	}

	store, err := storage.NewLocalStorage(opts.outputDir)
	if err != nil {
		return err
	}
	runName := opts.runName
	if runName == "" {
		runName = fmt.Sprintf("seed-%d", opts.seed)
	}
	exporter := service.NewExportService(store, nil, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr,
		export.NewCSVExporter(cfg.Export.Delimiter), export.NewSQLScriptExporter(cfg.Export.SQLChunkSize), nil)
	artifacts, err := exporter.Export(ctx, runName, result.Timetable)
	if err != nil {
		return err
	}

	report, err := csvio.MarshalReport(result.Report, cfg.Export.Delimiter)
	if err != nil {
		return err
	}
	if _, err := store.Save(runName, csvio.ReportFile, report); err != nil {
		return err
	}
	load, err := csvio.MarshalTeacherLoad(result, cfg.Export.Delimiter)
	if err != nil {
		return err
	}
	if _, err := store.Save(runName, reportFile, load); err != nil {
		return err
	}

	logr.Info("export finished",
		zap.String("dir", store.Path(runName)),
		zap.Int("artifacts", len(artifacts)),
		zap.Int("violations", result.Summary.Violations),
		zap.Int("split_pairs", result.Summary.SplitPairs),
	)

	if !opts.importDB {
		return nil
	}
	importer, closeDB, err := newImporter(ctx, cfg, metrics, logr)
	if err != nil {
		return err
	}
	defer closeDB()
	return importSets(ctx, importer, service.BuildDatasets(result.Timetable), logr)
}

func newImporter(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.ImportService, func(), error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	importer := service.NewImportService(db, repository.NewDatasetRepository(db),
		export.NewCSVExporter(cfg.Export.Delimiter), cfg.Export.SQLChunkSize, metrics, logr)
	return importer, func() { _ = db.Close() }, nil
}

func importSets(ctx context.Context, importer *service.ImportService, sets []export.Dataset, logr *zap.Logger) error {
	report, err := importer.Import(ctx, sets)
	if err != nil {
		return err
	}
	var rows int64
	for _, n := range report.Tables {
		rows += n
	}
	logr.Info("import finished", zap.Int("tables", len(report.Tables)), zap.Int64("rows", rows), zap.Strings("skipped", report.Skipped))
	return nil
}
