// Command importer reconciles one spreadsheet against the configured catalog
// and prints the run report.
//
//	importer --file stock.xlsx [--dry-run] [--json] [--config barstock.yaml]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/barstock/backend/config"
	"github.com/barstock/backend/internal/bootstrap"
	"github.com/barstock/backend/internal/infrastructure/logger"
	"github.com/barstock/backend/internal/infrastructure/tabular"
	"github.com/barstock/backend/internal/usecase"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	file       string
	configFile string
	sheet      string
	dryRun     bool
	asJSON     bool
	dedupe     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, *pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("importer", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVarP(&opts.file, "file", "f", "", "spreadsheet to import (.xlsx, .xlsm, .csv, .txt)")
	fs.StringVarP(&opts.configFile, "config", "c", "", "config file (default: search ./config.yaml, ./config, /etc/barstock)")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet name (default: first non-empty sheet)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "match and report without writing to the catalog")
	fs.BoolVar(&opts.asJSON, "json", false, "print the full report as JSON")
	fs.BoolVar(&opts.dedupe, "dedupe", false, "let later rows match products created earlier in the run")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if opts.file == "" {
		return nil, fs, errors.New("--file is required")
	}
	return opts, fs, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "importer: %v\n", err)
		fs.PrintDefaults()
		return exitUsage
	}

	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "importer: %v\n", err)
		return exitFailure
	}
	if fs.Changed("dedupe") {
		cfg.Import.DedupeWithinRun = opts.dedupe
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "importer: %v\n", err)
		return exitFailure
	}
	defer zapLogger.Sync()

	provider, closeCatalog, err := bootstrap.NewCatalogProvider(ctx, cfg.Catalog, zapLogger)
	if err != nil {
		zapLogger.Error("catalog unavailable", zap.Error(err))
		return exitFailure
	}
	defer closeCatalog()

	reports, closeReports, err := bootstrap.NewReportRepository(ctx, cfg.Reports)
	if err != nil {
		zapLogger.Error("report store unavailable", zap.Error(err))
		return exitFailure
	}
	defer closeReports()

	service := bootstrap.NewReconciliationService(cfg, provider, reports, nil, zapLogger)

	var readerOpts []tabular.Option
	if opts.sheet != "" {
		readerOpts = append(readerOpts, tabular.WithSheet(opts.sheet))
	}

	result, runErr := service.ImportFile(ctx, tabular.NewFileReader(readerOpts...), opts.file, usecase.ImportOptions{
		DryRun: opts.dryRun,
	})

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "importer: %v\n", err)
			return exitFailure
		}
	} else {
		fmt.Fprint(stdout, usecase.FormatSummary(result))
	}

	if runErr != nil {
		return exitFailure
	}
	return exitOK
}
