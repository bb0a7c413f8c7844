package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/rtmonitor/internal/adapters/source"
	app "github.com/okian/rtmonitor/internal/app"
	"github.com/okian/rtmonitor/internal/config"
	"github.com/okian/rtmonitor/internal/domain/filter"
	"github.com/okian/rtmonitor/internal/domain/linelist"
	"github.com/okian/rtmonitor/internal/export"
	"github.com/okian/rtmonitor/pkg/logger"
)

const defaultExportTimeout = 10 * time.Minute

var errUsage = errors.New("usage")

// options holds the parsed command line.
type options struct {
	source       string
	region       string
	municipality string
	out          string
	format       string
	precision    int
	lang         string
	milestones   string
	verbose      bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	level := "info"
	if opts.verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultExportTimeout)
	defer cancel()

	paths, err := run(ctx, opts, logger.Get())
	if err != nil {
		logger.Get().Error(ctx, "export failed", logger.Error(err))
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("rt-export", flag.ContinueOnError)
	fs.StringVar(&o.source, "source", "", "Line list file (.json, .csv, optionally .gz) or http(s) URL")
	fs.StringVar(&o.region, "region", "", "Region (departamento) to select")
	fs.StringVar(&o.municipality, "municipality", "", "Municipality to select")
	fs.StringVar(&o.out, "out", ".", "Output directory")
	fs.StringVar(&o.format, "format", "tsv", "Output format: tsv or csv")
	fs.IntVar(&o.precision, "precision", 6, "Decimal places for real numbers")
	fs.StringVar(&o.lang, "lang", "", "Annotation language: en or es (default from config)")
	fs.StringVar(&o.milestones, "milestones", "", "Comma separated YYYY-MM-DD milestones (default from config)")
	fs.BoolVar(&o.verbose, "verbose", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.source == "" {
		return o, fmt.Errorf("%w: -source is required", errUsage)
	}
	if o.format != "tsv" && o.format != "csv" {
		return o, fmt.Errorf("%w: unknown format %q", errUsage, o.format)
	}
	return o, nil
}

// run evaluates one selector over the source and writes the tables to o.out.
func run(ctx context.Context, o options, log logger.Logger) ([]string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.lang != "" {
		cfg.Language = o.lang
	}
	if o.milestones != "" {
		cfg.Milestones = strings.Split(o.milestones, ",")
	}
	pipeline, err := app.PipelineFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var src source.Source = source.NewFileSource(o.source)
	if strings.HasPrefix(o.source, "http://") || strings.HasPrefix(o.source, "https://") {
		src = source.NewHTTPSource(o.source, source.WithLimit(cfg.SourceLimit))
	}

	start := time.Now()
	raws, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	records, report := linelist.Normalize(raws)
	log.Info(ctx, "line list loaded",
		logger.String("source", o.source),
		logger.Int("records", report.Records),
		logger.Int("malformed_dates", report.MalformedTotal()),
		logger.Duration("took", time.Since(start)),
	)

	ev, err := pipeline.Evaluate(records, filter.NewSelector(o.region, o.municipality))
	if err != nil {
		return nil, err
	}
	if !ev.OK() {
		log.Warn(ctx, "no Rt series for selection", logger.String("reason", ev.Reason))
	}

	format := export.TSV
	if o.format == "csv" {
		format = export.CSV
	}
	return export.Write(o.out, ev, export.WithFormat(format), export.WithPrecision(o.precision))
}
