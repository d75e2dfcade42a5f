package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hwchen/groupby/groupby/config"
	"github.com/rs/zerolog"
)

func main() {
	var (
		configPath  string
		input       string
		store       string
		groupBy     string
		value       string
		op          string
		valueType   string
		outFormat   string
		comma       string
		limit       int
		noHeader    bool
		skipInvalid bool
		verbose     bool
		logLevel    string
		logFormat   string
		help        bool
	)

	flag.StringVar(&configPath, "config", "", "job config file (yaml, json or toml)")
	flag.StringVar(&input, "input", "", "CSV file to aggregate, - for stdin")
	flag.StringVar(&store, "store", "", "badger row store directory to aggregate instead of a CSV")
	flag.StringVar(&groupBy, "group-by", "", "comma-separated key columns (names or 0-based positions)")
	flag.StringVar(&value, "value", "", "value column (name or 0-based position)")
	flag.StringVar(&op, "op", "", "aggregation: sum, collect, count, min, max")
	flag.StringVar(&valueType, "type", "", "value type: int, float, string")
	flag.StringVar(&outFormat, "format", "", "output format: markdown, csv")
	flag.StringVar(&comma, "comma", "", "CSV delimiter")
	flag.IntVar(&limit, "limit", -1, "aggregate only the first N records")
	flag.BoolVar(&noHeader, "no-header", false, "CSV has no header line")
	flag.BoolVar(&skipInvalid, "skip-invalid", false, "skip records that fail instead of aborting")
	flag.BoolVar(&verbose, "verbose", false, "print run annotations to stderr")
	flag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.StringVar(&logFormat, "log-format", "", "log format: console, json")
	flag.BoolVar(&help, "h", false, "show help")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [input.csv]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Streams records once, grouping by key columns and reducing a value column.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  %s_<KEY> overrides any config key, e.g. %s_OP=collect\n", config.EnvPrefix, config.EnvPrefix)
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -group-by region -value amount sales.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -group-by region,month -value amount -op collect -type int sales.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -store rows.db -group-by 0 -value 2 -op max\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  cat sales.csv | %s -input - -group-by 0 -value 1 -format csv\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	job, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the config file and environment
	if input == "" && flag.NArg() > 0 {
		input = flag.Arg(0)
	}
	setString(&job.Input, input)
	setString(&job.Store, store)
	if groupBy != "" {
		job.GroupBy = strings.Split(groupBy, ",")
	}
	setString(&job.Value, value)
	setString(&job.Op, op)
	setString(&job.Type, valueType)
	setString(&job.Format, outFormat)
	setString(&job.Comma, comma)
	setString(&job.Log.Level, logLevel)
	setString(&job.Log.Format, logFormat)
	if limit >= 0 {
		job.Limit = limit
	}
	if noHeader {
		job.Header = false
	}
	job.SkipInvalid = job.SkipInvalid || skipInvalid
	job.Verbose = job.Verbose || verbose
	job.Normalize()

	logger := newLogger(job.Log, os.Stderr)

	r := &runner{
		job:    job,
		stdin:  os.Stdin,
		out:    os.Stdout,
		events: os.Stderr,
		log:    logger,
	}
	if err := r.run(); err != nil {
		logger.Error().Err(err).Msg("group by failed")
		os.Exit(1)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, "json") {
		zl = zerolog.New(w)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	}
	return zl.Level(level).With().Timestamp().Str("service", "groupby").Logger()
}
