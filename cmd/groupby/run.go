package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hwchen/groupby/groupby"
	"github.com/hwchen/groupby/groupby/annotations"
	"github.com/hwchen/groupby/groupby/config"
	"github.com/hwchen/groupby/groupby/format"
	"github.com/hwchen/groupby/groupby/source"
	"github.com/hwchen/groupby/groupby/storage"
	"github.com/rs/zerolog"
)

// runner executes one job against an input and writes the table to out
type runner struct {
	job    *config.Job
	stdin  io.Reader
	out    io.Writer
	events io.Writer
	log    zerolog.Logger
}

func (r *runner) run() error {
	if err := r.job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	iter, header, cleanup, err := r.open()
	if err != nil {
		return err
	}
	defer cleanup()

	groupBy, err := source.ResolveColumns(header, r.job.GroupBy)
	if err != nil {
		return fmt.Errorf("group_by: %w", err)
	}
	value, err := source.ResolveColumn(header, r.job.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	opts := []groupby.Option{}
	if r.job.SkipInvalid {
		opts = append(opts, groupby.WithErrorHandler(func(e *groupby.RecordError) error {
			r.log.Warn().
				Int("record", e.Ordinal).
				Int("field", e.Position).
				Str("raw", e.Raw).
				Err(e.Err).
				Msg("skipping record")
			return nil
		}))
	}
	var collector *annotations.Collector
	if r.job.Verbose {
		collector = annotations.NewCollector(annotations.NewPrinter(r.events).Handle)
		opts = append(opts, groupby.WithCollector(collector))
	}

	var src groupby.Iterator = iter
	if r.job.Limit > 0 {
		src = groupby.NewLimitIterator(iter, r.job.Limit)
	}
	g := groupby.New(src, groupBy, value, opts...)

	r.log.Debug().
		Ints("group_by", g.GroupByPositions()).
		Int("value", g.ValuePosition()).
		Str("op", r.job.Op).
		Str("type", r.job.Type).
		Msg("resolved columns")

	headers := make([]string, 0, len(groupBy)+1)
	for _, pos := range groupBy {
		headers = append(headers, columnName(header, pos))
	}
	headers = append(headers, fmt.Sprintf("%s(%s)", r.job.Op, columnName(header, value)))

	if err := r.dispatch(g, headers); err != nil {
		return err
	}

	stats := g.Stats()
	summary := r.log.Info().
		Int("records", stats.Records).
		Int("groups", stats.Groups).
		Int("skipped", stats.Skipped)
	if collector != nil {
		summary = summary.
			Int("annotation_events", len(collector.Events())).
			Int("skip_events", collector.Count(annotations.RecordSkipped))
	}
	summary.Msg("aggregation complete")
	return nil
}

// open returns the record source described by the job along with its
// header, when one exists.
func (r *runner) open() (groupby.Iterator, []string, func(), error) {
	if r.job.Store != "" {
		store, err := storage.Open(r.job.Store)
		if err != nil {
			return nil, nil, nil, err
		}
		it, err := store.Scan()
		if err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		r.log.Debug().Str("store", r.job.Store).Msg("scanning row store")
		return it, nil, func() {
			it.Close()
			store.Close()
		}, nil
	}

	// stdin stays open; the iterator only closes readers it owns
	var in io.Reader = struct{ io.Reader }{r.stdin}
	if r.job.Input != "-" {
		f, err := os.Open(r.job.Input)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open input: %w", err)
		}
		in = f
	}

	it, err := source.NewCSVIterator(in,
		source.WithHeader(r.job.Header),
		source.WithComma(r.job.Delimiter()),
		source.WithTrim(true),
	)
	if err != nil {
		if c, ok := in.(io.Closer); ok {
			c.Close()
		}
		return nil, nil, nil, err
	}
	r.log.Debug().Str("input", r.job.Input).Strs("header", it.Header()).Msg("reading csv")
	return it, it.Header(), func() { it.Close() }, nil
}

func (r *runner) dispatch(g *groupby.GroupBy, headers []string) error {
	switch r.job.Op {
	case "sum":
		if r.job.Type == "int" {
			return emit[int64](r, headers)(groupby.Sum(g, groupby.ParseInt64))
		}
		return emit[float64](r, headers)(groupby.Sum(g, groupby.ParseFloat64))
	case "collect":
		switch r.job.Type {
		case "int":
			return emit[[]int64](r, headers)(groupby.Collect(g, groupby.ParseInt64))
		case "float":
			return emit[[]float64](r, headers)(groupby.Collect(g, groupby.ParseFloat64))
		default:
			return emit[[]string](r, headers)(groupby.Collect(g, groupby.ParseString))
		}
	case "count":
		return emit[int64](r, headers)(groupby.Count(g))
	case "min":
		switch r.job.Type {
		case "int":
			return emit[groupby.Extreme[int64]](r, headers)(groupby.Min(g, groupby.ParseInt64))
		case "float":
			return emit[groupby.Extreme[float64]](r, headers)(groupby.Min(g, groupby.ParseFloat64))
		default:
			return emit[groupby.Extreme[string]](r, headers)(groupby.Min(g, groupby.ParseString))
		}
	case "max":
		switch r.job.Type {
		case "int":
			return emit[groupby.Extreme[int64]](r, headers)(groupby.Max(g, groupby.ParseInt64))
		case "float":
			return emit[groupby.Extreme[float64]](r, headers)(groupby.Max(g, groupby.ParseFloat64))
		default:
			return emit[groupby.Extreme[string]](r, headers)(groupby.Max(g, groupby.ParseString))
		}
	}
	return fmt.Errorf("unsupported op %q", r.job.Op)
}

// emit returns a sink for a terminal call's results
func emit[V any](r *runner, headers []string) func(*groupby.Aggregate[V], error) error {
	return func(agg *groupby.Aggregate[V], err error) error {
		if err != nil {
			return err
		}
		if r.job.Format == "csv" {
			return format.WriteCSV(r.out, headers, agg)
		}
		_, err = fmt.Fprintln(r.out, format.FormatAggregate(format.NewTableFormatter(), headers, agg))
		return err
	}
}

func columnName(header []string, pos int) string {
	if pos < len(header) && header[pos] != "" {
		return header[pos]
	}
	return fmt.Sprintf("col%d", pos)
}
