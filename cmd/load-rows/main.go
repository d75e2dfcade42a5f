package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hwchen/groupby/groupby"
	"github.com/hwchen/groupby/groupby/source"
	"github.com/hwchen/groupby/groupby/storage"
	"github.com/rs/zerolog"
)

const batchSize = 1000

func main() {
	storePath := flag.String("store", "rows.db", "badger row store directory")
	header := flag.Bool("header", true, "skip the CSV header line")
	comma := flag.String("comma", ",", "CSV delimiter")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("service", "load-rows").Logger()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.csv\n\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	delim := ','
	if r := []rune(*comma); len(r) > 0 {
		delim = r[0]
	}

	if err := run(log, flag.Arg(0), *storePath, *header, delim); err != nil {
		log.Error().Err(err).Msg("load failed")
		os.Exit(1)
	}
}

func run(log zerolog.Logger, input, storePath string, header bool, delim rune) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}

	it, err := source.NewCSVIterator(f, source.WithHeader(header), source.WithComma(delim))
	if err != nil {
		f.Close()
		return err
	}
	defer it.Close()

	store, err := storage.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	loaded, err := load(store, it)
	if err != nil {
		return fmt.Errorf("after %d rows: %w", loaded, err)
	}

	total, err := store.Count()
	if err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}

	log.Info().
		Int("loaded", loaded).
		Int64("total", total).
		Dur("elapsed", time.Since(start)).
		Str("store", storePath).
		Msg("done")
	return nil
}

// load copies every record from it into store in batches
func load(store *storage.RowStore, it groupby.Iterator) (int, error) {
	batch := make([]groupby.Row, 0, batchSize)
	loaded := 0

	for it.Next() {
		row, ok := it.Record().(groupby.Row)
		if !ok {
			return loaded, fmt.Errorf("record %d is %T, want groupby.Row", loaded, it.Record())
		}
		cp := make(groupby.Row, len(row))
		copy(cp, row)
		batch = append(batch, cp)

		if len(batch) == batchSize {
			if err := store.Append(batch...); err != nil {
				return loaded, err
			}
			loaded += len(batch)
			batch = batch[:0]
		}
	}
	if err := it.Err(); err != nil {
		return loaded, err
	}
	if len(batch) > 0 {
		if err := store.Append(batch...); err != nil {
			return loaded, err
		}
		loaded += len(batch)
	}
	return loaded, nil
}
