// Package groupby is a single-pass streaming group-by engine.
//
// A GroupBy holds a record iterator plus the positions that form the group
// key and the position of the value to reduce. Nothing happens until a
// terminal call (Sum, Collect, Count, Min, Max or Reduce) drains the
// iterator once and returns an Aggregate ordered by first key occurrence.
//
//	g := groupby.New(groupby.RowsIterator(rows...), []int{0}, 1)
//	totals, err := groupby.Sum(g, groupby.ParseInt64)
package groupby

import (
	"cmp"
	"fmt"
	"time"

	"github.com/hwchen/groupby/groupby/annotations"
)

// GroupBy is a lazy grouping over a record stream. It does nothing until
// one terminal call consumes it.
type GroupBy struct {
	iter     Iterator
	groupBy  []int
	value    int
	opts     options
	consumed bool
	stats    Stats
}

// Stats describes a finished run
type Stats struct {
	Records int // records read from the source
	Skipped int // records dropped by the error handler
	Groups  int // distinct keys
}

// New creates a GroupBy. Positions are not validated here; records that
// cannot supply them fail when they are processed.
func New(iter Iterator, groupBy []int, value int, opts ...Option) *GroupBy {
	cols := make([]int, len(groupBy))
	copy(cols, groupBy)
	return &GroupBy{
		iter:    iter,
		groupBy: cols,
		value:   value,
		opts:    applyOptions(opts),
	}
}

// GroupByPositions returns the key positions in declared order
func (g *GroupBy) GroupByPositions() []int {
	out := make([]int, len(g.groupBy))
	copy(out, g.groupBy)
	return out
}

// ValuePosition returns the position of the reduced field
func (g *GroupBy) ValuePosition() int {
	return g.value
}

// Stats returns counters from the terminal call, zero before it runs
func (g *GroupBy) Stats() Stats {
	return g.stats
}

// Sum adds the parsed value field within each group.
func Sum[N Number](g *GroupBy, parse Parser[N]) (*Aggregate[N], error) {
	return Reduce(g, SumOf(parse))
}

// Collect gathers the parsed value field of each group in arrival order.
func Collect[V any](g *GroupBy, parse Parser[V]) (*Aggregate[[]V], error) {
	return Reduce(g, CollectOf(parse))
}

// Count counts the records of each group.
func Count(g *GroupBy) (*Aggregate[int64], error) {
	return Reduce(g, CountOf())
}

// Min keeps the smallest parsed value of each group.
func Min[V cmp.Ordered](g *GroupBy, parse Parser[V]) (*Aggregate[Extreme[V]], error) {
	return Reduce(g, MinOf(parse))
}

// Max keeps the largest parsed value of each group.
func Max[V cmp.Ordered](g *GroupBy, parse Parser[V]) (*Aggregate[Extreme[V]], error) {
	return Reduce(g, MaxOf(parse))
}

// Reduce runs the single pass with an arbitrary accumulator. It consumes g
// and closes the source iterator before returning. On failure no partial
// aggregate is returned.
func Reduce[S any](g *GroupBy, acc Accumulator[S]) (result *Aggregate[S], err error) {
	if g.consumed {
		return nil, ErrConsumed
	}
	g.consumed = true

	collector := g.opts.collector
	start := time.Now()
	if collector.Enabled() {
		collector.Mark(annotations.GroupByInvoked, map[string]interface{}{
			"group_by": g.GroupByPositions(),
			"value":    g.ValuePosition(),
		})
	}

	defer func() {
		if cerr := g.iter.Close(); cerr != nil && err == nil {
			result, err = nil, fmt.Errorf("closing source: %w", cerr)
		}
		if collector.Enabled() {
			data := map[string]interface{}{
				"records": g.stats.Records,
				"skipped": g.stats.Skipped,
				"groups":  g.stats.Groups,
			}
			if err != nil {
				data["error"] = err
			}
			collector.AddTiming(annotations.GroupByComplete, start, data)
		}
	}()

	table := newAggregate[S]()
	if c, ok := acc.(Cloner[S]); ok {
		table.clone = c.Clone
	}
	ordinal := -1

	for g.iter.Next() {
		ordinal++
		g.stats.Records++
		rec := g.iter.Record()

		rerr := fold(g, table, acc, rec, ordinal, collector)
		if rerr == nil {
			continue
		}
		if herr := g.opts.onError(rerr); herr != nil {
			return nil, herr
		}
		g.stats.Skipped++
		if collector.Enabled() {
			collector.Mark(annotations.RecordSkipped, map[string]interface{}{"ordinal": ordinal, "error": rerr})
		}
	}

	if ierr := g.iter.Err(); ierr != nil {
		return nil, fmt.Errorf("reading record %d: %w", ordinal+1, ierr)
	}

	g.stats.Groups = table.Len()
	return table, nil
}

// fold applies one record. The value is rendered and combined before the
// table is written, so a failing record never creates a group.
func fold[S any](g *GroupBy, table *Aggregate[S], acc Accumulator[S], rec Record, ordinal int, collector *annotations.Collector) *RecordError {
	key, pos, err := DeriveKey(rec, g.groupBy)
	if err != nil {
		return &RecordError{Ordinal: ordinal, Position: pos, Err: err}
	}

	raw, err := rec.Render(g.value)
	if err != nil {
		return &RecordError{Ordinal: ordinal, Position: g.value, Err: err}
	}

	enc := encodeKey(key)
	slot, found := table.find(enc)

	var current S
	if found {
		current = table.entries[slot].Value
	} else {
		current = acc.Seed()
	}

	next, err := acc.Combine(current, raw)
	if err != nil {
		return &RecordError{Ordinal: ordinal, Position: g.value, Raw: raw, Err: err}
	}

	if found {
		table.entries[slot].Value = next
		return nil
	}
	table.insert(enc, key, next)

	if g.opts.traceNew && collector.Enabled() {
		collector.Mark(annotations.GroupCreated, map[string]interface{}{"key": key, "ordinal": ordinal})
	}
	return nil
}
