package annotations

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainPrinter(t *testing.T) {
	p := NewPlainPrinter(nil)

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name: "invoked",
			event: Event{Name: GroupByInvoked, Data: map[string]interface{}{
				"group_by": []int{0, 2},
				"value":    1,
			}},
			want: "[0s] start: keys [0 2], value 1",
		},
		{
			name: "group created",
			event: Event{Name: GroupCreated, Data: map[string]interface{}{
				"key":     []string{"east"},
				"ordinal": 4,
			}},
			want: "[0s] group: [east] at record 4",
		},
		{
			name: "complete",
			event: Event{Name: GroupByComplete, Latency: 1520 * time.Microsecond, Data: map[string]interface{}{
				"records": 10,
				"groups":  3,
				"skipped": 1,
			}},
			want: "[1.5ms] done: 10 records, 3 groups, 1 skipped",
		},
		{
			name: "failed",
			event: Event{Name: GroupByComplete, Latency: 42 * time.Microsecond, Data: map[string]interface{}{
				"error": errors.New("boom"),
			}},
			want: "[42µs] failed: boom",
		},
		{
			name:  "unknown",
			event: Event{Name: "custom", Data: map[string]interface{}{"n": 1}},
			want:  "[0s] custom: map[n:1]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Line(tt.event))
		})
	}
}

func TestHandleWritesLine(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Handle(Event{
		Name: RecordSkipped,
		Data: map[string]interface{}{"error": "record 3, field 1: bad"},
	})

	out := buf.String()
	assert.Equal(t, "[0s] skip: record 3, field 1: bad\n", out)
	assert.False(t, strings.Contains(out, "\x1b["), "no color for non-terminal writers")
}

func TestCollector(t *testing.T) {
	var nilCollector *Collector
	assert.False(t, nilCollector.Enabled())
	assert.Zero(t, nilCollector.Count(GroupCreated))
	assert.Nil(t, nilCollector.Events())
	nilCollector.Mark(GroupCreated, nil)

	silent := NewCollector(nil)
	require.True(t, silent.Enabled(), "records without a handler")
	silent.Mark(RecordSkipped, nil)
	assert.Equal(t, 1, silent.Count(RecordSkipped))
	assert.Len(t, silent.Events(), 1)

	var handled []string
	c := NewCollector(func(e Event) { handled = append(handled, e.Name) })
	require.True(t, c.Enabled())

	c.Mark(GroupByInvoked, nil)
	c.AddTiming(GroupByComplete, time.Now().Add(-time.Millisecond), nil)

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, []string{GroupByInvoked, GroupByComplete}, handled)
	assert.Equal(t, events[0].Start, events[0].End)
	assert.GreaterOrEqual(t, events[1].Latency, time.Millisecond)
}

func TestCollectorBoundsHistory(t *testing.T) {
	seen := 0
	c := NewCollector(func(Event) { seen++ })

	for i := 0; i < MaxHistory+10; i++ {
		c.Mark(GroupCreated, map[string]interface{}{"ordinal": i})
	}

	assert.Equal(t, MaxHistory+10, seen, "handler sees every event")
	assert.Equal(t, MaxHistory+10, c.Count(GroupCreated))
	events := c.Events()
	assert.Len(t, events, MaxHistory)
	assert.Equal(t, 0, events[0].Data["ordinal"])
}

func TestPrinterColorIgnoresStdoutDetection(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	p := &Printer{color: true}
	line := p.Line(Event{Name: GroupByComplete, Data: map[string]interface{}{
		"records": 1, "groups": 1, "skipped": 0,
	}})
	assert.Contains(t, line, "\x1b[32m", "green done tag")
	assert.Contains(t, line, "1 records, 1 groups, 0 skipped")

	assert.NotContains(t, NewPlainPrinter(nil).Line(Event{Name: GroupByComplete}), "\x1b[")
}
