package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterDeliversFirstReportImmediately(t *testing.T) {
	var got []Event
	r := NewReporter(func(e Event) { got = append(got, e) })
	r.Report(Event{FilesDone: 1})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].FilesDone)
}

func TestReporterDropsUpdatesFasterThanInterval(t *testing.T) {
	var got []Event
	fixed := time.Now()
	r := NewReporter(func(e Event) { got = append(got, e) })
	r.now = func() time.Time { return fixed }

	r.Report(Event{FilesDone: 1})
	r.Report(Event{FilesDone: 2})
	r.Report(Event{FilesDone: 3})
	assert.Len(t, got, 1)

	r.now = func() time.Time { return fixed.Add(200 * time.Millisecond) }
	r.Report(Event{FilesDone: 4})
	assert.Len(t, got, 2)
	assert.Equal(t, 4, got[1].FilesDone)
}

func TestReporterFlushDeliversPendingEvent(t *testing.T) {
	var got []Event
	fixed := time.Now()
	r := NewReporter(func(e Event) { got = append(got, e) })
	r.now = func() time.Time { return fixed }

	r.Report(Event{FilesDone: 1})
	r.Report(Event{FilesDone: 2})
	assert.Len(t, got, 1)

	r.Flush()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].FilesDone)
}

func TestReporterNilObserverIsNoOp(t *testing.T) {
	r := NewReporter(nil)
	r.Report(Event{FilesDone: 1})
	r.Flush()
}
