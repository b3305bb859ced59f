package stats

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

type Type int

const (
	Requested Type = iota
	Formatted
	Changed
	Failed
	TimedOut
)

func (t Type) String() string {
	switch t {
	case Requested:
		return "requested"
	case Formatted:
		return "formatted"
	case Changed:
		return "changed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Stats counts format requests and their outcomes. It is safe for concurrent use.
type Stats struct {
	start    time.Time
	counters map[Type]*atomic.Int32
}

func New() *Stats {
	// record start time
	s := &Stats{
		start:    time.Now(),
		counters: make(map[Type]*atomic.Int32),
	}

	// init counters
	for _, t := range []Type{Requested, Formatted, Changed, Failed, TimedOut} {
		s.counters[t] = &atomic.Int32{}
	}

	return s
}

func (s *Stats) Add(t Type, delta int32) int32 {
	return s.counters[t].Add(delta)
}

func (s *Stats) Value(t Type) int32 {
	return s.counters[t].Load()
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.start)
}

func (s *Stats) Print(w io.Writer) {
	components := []string{
		"requested %d formats",
		"formatted %d, changed %d",
		"failed %d, of which %d timed out",
		"done in %v",
		"",
	}

	_, _ = fmt.Fprintf(w,
		strings.Join(components, "\n"),
		s.Value(Requested),
		s.Value(Formatted),
		s.Value(Changed),
		s.Value(Failed),
		s.Value(TimedOut),
		s.Elapsed().Round(time.Millisecond),
	)
}
