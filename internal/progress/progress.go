// Package progress carries stage events out of a pipeline run. Sinks are
// passive: they never influence the run's result.
package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the lifecycle state a stage event reports.
type Status string

const (
	StatusStarted  Status = "started"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Event is one stage transition.
type Event struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Status  Status    `json:"status"`
	CostUSD float64   `json:"cost_usd,omitempty"`
	At      time.Time `json:"at"`
}

// Sink receives progress events. Implementations must not block.
type Sink interface {
	Emit(Event)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(Event) {}

// FuncSink adapts a function to Sink.
type FuncSink func(Event)

// Emit implements Sink.
func (f FuncSink) Emit(e Event) { f(e) }

// LogSink forwards events to a zap logger at debug level.
type LogSink struct {
	Log *zap.Logger
}

// NewLogSink returns a LogSink over log, or the global logger when nil.
func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.L()
	}
	return &LogSink{Log: log}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	fields := []zap.Field{
		zap.String("stage", e.Stage),
		zap.String("status", string(e.Status)),
	}
	if e.CostUSD > 0 {
		fields = append(fields, zap.Float64("cost_usd", e.CostUSD))
	}
	s.Log.Debug("progress: "+e.Message, fields...)
}

// Recorder keeps every event in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in emit order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Stages returns the distinct stage names in first-seen order.
func (r *Recorder) Stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.events {
		if !seen[e.Stage] {
			seen[e.Stage] = true
			out = append(out, e.Stage)
		}
	}
	return out
}

// Multi fans an event out to several sinks.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
