package watch

import (
	"sync"
	"time"
)

// Op is the kind of filesystem change seen for a candidate file.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

// Event is one batched filesystem change.
type Event struct {
	Path string
	Op   Op
}

// Debouncer collapses bursts of filesystem events into batches emitted after
// a quiet period. Copies and encodes touch the same file many times in quick
// succession; only the last operation per path survives the window.
type Debouncer struct {
	interval time.Duration

	mu     sync.Mutex
	events map[string]Event
	timer  *time.Timer
	output chan []Event
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		events:   make(map[string]Event),
		output:   make(chan []Event, 16),
	}
}

// Output returns the channel batches are delivered on.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Add records an event, replacing any earlier operation for the same path,
// and restarts the quiet timer.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events[path] = Event{Path: path, Op: op}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.events) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.events))
	for _, event := range d.events {
		batch = append(batch, event)
	}
	d.events = make(map[string]Event)
	d.output <- batch
}
