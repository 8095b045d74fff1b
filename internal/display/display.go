// Package display owns the result table, status line and search state.
//
// A single goroutine started by Run holds all display state. Other goroutines never touch it
// directly: they schedule mutations with Post or Do, and the loop runs them in order. After
// every mutation the loop hands a snapshot to each subscriber.
package display

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"compfinder/internal/infrastructure"
	"compfinder/pkg/contracts/domain"
)

var (
	// ErrStopped is returned when the owning loop is no longer running.
	ErrStopped = errors.New("display stopped")

	// ErrSearchInProgress is returned when a search starts while another is fetching.
	ErrSearchInProgress = errors.New("search already in progress")
)

const queueSize = 64

type op struct {
	fn     func(*State)
	notify bool
}

// State is the display content. It is only reachable from inside the owning loop.
type State struct {
	rows     []domain.DisplayRow
	skipped  []domain.SkippedSymbol
	status   string
	state    domain.SearchState
	searchID string
}

// ReplaceRows clears the table and inserts rows in order.
func (s *State) ReplaceRows(rows []domain.DisplayRow) {
	s.rows = append(make([]domain.DisplayRow, 0, len(rows)), rows...)
}

// ClearRows empties the table.
func (s *State) ClearRows() {
	s.rows = nil
}

// Rows returns a copy of the rows in insertion order.
func (s *State) Rows() []domain.DisplayRow {
	return append(make([]domain.DisplayRow, 0, len(s.rows)), s.rows...)
}

// SetSkipped records the symbols left out of the last search.
func (s *State) SetSkipped(skipped []domain.SkippedSymbol) {
	s.skipped = append([]domain.SkippedSymbol(nil), skipped...)
}

// SetStatus sets the status line.
func (s *State) SetStatus(status string) {
	s.status = status
}

// Status returns the status line.
func (s *State) Status() string {
	return s.status
}

// SetSearchState moves the search state machine.
func (s *State) SetSearchState(state domain.SearchState) {
	s.state = state
}

// SearchState returns the current search state.
func (s *State) SearchState() domain.SearchState {
	return s.state
}

// Snapshot copies the state for use outside the loop.
func (s *State) Snapshot() domain.DisplaySnapshot {
	return domain.DisplaySnapshot{
		State:         s.state,
		SearchEnabled: s.state != domain.StateFetching,
		Status:        s.status,
		SearchID:      s.searchID,
		Rows:          s.Rows(),
		Skipped:       append([]domain.SkippedSymbol(nil), s.skipped...),
	}
}

// Subscriber receives a snapshot after every mutation. It runs on the owning loop and must
// not block or call back into the Display.
type Subscriber func(domain.DisplaySnapshot)

// Display serializes all access to the display state through one goroutine.
type Display struct {
	ops  chan op
	quit chan struct{}
	done chan struct{}

	mu          sync.RWMutex
	subscribers []Subscriber
	stopOnce    sync.Once
	startOnce   sync.Once

	state  State
	logger *slog.Logger
}

// New creates an idle, empty Display. Call Run to start the owning loop.
func New(logger *slog.Logger) *Display {
	return &Display{
		ops:    make(chan op, queueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		state:  State{state: domain.StateIdle},
		logger: infrastructure.WithComponent(logger, "display"),
	}
}

// Run executes posted mutations until ctx is done or Stop is called.
func (d *Display) Run(ctx context.Context) {
	started := false
	d.startOnce.Do(func() { started = true })
	if !started {
		d.logger.Warn("Display loop already running")
		return
	}
	defer close(d.done)

	d.logger.Debug("Display loop started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Display loop stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-d.quit:
			d.logger.Debug("Display loop stopped")
			return
		case o := <-d.ops:
			d.apply(o)
		}
	}
}

func (d *Display) apply(o op) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Display mutation panicked", slog.Any("panic", r))
		}
	}()

	o.fn(&d.state)
	if o.notify {
		d.notify(d.state.Snapshot())
	}
}

func (d *Display) notify(snapshot domain.DisplaySnapshot) {
	d.mu.RLock()
	subs := append([]Subscriber(nil), d.subscribers...)
	d.mu.RUnlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

// Stop ends the owning loop. Pending mutations are dropped.
func (d *Display) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
}

// Done is closed when the owning loop has exited.
func (d *Display) Done() <-chan struct{} {
	return d.done
}

// Subscribe registers sub for all later mutations.
func (d *Display) Subscribe(sub Subscriber) {
	d.mu.Lock()
	d.subscribers = append(d.subscribers, sub)
	d.mu.Unlock()
}

// Post schedules fn on the owning loop without waiting for it.
func (d *Display) Post(fn func(*State)) error {
	return d.enqueue(op{fn: fn, notify: true})
}

func (d *Display) enqueue(o op) error {
	select {
	case <-d.quit:
		return ErrStopped
	case <-d.done:
		return ErrStopped
	default:
	}

	select {
	case d.ops <- o:
		return nil
	case <-d.quit:
		return ErrStopped
	case <-d.done:
		return ErrStopped
	}
}

// Do runs fn on the owning loop and waits for it to finish.
func (d *Display) Do(ctx context.Context, fn func(*State)) error {
	return d.wait(ctx, fn, true)
}

// read runs fn on the owning loop without notifying subscribers.
func (d *Display) read(ctx context.Context, fn func(*State)) error {
	return d.wait(ctx, fn, false)
}

func (d *Display) wait(ctx context.Context, fn func(*State), notify bool) error {
	finished := make(chan struct{})
	if err := d.enqueue(op{notify: notify, fn: func(s *State) {
		defer close(finished)
		fn(s)
	}}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
}

// ReplaceRows clears the table and inserts rows.
func (d *Display) ReplaceRows(rows []domain.DisplayRow) error {
	rows = append([]domain.DisplayRow(nil), rows...)
	return d.Post(func(s *State) { s.ReplaceRows(rows) })
}

// Rows returns the displayed rows in insertion order.
func (d *Display) Rows(ctx context.Context) ([]domain.DisplayRow, error) {
	var rows []domain.DisplayRow
	err := d.read(ctx, func(s *State) { rows = s.Rows() })
	return rows, err
}

// Status returns the status line.
func (d *Display) Status(ctx context.Context) (string, error) {
	var status string
	err := d.read(ctx, func(s *State) { status = s.Status() })
	return status, err
}

// Snapshot returns a copy of the whole display.
func (d *Display) Snapshot(ctx context.Context) (domain.DisplaySnapshot, error) {
	var snap domain.DisplaySnapshot
	err := d.read(ctx, func(s *State) { snap = s.Snapshot() })
	return snap, err
}

// BeginSearch disables searching and clears the table for search id. It fails with
// ErrSearchInProgress while another search is fetching.
func (d *Display) BeginSearch(ctx context.Context, id string) error {
	var busy bool
	err := d.Do(ctx, func(s *State) {
		if s.state == domain.StateFetching {
			busy = true
			return
		}
		s.state = domain.StateFetching
		s.searchID = id
		s.ClearRows()
		s.skipped = nil
		s.status = domain.StatusFetching
	})
	if err != nil {
		return err
	}
	if busy {
		return ErrSearchInProgress
	}
	return nil
}

// FinishSearch shows the results of search id and re-enables searching.
func (d *Display) FinishSearch(id string, rows []domain.DisplayRow, skipped []domain.SkippedSymbol) error {
	rows = append([]domain.DisplayRow(nil), rows...)
	skipped = append([]domain.SkippedSymbol(nil), skipped...)
	return d.Post(func(s *State) {
		if s.searchID != id {
			d.logger.Warn("Finishing a search that is not current",
				slog.String("search_id", id),
				slog.String("current_search_id", s.searchID))
		}
		s.ReplaceRows(rows)
		s.SetSkipped(skipped)
		s.state = domain.StateIdle
		s.status = domain.StatusDone
	})
}
