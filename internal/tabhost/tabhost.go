// Package tabhost abstracts the browser surface that owns the live tabs.
package tabhost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/notify"
)

// Host reports the current window's tabs and opens tabs on request.
type Host interface {
	CurrentWindowTabs(ctx context.Context) ([]group.Tab, error)
	ActiveTab(ctx context.Context) (group.Tab, bool, error)
	OpenTabs(ctx context.Context, urls []string, newWindow bool) error
}

// Snapshot holds the latest tab list reported by the browser. Open requests
// are published as open_tabs events for the browser to act on.
type Snapshot struct {
	mu       sync.RWMutex
	tabs     []group.Tab
	notifier notify.Notifier
}

// NewSnapshot returns an empty snapshot publishing to n. A nil n discards requests.
func NewSnapshot(n notify.Notifier) *Snapshot {
	if n == nil {
		n = notify.Discard{}
	}
	return &Snapshot{notifier: n}
}

// SetTabs replaces the reported tab list.
func (s *Snapshot) SetTabs(tabs []group.Tab) {
	cp := append([]group.Tab(nil), tabs...)
	s.mu.Lock()
	s.tabs = cp
	s.mu.Unlock()
}

func (s *Snapshot) CurrentWindowTabs(ctx context.Context) ([]group.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]group.Tab(nil), s.tabs...), nil
}

func (s *Snapshot) ActiveTab(ctx context.Context) (group.Tab, bool, error) {
	tabs, err := s.CurrentWindowTabs(ctx)
	if err != nil {
		return group.Tab{}, false, err
	}
	return activeOf(tabs)
}

func (s *Snapshot) OpenTabs(ctx context.Context, urls []string, newWindow bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := notify.NewEvent(notify.TypeOpenTabs)
	ev.URLs = append([]string(nil), urls...)
	ev.NewWindow = newWindow
	s.notifier.Publish(ev)
	return nil
}

func activeOf(tabs []group.Tab) (group.Tab, bool, error) {
	for _, t := range tabs {
		if t.Active {
			return t, true, nil
		}
	}
	return group.Tab{}, false, nil
}

// OpenRequest is one recorded OpenTabs call.
type OpenRequest struct {
	URLs      []string
	NewWindow bool
}

// Recorder is a Host that serves a fixed tab list and records open requests.
type Recorder struct {
	mu       sync.Mutex
	Tabs     []group.Tab
	Requests []OpenRequest
	Err      error
}

// NewRecorder returns a recorder serving tabs.
func NewRecorder(tabs ...group.Tab) *Recorder {
	return &Recorder{Tabs: tabs}
}

func (r *Recorder) CurrentWindowTabs(ctx context.Context) ([]group.Tab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return append([]group.Tab(nil), r.Tabs...), nil
}

func (r *Recorder) ActiveTab(ctx context.Context) (group.Tab, bool, error) {
	tabs, err := r.CurrentWindowTabs(ctx)
	if err != nil {
		return group.Tab{}, false, err
	}
	return activeOf(tabs)
}

func (r *Recorder) OpenTabs(ctx context.Context, urls []string, newWindow bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Requests = append(r.Requests, OpenRequest{URLs: append([]string(nil), urls...), NewWindow: newWindow})
	return nil
}

// Opened returns a copy of the recorded requests.
func (r *Recorder) Opened() []OpenRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OpenRequest(nil), r.Requests...)
}

// ErrNoWindow is returned by hosts that have no live browser window.
var ErrNoWindow = errors.New("tabhost: no browser window")

// Printer is a Host for terminals: it writes URLs to open one per line and
// has no current window.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) CurrentWindowTabs(ctx context.Context) ([]group.Tab, error) {
	return nil, ErrNoWindow
}

func (p *Printer) ActiveTab(ctx context.Context) (group.Tab, bool, error) {
	return group.Tab{}, false, nil
}

func (p *Printer) OpenTabs(ctx context.Context, urls []string, newWindow bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range urls {
		if _, err := fmt.Fprintln(p.w, u); err != nil {
			return err
		}
	}
	return nil
}
