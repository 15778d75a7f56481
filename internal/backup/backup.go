// Package backup writes periodic exports of the group collection to a sink.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/ops"
)

const (
	namePrefix = "tabstash-"
	nameSuffix = ".json"
	timeLayout = "2006-01-02T150405"
)

// DefaultCheckInterval is how often the runner checks whether a backup is due.
const DefaultCheckInterval = time.Hour

// Sink stores backup documents by name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// Source is the part of the engine a runner reads from.
type Source interface {
	Export(ctx context.Context) (*ops.ExportOutput, error)
	Settings(ctx context.Context) (config.Settings, error)
}

// Name returns the backup name for t.
func Name(t time.Time) string {
	return namePrefix + t.UTC().Format(timeLayout) + nameSuffix
}

// ParseName returns the time encoded in a backup name.
func ParseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	t, err := time.ParseInLocation(timeLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Backups returns the sink's backup names, oldest first. Other names are ignored.
func Backups(ctx context.Context, sink Sink) ([]string, error) {
	names, err := sink.List(ctx)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if _, ok := ParseName(n); ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Latest returns the time of the newest backup in sink.
func Latest(ctx context.Context, sink Sink) (time.Time, bool, error) {
	names, err := Backups(ctx, sink)
	if err != nil || len(names) == 0 {
		return time.Time{}, false, err
	}
	t, _ := ParseName(names[len(names)-1])
	return t, true, nil
}

// Result describes one written backup.
type Result struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	At    int64  `json:"at"`
}

// Runner exports the collection to a sink when autoBackup is enabled and the
// configured frequency has elapsed since the newest backup.
type Runner struct {
	source Source
	sink   Sink
	logger *slog.Logger
	now    func() time.Time

	CheckInterval time.Duration
}

// NewRunner returns a runner writing exports of source to sink.
func NewRunner(source Source, sink Sink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		source:        source,
		sink:          sink,
		logger:        logger,
		now:           time.Now,
		CheckInterval: DefaultCheckInterval,
	}
}

// BackupNow writes a backup regardless of settings.
func (r *Runner) BackupNow(ctx context.Context) (*Result, error) {
	exported, err := r.source.Export(ctx)
	if err != nil {
		return nil, err
	}
	at := r.now()
	name := Name(at)
	if err := r.sink.Put(ctx, name, []byte(exported.Data)); err != nil {
		return nil, fmt.Errorf("write backup %s: %w", name, err)
	}
	r.logger.Info("backup written", "name", name, "groups", exported.Count)
	return &Result{Name: name, Count: exported.Count, At: at.UnixMilli()}, nil
}

// RunDue writes a backup if one is due. It returns nil when nothing was written.
func (r *Runner) RunDue(ctx context.Context) (*Result, error) {
	settings, err := r.source.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.AutoBackup {
		return nil, nil
	}
	last, ok, err := Latest(ctx, r.sink)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if ok && r.now().Sub(last) < settings.BackupInterval() {
		return nil, nil
	}
	return r.BackupNow(ctx)
}

// Run checks for a due backup at start and then every CheckInterval until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	interval := r.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	check := func() {
		if _, err := r.RunDue(ctx); err != nil {
			r.logger.Warn("backup failed", "error", err)
		}
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			check()
		}
	}
}
