package ops

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/notify"
	"github.com/hpungsan/tabstash/internal/storage"
	"github.com/hpungsan/tabstash/internal/tabhost"
)

// Persisted keys.
const (
	KeyGroups                 = "groups"
	KeyRecentlyDeleted        = "recentlyDeleted"
	KeyGroupsUpdatedTimestamp = "groupsUpdatedTimestamp"
)

// Observer receives engine measurements. The metrics package implements it.
type Observer interface {
	TransactionDone(op string, elapsed time.Duration, err error)
	GroupsStored(n int)
	GroupsEvicted(reason string, n int)
}

type nopObserver struct{}

func (nopObserver) TransactionDone(string, time.Duration, error) {}
func (nopObserver) GroupsStored(int)                             {}
func (nopObserver) GroupsEvicted(string, int)                    {}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets where change events are published.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics observer.
func WithMetrics(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.metrics = o
		}
	}
}

// WithTabHost sets the tab host used for implicit tab lists and opening groups.
func WithTabHost(h tabhost.Host) Option {
	return func(e *Engine) {
		e.host = h
	}
}

// Engine serializes every read and write of the stored state through one
// goroutine. Each transaction loads the full state from the backend, edits a
// copy and persists the changed keys in a single Set.
type Engine struct {
	backend  storage.Backend
	notifier notify.Notifier
	host     tabhost.Host
	now      func() time.Time
	logger   *slog.Logger
	metrics  Observer

	// entropy is only touched by the run goroutine
	entropy io.Reader

	reqs      chan *request
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type request struct {
	ctx    context.Context
	op     string
	fn     func(*txn) error
	result chan error
}

// NewEngine starts an engine over backend. Call Close to stop it.
func NewEngine(backend storage.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		notifier: notify.Discard{},
		now:      time.Now,
		logger:   slog.Default(),
		metrics:  nopObserver{},
		entropy:  ulid.Monotonic(rand.Reader, 0),
		reqs:     make(chan *request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run()
	return e
}

// Close stops accepting transactions and waits for the running one to finish.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.quit) })
	<-e.done
	return nil
}

// Host returns the configured tab host, or nil.
func (e *Engine) Host() tabhost.Host { return e.host }

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.quit:
			return
		case req := <-e.reqs:
			req.result <- e.execute(req)
		}
	}
}

// submit queues fn and waits for it. A context that is done before the
// transaction is queued yields CANCELLED; once queued it runs to completion.
func (e *Engine) submit(ctx context.Context, op string, fn func(*txn) error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled(op)
	}
	req := &request{ctx: ctx, op: op, fn: fn, result: make(chan error, 1)}
	select {
	case e.reqs <- req:
	case <-ctx.Done():
		return errors.NewCancelled(op)
	case <-e.quit:
		return errors.NewInternal(fmt.Errorf("engine closed"))
	}
	return <-req.result
}

// txn is the working state of one transaction.
type txn struct {
	ctx      context.Context
	engine   *Engine
	now      time.Time
	groups   group.Collection
	deleted  []group.DeletedEntry
	settings config.Settings

	dirty           map[string]bool
	touched         []string
	settingsChanged bool
}

// nowMillis is the transaction timestamp in Unix milliseconds.
func (tx *txn) nowMillis() int64 { return tx.now.UnixMilli() }

// newID returns a fresh ULID stamped with the transaction time.
func (tx *txn) newID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(tx.now), tx.engine.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// markGroups records that the collection changed for the given group ids.
func (tx *txn) markGroups(ids ...string) {
	tx.dirty[KeyGroups] = true
	tx.touched = append(tx.touched, ids...)
}

// markDeleted records that the recovery buffer changed.
func (tx *txn) markDeleted() {
	tx.dirty[KeyRecentlyDeleted] = true
}

// markSettings records that the settings changed.
func (tx *txn) markSettings() {
	tx.settingsChanged = true
}

// getGroup returns the group with id or NOT_FOUND.
func (tx *txn) getGroup(id string) (*group.Group, error) {
	g, ok := tx.groups[id]
	if !ok || g == nil {
		return nil, errors.NewNotFound(id)
	}
	return g, nil
}

func (e *Engine) execute(req *request) (err error) {
	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewInternal(fmt.Errorf("panic in %s: %v", req.op, r))
		}
		e.metrics.TransactionDone(req.op, time.Since(began), err)
		if err != nil {
			se := errors.As(err)
			e.logger.Warn("transaction failed", "op", req.op, "code", se.Code, "error", se.Message)
		}
	}()

	// Queued transactions complete even if the caller gives up.
	ctx := context.WithoutCancel(req.ctx)

	tx, err := e.load(ctx)
	if err != nil {
		return err
	}
	tx.ctx = ctx
	tx.now = e.now()

	if err := req.fn(tx); err != nil {
		return err
	}
	return e.commit(ctx, tx)
}

func (e *Engine) load(ctx context.Context) (*txn, error) {
	keys := append([]string{KeyGroups, KeyRecentlyDeleted}, config.SettingKeys...)
	values, err := storage.GetMany(ctx, e.backend, keys...)
	if err != nil {
		return nil, errors.NewStorage(err)
	}

	groups, err := group.DecodeCollection(values[KeyGroups])
	if err != nil {
		return nil, errors.NewStorage(fmt.Errorf("decode %s: %w", KeyGroups, err))
	}
	deleted, err := group.DecodeDeleted(values[KeyRecentlyDeleted])
	if err != nil {
		return nil, errors.NewStorage(fmt.Errorf("decode %s: %w", KeyRecentlyDeleted, err))
	}

	return &txn{
		engine:   e,
		groups:   groups,
		deleted:  deleted,
		settings: config.DecodeSettings(values, e.logger),
		dirty:    map[string]bool{},
	}, nil
}

func (e *Engine) commit(ctx context.Context, tx *txn) error {
	if len(tx.dirty) == 0 && !tx.settingsChanged {
		return nil
	}

	values := map[string][]byte{}
	if tx.dirty[KeyGroups] {
		data, err := group.EncodeCollection(tx.groups)
		if err != nil {
			return errors.NewStorage(err)
		}
		values[KeyGroups] = data
		values[KeyGroupsUpdatedTimestamp] = []byte(fmt.Sprintf("%d", tx.nowMillis()))
	}
	if tx.dirty[KeyRecentlyDeleted] {
		data, err := group.EncodeDeleted(tx.deleted)
		if err != nil {
			return errors.NewStorage(err)
		}
		values[KeyRecentlyDeleted] = data
	}
	if tx.settingsChanged {
		for k, v := range tx.settings.Encode() {
			values[k] = v
		}
	}

	if err := e.backend.Set(ctx, values); err != nil {
		return errors.NewStorage(err)
	}

	if tx.dirty[KeyGroups] {
		e.metrics.GroupsStored(len(tx.groups))
	}
	if tx.dirty[KeyGroups] || tx.dirty[KeyRecentlyDeleted] {
		ev := notify.NewEvent(notify.TypeGroupsUpdated)
		ev.At = tx.nowMillis()
		ev.GroupIDs = uniqueSorted(tx.touched)
		e.notifier.Publish(ev)
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
