package backup

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabstash/internal/config"
	"github.com/hpungsan/tabstash/internal/group"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestName_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	name := Name(at)
	assert.Equal(t, "tabstash-2026-03-04T050607.json", name)

	got, ok := ParseName(name)
	require.True(t, ok)
	assert.True(t, at.Equal(got))

	for _, bad := range []string{"notes.txt", "tabstash-.json", "tabstash-2026.json", ".tabstash-2026-03-04T050607.json"} {
		_, ok := ParseName(bad)
		assert.False(t, ok, bad)
	}
}

func TestDirSink_PutListRead(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "backups")
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Put(ctx, "tabstash-2026-01-02T000000.json", []byte(`{"a":1}`)))
	require.NoError(t, sink.Put(ctx, "tabstash-2026-01-01T000000.json", []byte(`{}`)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0600))

	names, err := Backups(ctx, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"tabstash-2026-01-01T000000.json", "tabstash-2026-01-02T000000.json"}, names)

	data, err := sink.Read(ctx, "tabstash-2026-01-02T000000.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "tabstash-2026-01-02T000000.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	latest, ok, err := Latest(ctx, sink)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, latest.Day())
}

func TestDirSink_RejectsBadNamesAndSymlinks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.json", "sub/x.json", ".hidden"} {
		assert.Error(t, sink.Put(ctx, name, []byte(`{}`)), name)
	}

	if runtime.GOOS == "windows" {
		return
	}
	target := filepath.Join(t.TempDir(), "target.json")
	require.NoError(t, os.WriteFile(target, []byte(`{}`), 0600))
	link := filepath.Join(dir, "tabstash-2026-01-01T000000.json")
	require.NoError(t, os.Symlink(target, link))

	assert.Error(t, sink.Put(ctx, filepath.Base(link), []byte(`{"x":1}`)))
	_, err = sink.Read(ctx, filepath.Base(link))
	assert.Error(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data), "symlink target untouched")

	_, err = sink.Read(ctx, "tabstash-2030-01-01T000000.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type fakeSink struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeSink() *fakeSink { return &fakeSink{objects: map[string][]byte{}} }

func (f *fakeSink) Put(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return stderrors.New("disk full")
	}
	f.objects[name] = append([]byte(nil), data...)
	return nil
}

func (f *fakeSink) List(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for n := range f.objects {
		names = append(names, n)
	}
	return names, nil
}

func (f *fakeSink) Read(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (f *fakeSink) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func newSource(t *testing.T) *ops.Engine {
	t.Helper()
	e := ops.NewEngine(storage.NewMemory())
	t.Cleanup(func() { _ = e.Close() })
	_, err := e.CreateGroup(context.Background(), ops.CreateGroupInput{Name: "Work", Tabs: []group.Tab{{URL: "https://a.com"}}})
	require.NoError(t, err)
	return e
}

func enableBackups(t *testing.T, e *ops.Engine, freq string) {
	t.Helper()
	on := true
	_, err := e.UpdateSettings(context.Background(), config.SettingsPatch{AutoBackup: &on, AutoBackupFrequency: &freq})
	require.NoError(t, err)
}

func TestRunner_BackupNowExportsCollection(t *testing.T) {
	ctx := context.Background()
	e := newSource(t)
	sink := newFakeSink()
	r := NewRunner(e, sink, quietLogger())

	res, err := r.BackupNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	data, err := sink.Read(ctx, res.Name)
	require.NoError(t, err)
	c, err := group.DecodeCollection(data)
	require.NoError(t, err)
	require.Len(t, c, 1)
	for _, g := range c {
		assert.Equal(t, "Work", g.Name)
	}
}

func TestRunner_RunDue(t *testing.T) {
	ctx := context.Background()
	e := newSource(t)
	sink := newFakeSink()
	r := NewRunner(e, sink, quietLogger())
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	res, err := r.RunDue(ctx)
	require.NoError(t, err)
	assert.Nil(t, res, "disabled by default")

	enableBackups(t, e, config.FrequencyDaily)

	res, err = r.RunDue(ctx)
	require.NoError(t, err)
	require.NotNil(t, res, "first backup is always due")

	now = now.Add(23 * time.Hour)
	res, err = r.RunDue(ctx)
	require.NoError(t, err)
	assert.Nil(t, res)

	now = now.Add(time.Hour)
	res, err = r.RunDue(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, sink.Len())
}

func TestRunner_PutFailure(t *testing.T) {
	e := newSource(t)
	sink := newFakeSink()
	sink.failPut = true
	_, err := NewRunner(e, sink, quietLogger()).BackupNow(context.Background())
	assert.Error(t, err)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	e := newSource(t)
	enableBackups(t, e, config.FrequencyWeekly)
	sink := newFakeSink()
	r := NewRunner(e, sink, quietLogger())
	r.CheckInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.Len() == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run() did not return")
	}
	assert.Equal(t, 1, sink.Len(), "weekly backup is not repeated within the week")
}
