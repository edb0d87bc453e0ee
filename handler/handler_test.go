package handler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wobyy/wlogging/core"
	"github.com/wobyy/wlogging/filter"
	"github.com/wobyy/wlogging/formatter"
)

// recordingHandler collects entries; when block is set every Handle waits
// for it to be closed, after announcing itself on entered
type recordingHandler struct {
	mu      sync.Mutex
	entries []*core.Entry
	block   chan struct{}
	entered chan struct{}
	err     error
	closes  atomic.Int32
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{entered: make(chan struct{}, 1024)}
}

func newBlockingHandler() *recordingHandler {
	h := newRecordingHandler()
	h.block = make(chan struct{})
	return h
}

func (h *recordingHandler) Handle(entry *core.Entry) error {
	select {
	case h.entered <- struct{}{}:
	default:
	}
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) Close() error {
	h.closes.Add(1)
	return nil
}

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Message
	}
	return out
}

func entryAt(level core.Level, msg string) *core.Entry {
	e := core.NewEntry(level, "test", msg)
	e.Caller = core.NewCallerInfo("/proj/app/main.go", "main.run", 7)
	return e
}

func TestConsoleHandler_Writes(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(ConsoleConfig{
		Writer:    &buf,
		Formatter: formatter.NewPlainFormatter(),
	})
	defer h.Close()

	require.NoError(t, h.Handle(entryAt(core.InfoLevel, "test message")))
	assert.Equal(t, "test message\n", buf.String())
	assert.Equal(t, uint64(1), h.Stats().ProcessedTotal)
}

func TestConsoleHandler_LevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(ConsoleConfig{
		Writer:    &buf,
		Formatter: formatter.NewPlainFormatter(),
		Level:     core.WarnLevel,
	})

	for _, l := range core.AllLevels {
		require.NoError(t, h.Handle(entryAt(l, l.String())))
	}
	assert.Equal(t, "WARNING\nERROR\nCRITICAL\nANNOUNCE\n", buf.String())

	buf.Reset()
	h.SetLevel(core.ErrorLevel)
	assert.Equal(t, core.ErrorLevel, h.Level())
	require.NoError(t, h.Handle(entryAt(core.WarnLevel, "hidden")))
	require.NoError(t, h.Handle(entryAt(core.ErrorLevel, "shown")))
	assert.Equal(t, "shown\n", buf.String())
}

func TestConsoleHandler_ExactLevelAndFilters(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(ConsoleConfig{
		Writer:     &buf,
		Formatter:  formatter.NewPlainFormatter(),
		Level:      core.AnnounceLevel,
		ExactLevel: true,
		Filters:    []filter.Filter{filter.NewProjectRoot("/home/u/proj")},
	})

	require.NoError(t, h.Handle(entryAt(core.CriticalLevel, "critical")))
	require.NoError(t, h.Handle(entryAt(core.AnnounceLevel, "hello")))

	foreign := core.NewEntry(core.AnnounceLevel, "test", "foreign")
	foreign.Caller = core.NewCallerInfo("/usr/lib/go/src/pkg/x.go", "pkg.f", 1)
	require.NoError(t, h.Handle(foreign))

	assert.Equal(t, "hello\n", buf.String())
}

func TestConsoleHandler_ConcurrentLinesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(ConsoleConfig{Writer: &buf, Formatter: formatter.NewPlainFormatter()})

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = h.Handle(entryAt(core.InfoLevel, fmt.Sprintf("g%02d-line-%03d", g, i)))
			}
		}(g)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1000)
	for _, line := range lines {
		assert.Len(t, line, len("g00-line-000"))
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestFileHandler_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "logs.jsonl")
	h, err := NewFileHandler(FileConfig{Filename: path})
	require.NoError(t, err)

	require.NoError(t, h.Handle(entryAt(core.DebugLevel, "first")))
	require.NoError(t, h.Handle(entryAt(core.AnnounceLevel, "second")))
	require.NoError(t, h.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "ANNOUNCE", rec[formatter.KeyLevel])
	assert.Equal(t, "second", rec[formatter.KeyMessage])
	assert.Equal(t, "main", rec[formatter.KeyModule])

	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err, "lock file is created next to the log")
}

func TestFileHandler_FilenameRequired(t *testing.T) {
	_, err := NewFileHandler(FileConfig{})
	assert.ErrorIs(t, err, ErrFilenameRequired)

	_, err = NewFileHandler(FileConfig{Filename: filepath.Join(t.TempDir(), "x"), MaxBytes: -1})
	assert.Error(t, err)
}

func TestFileHandler_RotationKeepsBackupCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	h, err := NewFileHandler(FileConfig{
		Filename:    path,
		Formatter:   formatter.NewPlainFormatter(),
		MaxBytes:    20,
		BackupCount: 2,
	})
	require.NoError(t, err)

	// 10 bytes per record, two records per file
	for i := 0; i < 8; i++ {
		require.NoError(t, h.Handle(entryAt(core.InfoLevel, fmt.Sprintf("record-%02d", i))))
	}
	require.NoError(t, h.Close())

	assert.Equal(t, []string{"record-06", "record-07"}, readLines(t, path))
	assert.Equal(t, []string{"record-04", "record-05"}, readLines(t, path+".1"))
	assert.Equal(t, []string{"record-02", "record-03"}, readLines(t, path+".2"))
	_, err = os.Stat(path + ".3")
	assert.True(t, errors.Is(err, os.ErrNotExist), "no more than BackupCount backups")

	for _, p := range []string{path, path + ".1", path + ".2"} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(20))
	}
}

func TestFileHandler_ZeroBackupsTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.log")
	h, err := NewFileHandler(FileConfig{
		Filename:  path,
		Formatter: formatter.NewPlainFormatter(),
		MaxBytes:  20,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Handle(entryAt(core.InfoLevel, fmt.Sprintf("record-%02d", i))))
	}
	require.NoError(t, h.Close())

	assert.Equal(t, []string{"record-04"}, readLines(t, path))
	_, err = os.Stat(path + ".1")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileHandler_OversizedRecordStillWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.log")
	h, err := NewFileHandler(FileConfig{
		Filename:    path,
		Formatter:   formatter.NewPlainFormatter(),
		MaxBytes:    4,
		BackupCount: 1,
	})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Handle(entryAt(core.InfoLevel, "much longer than four bytes")))
	assert.Equal(t, []string{"much longer than four bytes"}, readLines(t, path))
}

func TestFileHandler_ReopensAfterExternalRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.log")
	h, err := NewFileHandler(FileConfig{Filename: path, Formatter: formatter.NewPlainFormatter()})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Handle(entryAt(core.InfoLevel, "before")))
	require.NoError(t, os.Rename(path, path+".1"))
	require.NoError(t, h.Handle(entryAt(core.InfoLevel, "after")))

	assert.Equal(t, []string{"before"}, readLines(t, path+".1"))
	assert.Equal(t, []string{"after"}, readLines(t, path))
}

func TestFileHandler_CloseIsIdempotent(t *testing.T) {
	h, err := NewFileHandler(FileConfig{Filename: filepath.Join(t.TempDir(), "logs.log")})
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Handle(entryAt(core.InfoLevel, "late")), os.ErrClosed)
}

func TestFileHandler_LevelAndFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.log")
	h, err := NewFileHandler(FileConfig{
		Filename:  path,
		Formatter: formatter.NewPlainFormatter(),
		Level:     core.InfoLevel,
		Filters:   []filter.Filter{filter.ExcludeAnnounce},
	})
	require.NoError(t, err)

	require.NoError(t, h.Handle(entryAt(core.DebugLevel, "debug")))
	require.NoError(t, h.Handle(entryAt(core.InfoLevel, "info")))
	require.NoError(t, h.Handle(entryAt(core.AnnounceLevel, "announce")))
	require.NoError(t, h.Close())

	assert.Equal(t, []string{"info"}, readLines(t, path))
}

func TestMultiHandler_FanOut(t *testing.T) {
	a, b := newRecordingHandler(), newRecordingHandler()
	failing := newRecordingHandler()
	failing.err = errors.New("disk full")

	m := NewMultiHandler(a, failing, b)
	err := m.Handle(entryAt(core.InfoLevel, "fan"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, []string{"fan"}, a.messages())
	assert.Equal(t, []string{"fan"}, b.messages(), "a failing handler does not stop delivery")
	assert.Len(t, m.Handlers(), 3)

	require.NoError(t, m.Close())
	for _, h := range []*recordingHandler{a, failing, b} {
		assert.Equal(t, int32(1), h.closes.Load())
	}
}

func BenchmarkFileHandler(b *testing.B) {
	h, err := NewFileHandler(FileConfig{
		Filename:    filepath.Join(b.TempDir(), "bench.jsonl"),
		MaxBytes:    1 << 20,
		BackupCount: 2,
	})
	require.NoError(b, err)
	defer h.Close()

	entry := entryAt(core.InfoLevel, "benchmark message")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = h.Handle(entry)
	}
}
