package handler

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wobyy/wlogging/core"
)

func waitEntered(t *testing.T, h *recordingHandler) {
	t.Helper()
	select {
	case <-h.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("downstream never received a record")
	}
}

func TestQueueHandler_StartIsIdempotent(t *testing.T) {
	before := ActiveConsumers()
	q := NewQueueHandler(newRecordingHandler(), QueueConfig{})
	assert.Equal(t, Created, q.State())

	q.Start()
	q.Start()
	assert.Equal(t, Started, q.State())
	assert.Equal(t, before+1, ActiveConsumers())

	require.NoError(t, q.Stop())
	assert.Equal(t, Stopped, q.State())
	assert.Equal(t, before, ActiveConsumers())

	q.Start()
	assert.Equal(t, Stopped, q.State(), "Stopped is terminal")
	assert.Equal(t, before, ActiveConsumers())
}

func TestQueueHandler_DeliversEverythingInOrder(t *testing.T) {
	down := newRecordingHandler()
	q := NewQueueHandler(down, QueueConfig{QueueSize: 64})
	q.Start()

	const producers, perProducer = 50, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Handle(entryAt(core.InfoLevel, fmt.Sprintf("%d:%d", p, i))))
			}
		}(p)
	}
	wg.Wait()
	require.NoError(t, q.Stop())

	msgs := down.messages()
	require.Len(t, msgs, producers*perProducer)

	next := make(map[int]int)
	for _, m := range msgs {
		var p, i int
		_, err := fmt.Sscanf(m, "%d:%d", &p, &i)
		require.NoError(t, err)
		assert.Equal(t, next[p], i, "records of one producer stay in order")
		next[p] = i + 1
	}

	stats := q.Stats()
	assert.Equal(t, uint64(producers*perProducer), stats.ProcessedTotal)
	assert.Zero(t, stats.TotalDropped())
	assert.Equal(t, int32(1), down.closes.Load())
}

func TestQueueHandler_BuffersBeforeStart(t *testing.T) {
	down := newRecordingHandler()
	q := NewQueueHandler(down, QueueConfig{QueueSize: 4})

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Handle(entryAt(core.InfoLevel, fmt.Sprint(i))))
	}
	assert.Equal(t, 3, q.Len())
	assert.Empty(t, down.messages(), "nothing is delivered before Start")

	q.Start()
	require.NoError(t, q.Stop())
	assert.Equal(t, []string{"0", "1", "2"}, down.messages())
}

func TestQueueHandler_BufferFullBeforeStartNeverBlocks(t *testing.T) {
	q := NewQueueHandler(newRecordingHandler(), QueueConfig{QueueSize: 1, Overflow: Block})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Handle(entryAt(core.InfoLevel, "a"))
		_ = q.Handle(entryAt(core.InfoLevel, "b"))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Handle blocked without a consumer")
	}
	assert.Equal(t, uint64(1), q.Stats().DroppedTotal[core.InfoLevel])
	require.NoError(t, q.Stop())
}

func TestQueueHandler_StopWithoutStartFlushes(t *testing.T) {
	down := newRecordingHandler()
	q := NewQueueHandler(down, QueueConfig{})

	require.NoError(t, q.Handle(entryAt(core.WarnLevel, "buffered")))
	require.NoError(t, q.Stop())

	assert.Equal(t, []string{"buffered"}, down.messages())
	assert.Equal(t, 0, q.Len())
}

func TestQueueHandler_HandleAfterStop(t *testing.T) {
	down := newRecordingHandler()
	q := NewQueueHandler(down, QueueConfig{})
	q.Start()
	require.NoError(t, q.Stop())
	require.NoError(t, q.Stop())

	err := q.Handle(entryAt(core.ErrorLevel, "late"))
	assert.ErrorIs(t, err, ErrPipelineStopped)
	assert.Equal(t, uint64(1), q.Stats().DroppedTotal[core.ErrorLevel])
	assert.Empty(t, down.messages())
	assert.Equal(t, int32(1), down.closes.Load(), "downstream closed exactly once")
}

// fillBehindBlockedConsumer leaves the consumer stuck on "held" and the
// queue full with "q0".."q<size-1>"
func fillBehindBlockedConsumer(t *testing.T, q *QueueHandler, down *recordingHandler, size int) {
	t.Helper()
	require.NoError(t, q.Handle(entryAt(core.InfoLevel, "held")))
	waitEntered(t, down)
	for i := 0; i < size; i++ {
		require.NoError(t, q.Handle(entryAt(core.InfoLevel, fmt.Sprintf("q%d", i))))
	}
	require.Equal(t, size, q.Len())
}

func TestQueueHandler_DropNewest(t *testing.T) {
	down := newBlockingHandler()
	q := NewQueueHandler(down, QueueConfig{QueueSize: 2, Overflow: DropNewest})
	q.Start()

	fillBehindBlockedConsumer(t, q, down, 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Handle(entryAt(core.InfoLevel, fmt.Sprintf("new%d", i))))
	}
	assert.Equal(t, uint64(3), q.Stats().DroppedTotal[core.InfoLevel])

	close(down.block)
	require.NoError(t, q.Stop())
	assert.Equal(t, []string{"held", "q0", "q1"}, down.messages())
}

func TestQueueHandler_DropOldest(t *testing.T) {
	down := newBlockingHandler()
	q := NewQueueHandler(down, QueueConfig{QueueSize: 2, Overflow: DropOldest})
	q.Start()

	fillBehindBlockedConsumer(t, q, down, 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Handle(entryAt(core.InfoLevel, fmt.Sprintf("new%d", i))))
	}
	assert.Equal(t, uint64(3), q.Stats().TotalDropped())

	close(down.block)
	require.NoError(t, q.Stop())
	assert.Equal(t, []string{"held", "new1", "new2"}, down.messages())
}

func TestQueueHandler_BlockWithTimeoutDrops(t *testing.T) {
	down := newBlockingHandler()
	q := NewQueueHandler(down, QueueConfig{
		QueueSize:    1,
		Overflow:     Block,
		BlockTimeout: 20 * time.Millisecond,
	})
	q.Start()

	fillBehindBlockedConsumer(t, q, down, 1)
	start := time.Now()
	require.NoError(t, q.Handle(entryAt(core.ErrorLevel, "timed out")))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	stats := q.Stats()
	assert.Equal(t, uint64(1), stats.BlockedTotal)
	assert.Equal(t, uint64(1), stats.DroppedTotal[core.ErrorLevel])

	close(down.block)
	require.NoError(t, q.Stop())
	assert.Equal(t, []string{"held", "q0"}, down.messages())
}

func TestQueueHandler_BlockWaitsForSpace(t *testing.T) {
	down := newBlockingHandler()
	q := NewQueueHandler(down, QueueConfig{QueueSize: 1, Overflow: Block})
	q.Start()

	fillBehindBlockedConsumer(t, q, down, 1)

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		_ = q.Handle(entryAt(core.InfoLevel, "waiting"))
	}()

	select {
	case <-returned:
		t.Fatal("Handle returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(down.block)
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle never unblocked")
	}

	require.NoError(t, q.Stop())
	assert.Equal(t, []string{"held", "q0", "waiting"}, down.messages())
	assert.Zero(t, q.Stats().TotalDropped())
}

func TestQueueHandler_ReportsDeliveryErrors(t *testing.T) {
	var errOut bytes.Buffer
	down := newRecordingHandler()
	down.err = errors.New("disk full")

	q := NewQueueHandler(down, QueueConfig{ErrorOutput: &errOut})
	q.Start()
	for i := 0; i < 20; i++ {
		require.NoError(t, q.Handle(entryAt(core.InfoLevel, "x")))
	}
	require.NoError(t, q.Stop())

	out := errOut.String()
	assert.Contains(t, out, "wlogging: queue delivery failed: disk full")
	assert.Less(t, bytes.Count(errOut.Bytes(), []byte("\n")), 20, "diagnostics are rate limited")
	assert.Zero(t, q.Stats().ProcessedTotal)
}

func TestQueueHandler_DrainTimeout(t *testing.T) {
	down := newBlockingHandler()
	q := NewQueueHandler(down, QueueConfig{DrainTimeout: 30 * time.Millisecond})
	q.Start()

	require.NoError(t, q.Handle(entryAt(core.InfoLevel, "stuck")))
	waitEntered(t, down)

	err := q.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drain timed out")
	close(down.block)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Created", Created.String())
	assert.Equal(t, "Started", Started.String())
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Unknown", State(9).String())
}

func TestOverflowPolicy_Text(t *testing.T) {
	tests := []struct {
		in   string
		want OverflowPolicy
	}{
		{"block", Block},
		{"", Block},
		{"DropNewest", DropNewest},
		{"drop_newest", DropNewest},
		{"drop-oldest", DropOldest},
	}
	for _, tt := range tests {
		var p OverflowPolicy
		require.NoError(t, p.UnmarshalText([]byte(tt.in)), tt.in)
		assert.Equal(t, tt.want, p, tt.in)
	}

	var p OverflowPolicy
	assert.Error(t, p.UnmarshalText([]byte("sometimes")))

	text, err := DropOldest.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DropOldest", string(text))
	assert.Equal(t, "Unknown", OverflowPolicy(7).String())
}

func TestStats_CustomLevelInSnapshot(t *testing.T) {
	s := NewStats()
	s.IncrementDropped(core.Level(5))
	s.IncrementDropped(core.WarnLevel)

	snap := s.GetSnapshot()
	assert.Equal(t, uint64(1), snap.DroppedTotal[core.Level(5)])
	assert.Equal(t, uint64(2), snap.TotalDropped())
	assert.Equal(t, uint64(2), s.GetTotalDropped())

	s.Reset()
	assert.Zero(t, s.GetTotalDropped())
}

func BenchmarkQueueHandler(b *testing.B) {
	q := NewQueueHandler(newRecordingHandler(), QueueConfig{QueueSize: 4096, Overflow: DropNewest})
	q.Start()
	defer q.Stop()

	entry := entryAt(core.InfoLevel, "benchmark message")
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = q.Handle(entry)
		}
	})
}
