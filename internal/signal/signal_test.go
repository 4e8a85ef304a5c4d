package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.add("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.add("INFO", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.add("ERROR", msg, keysAndValues) }

func (l *testLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if len(m) >= len(prefix) && m[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func newTestBus(t *testing.T) (*Bus, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	b, err := New(logger)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b, logger
}

func TestBus_EmitReachesEverySubscriberInOrder(t *testing.T) {
	b, _ := newTestBus(t)

	var order []int
	b.Subscribe(SceneLoaded, func(context.Context, Signal) error { order = append(order, 1); return nil })
	b.Subscribe(SceneLoaded, func(context.Context, Signal) error { order = append(order, 2); return nil })
	b.Subscribe(ARStarted, func(context.Context, Signal) error { order = append(order, 99); return nil })

	b.Emit(context.Background(), Signal{Name: SceneLoaded, CMID: 4, GearID: 7})

	assert.Equal(t, []int{1, 2}, order)
}

func TestBus_CarriesIdentifiersAndTimestamp(t *testing.T) {
	b, _ := newTestBus(t)

	var got Signal
	b.Subscribe(SceneLoaded, func(_ context.Context, s Signal) error { got = s; return nil })
	b.Emit(context.Background(), Signal{Name: SceneLoaded, CMID: 4, GearID: 7})

	assert.Equal(t, int64(4), got.CMID)
	assert.Equal(t, int64(7), got.GearID)
	assert.False(t, got.Timestamp.IsZero())
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	b, logger := newTestBus(t)

	second := false
	b.Subscribe(VRStarted, func(context.Context, Signal) error { return errors.New("boom") })
	b.Subscribe(VRStarted, func(context.Context, Signal) error { second = true; return nil })

	b.Emit(context.Background(), Signal{Name: VRStarted})

	assert.True(t, second)
	assert.Equal(t, 1, logger.count("ERROR"))
}

func TestBus_Unsubscribe(t *testing.T) {
	b, _ := newTestBus(t)

	calls := 0
	unsub := b.Subscribe(SceneLoaded, func(context.Context, Signal) error { calls++; return nil })
	b.Emit(context.Background(), Signal{Name: SceneLoaded})
	unsub()
	unsub()
	b.Emit(context.Background(), Signal{Name: SceneLoaded})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Subscribers(SceneLoaded))
}

func TestBus_Once(t *testing.T) {
	b, _ := newTestBus(t)

	calls := 0
	b.Subscribe(SceneLoaded, func(context.Context, Signal) error { calls++; return nil }, Once())

	b.Emit(context.Background(), Signal{Name: SceneLoaded})
	b.Emit(context.Background(), Signal{Name: SceneLoaded})

	assert.Equal(t, 1, calls)
}

func TestBus_ForCMIDWithOnce(t *testing.T) {
	b, _ := newTestBus(t)

	var got []int64
	b.Subscribe(SceneLoaded, func(_ context.Context, sig Signal) error {
		got = append(got, sig.CMID)
		return nil
	}, ForCMID(7), Once())

	b.Emit(context.Background(), Signal{Name: SceneLoaded, CMID: 99})
	assert.Equal(t, 1, b.Subscribers(SceneLoaded), "other modules do not use up the subscription")

	b.Emit(context.Background(), Signal{Name: SceneLoaded, CMID: 7})
	b.Emit(context.Background(), Signal{Name: SceneLoaded, CMID: 7})

	assert.Equal(t, []int64{7}, got)
	assert.Zero(t, b.Subscribers(SceneLoaded))
}

func TestBus_BufferedRunsAsync(t *testing.T) {
	b, _ := newTestBus(t)

	var calls atomic.Int32
	done := make(chan struct{}, 3)
	b.Subscribe(SceneLoaded, func(context.Context, Signal) error {
		calls.Add(1)
		done <- struct{}{}
		return nil
	}, Buffered(10))

	for range 3 {
		b.Emit(context.Background(), Signal{Name: SceneLoaded})
	}
	for range 3 {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("buffered handler not called")
		}
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestBus_BufferedOnceDelivers(t *testing.T) {
	b, _ := newTestBus(t)

	done := make(chan Signal, 2)
	b.Subscribe(SceneLoaded, func(_ context.Context, s Signal) error {
		done <- s
		return nil
	}, Buffered(1), Once())

	b.Emit(context.Background(), Signal{Name: SceneLoaded, GearID: 1})
	b.Emit(context.Background(), Signal{Name: SceneLoaded, GearID: 2})

	select {
	case s := <-done:
		assert.Equal(t, int64(1), s.GearID)
	case <-time.After(time.Second):
		t.Fatal("buffered once handler not called")
	}
	assert.Equal(t, 0, b.Subscribers(SceneLoaded))
}

func TestBus_BufferedDropsWhenFull(t *testing.T) {
	b, logger := newTestBus(t)

	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	b.Subscribe(SceneLoaded, func(context.Context, Signal) error {
		once.Do(func() { close(started) })
		<-block
		return nil
	}, Buffered(1))

	b.Emit(context.Background(), Signal{Name: SceneLoaded})
	<-started
	b.Emit(context.Background(), Signal{Name: SceneLoaded})
	b.Emit(context.Background(), Signal{Name: SceneLoaded})
	close(block)

	assert.GreaterOrEqual(t, logger.count("ERROR: signal dropped"), 1)
}

func TestBus_Logged(t *testing.T) {
	b, logger := newTestBus(t)

	b.Subscribe(ARStarted, func(context.Context, Signal) error { return nil }, Logged())
	b.Emit(context.Background(), Signal{Name: ARStarted})

	assert.Equal(t, 2, logger.count("DEBUG"))
}

func TestBus_EmitAfterCloseIsNoop(t *testing.T) {
	b, _ := newTestBus(t)

	calls := 0
	b.Subscribe(SceneLoaded, func(context.Context, Signal) error { calls++; return nil })
	b.Close()
	b.Close()
	b.Emit(context.Background(), Signal{Name: SceneLoaded})

	assert.Equal(t, 0, calls)
}
