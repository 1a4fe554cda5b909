package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_NextTickRunsOnFlush(t *testing.T) {
	m := NewManual()
	var order []int

	m.NextTick(func() {
		order = append(order, 1)
		m.NextTick(func() { order = append(order, 3) })
	})
	m.NextTick(func() { order = append(order, 2) })

	assert.Empty(t, order, "nothing runs before Flush")
	assert.Equal(t, 3, m.Flush())
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestManual_Step(t *testing.T) {
	m := NewManual()
	ran := 0
	m.NextTick(func() {
		ran++
		m.NextTick(func() { ran++ })
	})

	assert.Equal(t, 1, m.Step())
	assert.Equal(t, 1, ran)
	tasks, _ := m.Pending()
	assert.Equal(t, 1, tasks)
}

func TestManual_Advance(t *testing.T) {
	m := NewManual()
	var fired []string

	m.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a2") })

	m.Advance(5 * time.Millisecond)
	assert.Empty(t, fired)
	assert.Equal(t, 5*time.Millisecond, m.Now())

	m.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "a2"}, fired)

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "a2", "b"}, fired)
	_, timers := m.Pending()
	assert.Equal(t, 0, timers)
}

func TestManual_AdvanceFlushesTimerTasks(t *testing.T) {
	m := NewManual()
	ran := false
	m.AfterFunc(time.Millisecond, func() {
		m.NextTick(func() { ran = true })
	})

	m.Advance(time.Millisecond)
	assert.True(t, ran)
}

func TestManual_Cancel(t *testing.T) {
	m := NewManual()
	fired := false
	cancel := m.AfterFunc(time.Millisecond, func() { fired = true })

	cancel()
	cancel()
	m.Advance(time.Second)
	assert.False(t, fired)
}

func TestLoop_RunUntilIdle(t *testing.T) {
	l := New()
	var order []int

	l.NextTick(func() {
		order = append(order, 1)
		l.NextTick(func() { order = append(order, 3) })
	})
	l.NextTick(func() { order = append(order, 2) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, l.RunUntilIdle(ctx))
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestLoop_RunUntilIdleWaitsForTimers(t *testing.T) {
	l := New()
	fired := false
	l.AfterFunc(10*time.Millisecond, func() { fired = true })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, l.RunUntilIdle(ctx))
	assert.True(t, fired)
}

func TestLoop_CancelledTimerDoesNotKeepLoopBusy(t *testing.T) {
	l := New()
	fired := false
	cancel := l.AfterFunc(time.Hour, func() { fired = true })
	cancel()

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	require.NoError(t, l.RunUntilIdle(ctx))
	assert.False(t, fired)
	tasks, timers := l.Pending()
	assert.Zero(t, tasks)
	assert.Zero(t, timers)
}

func TestLoop_Do(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = l.Run(ctx)
	}()

	value := 0
	require.NoError(t, l.Do(ctx, func() { value = 42 }))
	assert.Equal(t, 42, value)

	cancel()
	wg.Wait()
}

func TestLoop_PanicDoesNotStopLoop(t *testing.T) {
	l := New()
	ran := false
	l.NextTick(func() { panic("boom") })
	l.NextTick(func() { ran = true })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, l.RunUntilIdle(ctx))
	assert.True(t, ran)
}

func TestLoop_Closed(t *testing.T) {
	l := New()
	l.Close()

	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrLoopClosed)
	assert.ErrorIs(t, l.Run(context.Background()), ErrLoopClosed)
}
