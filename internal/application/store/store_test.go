package store

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(s int, a int) int { return s + a }

func TestDispatch_AppliesInOrder(t *testing.T) {
	st := New(0, sum, nil)

	var seen []int
	st.Subscribe(func(prev, next int, a int) {
		assert.Equal(t, prev+a, next)
		seen = append(seen, next)
	})

	for i := 1; i <= 4; i++ {
		require.NoError(t, st.Dispatch(i))
	}

	assert.Equal(t, 10, st.State())
	assert.Equal(t, []int{1, 3, 6, 10}, seen)
	assert.Equal(t, uint64(4), st.Dispatched())
}

func TestDispatch_ReentrantIsQueued(t *testing.T) {
	st := New(0, sum, nil)

	var order []string
	st.Subscribe(func(prev, next int, a int) {
		order = append(order, "first:"+strconv.Itoa(next))
		if a == 1 {
			// must not run before the second observer sees next=1
			require.NoError(t, st.Dispatch(10))
		}
	})
	st.Subscribe(func(prev, next int, a int) {
		order = append(order, "second:"+strconv.Itoa(next))
	})

	require.NoError(t, st.Dispatch(1))

	assert.Equal(t, []string{"first:1", "second:1", "first:11", "second:11"}, order)
	assert.Equal(t, 11, st.State())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	st := New(0, sum, nil)
	calls := 0
	unsub := st.Subscribe(func(_, _ int, _ int) { calls++ })

	require.NoError(t, st.Dispatch(1))
	unsub()
	require.NoError(t, st.Dispatch(1))

	assert.Equal(t, 1, calls)
}

func TestObserverPanicIsContained(t *testing.T) {
	st := New(0, sum, nil)
	calls := 0
	st.Subscribe(func(_, _ int, _ int) { panic("bad observer") })
	st.Subscribe(func(_, _ int, _ int) { calls++ })

	require.NoError(t, st.Dispatch(2))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, st.State())
}

func TestClose_RejectsDispatch(t *testing.T) {
	st := New(0, sum, nil)
	st.Close()

	assert.ErrorIs(t, st.Dispatch(1), ErrClosed)
	assert.True(t, st.Closed())
	assert.Equal(t, 0, st.State())
}

func TestDispatch_Concurrent(t *testing.T) {
	st := New(0, sum, nil)

	var mu sync.Mutex
	last := 0
	st.Subscribe(func(prev, next int, _ int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, last, prev)
		last = next
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Dispatch(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, st.State())
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == 50
	}, time.Second, 10*time.Millisecond)
}
