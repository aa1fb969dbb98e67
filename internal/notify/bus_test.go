package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

func TestBus_DeliversToSubscriber(t *testing.T) {
	bus := NewBus[string]("payments", observability.DiscardLogger())

	var got []string
	unsubscribe, err := bus.Subscribe(func(s string) { got = append(got, s) })
	require.NoError(t, err)
	defer unsubscribe()

	assert.True(t, bus.Publish("sub_1"))
	assert.True(t, bus.Publish("sub_2"))
	assert.Equal(t, []string{"sub_1", "sub_2"}, got)
}

func TestBus_DropsWithoutSubscriber(t *testing.T) {
	bus := NewBus[int]("payments", observability.DiscardLogger())

	assert.False(t, bus.HasSubscriber())
	assert.False(t, bus.Publish(1))

	var got []int
	unsubscribe, err := bus.Subscribe(func(n int) { got = append(got, n) })
	require.NoError(t, err)
	defer unsubscribe()

	assert.True(t, bus.Publish(2))
	assert.Equal(t, []int{2}, got, "earlier events are not replayed")
}

func TestBus_SingleSubscriber(t *testing.T) {
	bus := NewBus[int]("payments", observability.DiscardLogger())

	first, err := bus.Subscribe(func(int) {})
	require.NoError(t, err)

	_, err = bus.Subscribe(func(int) {})
	assert.ErrorIs(t, err, ErrSubscriberMounted)

	first()
	assert.False(t, bus.HasSubscriber())

	second, err := bus.Subscribe(func(int) {})
	require.NoError(t, err)

	first()
	assert.True(t, bus.HasSubscriber(), "stale unsubscribe leaves the new subscriber mounted")
	second()
	assert.False(t, bus.HasSubscriber())
}

func TestBus_NilHandler(t *testing.T) {
	bus := NewBus[int]("payments", nil)
	_, err := bus.Subscribe(nil)
	assert.Error(t, err)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus[int]("payments", observability.DiscardLogger())

	var mu sync.Mutex
	count := 0
	unsubscribe, err := bus.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}
