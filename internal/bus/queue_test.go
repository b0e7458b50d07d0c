package bus

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/model"
)

func tick(price int64) model.Tick {
	return model.Tick{Symbol: "BTCUSDT", Price: decimal.NewFromInt(price), At: time.Now()}
}

func TestQueueDeliversInOrder(t *testing.T) {
	q := NewQueue(8)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.TryPublish(tick(i)))
	}
	q.Close()

	var got []string
	q.Run(context.Background(), func(t model.Tick) {
		got = append(got, t.Price.String())
	})
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestQueueFullDropsWithoutBlocking(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.TryPublish(tick(1)))

	err := q.TryPublish(tick(2))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, uint64(1), q.Drops())
}

func TestQueueClosedRejectsPublish(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	assert.ErrorIs(t, q.TryPublish(tick(1)), ErrQueueClosed)
	q.Close() // idempotent
}

func TestQueueRunStopsOnContext(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(model.Tick) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
