package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorIsReproducible(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	a := NewGenerator("BTCUSDT", 50000, 0.001, 7)
	b := NewGenerator("BTCUSDT", 50000, 0.001, 7)

	for i := 0; i < 100; i++ {
		ta := a.Next(now)
		tb := b.Next(now)
		assert.True(t, ta.Price.Equal(tb.Price), "same seed must walk the same path")
		assert.True(t, ta.Price.Sign() > 0)
	}
}

func TestGeneratorStaysWithinStep(t *testing.T) {
	g := NewGenerator("BTCUSDT", 100, 0.01, 1)
	prev := decimal.NewFromInt(100)
	for i := 0; i < 200; i++ {
		tick := g.Next(time.Now())
		move := tick.Price.Sub(prev).Abs().Div(prev)
		assert.True(t, move.LessThanOrEqual(decimal.NewFromFloat(0.0100001)),
			"per-tick move bounded by stepPct, got %s", move)
		prev = tick.Price
	}
}

func TestReadBars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.json")
	body := `[
		{"at": "2024-01-01T00:00:00Z", "open": "100", "high": "101", "low": "99", "close": "100.5", "volume": "12"},
		{"at": "2024-01-02T00:00:00Z", "open": "100.5", "high": "103", "low": "100", "close": "102", "volume": "9"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	bars, err := ReadBars(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Close.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, bars[1].At.After(bars[0].At))
	assert.True(t, bars[0].Valid())
}

func TestReadBarsErrors(t *testing.T) {
	_, err := ReadBars(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "junk.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = ReadBars(path)
	assert.Error(t, err)
}
