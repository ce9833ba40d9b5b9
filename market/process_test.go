package market

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqSource replays fixed normal draws and volume offsets.
type seqSource struct {
	norms []float64
	ints  []int
	ni    int
	ii    int
}

func (s *seqSource) NormFloat64() float64 {
	if len(s.norms) == 0 {
		return 0
	}
	v := s.norms[s.ni%len(s.norms)]
	s.ni++
	return v
}

func (s *seqSource) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ii%len(s.ints)]
	s.ii++
	return v % n
}

func testProcessConfig() ProcessConfig {
	return ProcessConfig{
		InitialPrice: decimal.NewFromInt(100),
		Sigma:        0.0025,
		MaxJumpPct:   0.03,
		VolumeMin:    100,
		VolumeMax:    500,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func prev(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func TestProcessFirstCandleOpensAtInitialPrice(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	p := NewProcess(testProcessConfig(), &seqSource{norms: []float64{0}}, WithProcessClock(func() time.Time { return ts }))

	c := p.Next(decimal.NullDecimal{})
	assert.True(t, c.Open.Equal(dec("100")))
	assert.True(t, c.Close.Equal(dec("100")))
	assert.True(t, c.High.Equal(dec("100")))
	assert.True(t, c.Low.Equal(dec("100")))
	assert.Equal(t, ts, c.Time)
	assert.Equal(t, int64(100), c.Volume)
}

func TestProcessNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prevClose string
		norm      float64
		wantClose string
		wantHigh  string
		wantLow   string
	}{
		{name: "one sigma up", prevClose: "100", norm: 1, wantClose: "100.25", wantHigh: "100.25", wantLow: "100"},
		{name: "one sigma down", prevClose: "100", norm: -1, wantClose: "99.75", wantHigh: "100", wantLow: "99.75"},
		{name: "tail capped up", prevClose: "100", norm: 100, wantClose: "103", wantHigh: "103", wantLow: "100"},
		{name: "tail capped down", prevClose: "100", norm: -100, wantClose: "97", wantHigh: "100", wantLow: "97"},
		{name: "floor holds", prevClose: "0.01", norm: -100, wantClose: "0.01", wantHigh: "0.01", wantLow: "0.01"},
		{name: "rounds to cents", prevClose: "33.33", norm: 1, wantClose: "33.41", wantHigh: "33.41", wantLow: "33.33"},
		{name: "cap holds after rounding up", prevClose: "0.50", norm: 100, wantClose: "0.51", wantHigh: "0.51", wantLow: "0.50"},
		{name: "cap holds after rounding down", prevClose: "0.50", norm: -100, wantClose: "0.49", wantHigh: "0.50", wantLow: "0.49"},
		{name: "cap holds at a cent", prevClose: "0.02", norm: 100, wantClose: "0.02", wantHigh: "0.02", wantLow: "0.02"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewProcess(testProcessConfig(), &seqSource{norms: []float64{tt.norm}})
			c := p.Next(prev(tt.prevClose))

			assert.True(t, c.Open.Equal(dec(tt.prevClose)), "open %s", c.Open)
			assert.True(t, c.Close.Equal(dec(tt.wantClose)), "close %s", c.Close)
			assert.True(t, c.High.Equal(dec(tt.wantHigh)), "high %s", c.High)
			assert.True(t, c.Low.Equal(dec(tt.wantLow)), "low %s", c.Low)
		})
	}
}

func TestProcessNaNDrawIsFlat(t *testing.T) {
	t.Parallel()

	p := NewProcess(testProcessConfig(), &seqSource{norms: []float64{math.NaN()}})
	c := p.Next(prev("42.42"))
	assert.True(t, c.Close.Equal(dec("42.42")))
}

func TestProcessVolumeRange(t *testing.T) {
	t.Parallel()

	p := NewProcess(testProcessConfig(), &seqSource{ints: []int{0, 399, 250}})
	assert.Equal(t, int64(100), p.Next(prev("1")).Volume)
	assert.Equal(t, int64(499), p.Next(prev("1")).Volume)
	assert.Equal(t, int64(350), p.Next(prev("1")).Volume)
}

func TestProcessInvariantsOverRandomWalk(t *testing.T) {
	t.Parallel()

	cfg := testProcessConfig()
	cfg.Sigma = 0.02 // wide enough that the cap is hit regularly
	p := NewProcess(cfg, NewRandSource(7))

	var last decimal.NullDecimal
	for i := 0; i < 5000; i++ {
		c := p.Next(last)

		require.True(t, c.Low.LessThanOrEqual(c.Open))
		require.True(t, c.Open.LessThanOrEqual(c.High))
		require.True(t, c.Low.LessThanOrEqual(c.Close))
		require.True(t, c.Close.LessThanOrEqual(c.High))
		require.True(t, c.Close.GreaterThanOrEqual(MinPrice))
		require.True(t, c.Close.Equal(RoundCents(c.Close)), "close %s not in cents", c.Close)
		require.GreaterOrEqual(t, c.Volume, int64(cfg.VolumeMin))
		require.Less(t, c.Volume, int64(cfg.VolumeMax))

		limit := c.Open.Mul(decimal.NewFromFloat(cfg.MaxJumpPct))
		require.True(t, c.Close.Sub(c.Open).Abs().LessThanOrEqual(limit),
			"move %s -> %s exceeds cap", c.Open, c.Close)

		last = decimal.NewNullDecimal(c.Close)
	}
}

func TestProcessConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, testProcessConfig().Validate())

	bad := []func(*ProcessConfig){
		func(c *ProcessConfig) { c.InitialPrice = decimal.Zero },
		func(c *ProcessConfig) { c.Sigma = -1 },
		func(c *ProcessConfig) { c.Sigma = math.Inf(1) },
		func(c *ProcessConfig) { c.MaxJumpPct = 1 },
		func(c *ProcessConfig) { c.VolumeMin = 0 },
		func(c *ProcessConfig) { c.VolumeMax = c.VolumeMin },
	}
	for i, mutate := range bad {
		cfg := testProcessConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
}

func TestCandleReturn(t *testing.T) {
	t.Parallel()

	c := Candle{Open: dec("100"), Close: dec("103")}
	assert.InDelta(t, 0.03, c.Return(), 1e-12)
	assert.True(t, c.Bullish())
	assert.Equal(t, 0.0, Candle{}.Return())
}

func TestTruncateQuantity(t *testing.T) {
	t.Parallel()

	assert.True(t, TruncateQuantity(dec("10.99999"), 4).Equal(dec("10.9999")))
	assert.True(t, TruncateQuantity(dec("0.000001"), 4).IsZero())
	assert.True(t, RoundCents(dec("1.005")).Equal(dec("1.01")))
}
